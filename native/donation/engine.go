package donation

import (
	"math/big"
	"time"

	"github.com/lober-org/welovedogs/core/events"
)

// Authorizer reports whether the current caller proved control of id.
type Authorizer interface {
	Authorized(id [20]byte) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(id [20]byte) bool

func (f AuthorizerFunc) Authorized(id [20]byte) bool {
	if f == nil {
		return false
	}
	return f(id)
}

// Engine exposes the ledger operations to callers. It checks donor
// authorisation, stamps records with the logical clock and emits events.
type Engine struct {
	ledger  *Ledger
	auth    Authorizer
	nowFn   func() uint64
	emitter events.Emitter
	strict  bool
}

// NewEngine constructs an engine backed by the provided storage backend. The
// engine denies every donation until an Authorizer is configured.
func NewEngine(store storage) *Engine {
	return &Engine{
		ledger:  NewLedger(store),
		nowFn:   defaultNow,
		emitter: events.NoopEmitter{},
	}
}

func defaultNow() uint64 {
	now := time.Now().Unix()
	if now < 0 {
		return 0
	}
	return uint64(now)
}

// SetAuthorizer installs the caller authorisation check.
func (e *Engine) SetAuthorizer(auth Authorizer) {
	if e == nil {
		return
	}
	e.auth = auth
}

// SetNowFunc overrides the logical clock used to timestamp records.
func (e *Engine) SetNowFunc(now func() uint64) {
	if e == nil {
		return
	}
	if now == nil {
		e.nowFn = defaultNow
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used for ledger events.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetStrictInitialize makes Initialize refuse to reset a ledger that already
// holds donations.
func (e *Engine) SetStrictInitialize(strict bool) {
	if e == nil {
		return
	}
	e.strict = strict
}

// Initialize sets the donation counter to zero. Unless strict initialisation
// is enabled, calling it again after donations exist resets the counter while
// leaving records and recipient totals in place.
func (e *Engine) Initialize() error {
	if e == nil {
		return ErrStoreUnavailable
	}
	previous, err := e.ledger.Count()
	if err != nil {
		return err
	}
	if e.strict && previous > 0 {
		return ErrAlreadyInitialized
	}
	if err := e.ledger.Reset(); err != nil {
		return err
	}
	e.emitter.Emit(events.DonationInitialized{PreviousCount: previous})
	return nil
}

// Donate records a donation claim from donor to recipient and returns its
// identifier. The donor must be authorised for the current call. Amounts may
// be zero or negative.
func (e *Engine) Donate(donor, recipient [20]byte, amount *big.Int, asset [20]byte, memo *string) (uint64, error) {
	if e == nil {
		return 0, ErrStoreUnavailable
	}
	if e.auth == nil || !e.auth.Authorized(donor) {
		return 0, ErrUnauthorized
	}
	rec := &DonationRecord{
		Donor:     donor,
		Recipient: recipient,
		Asset:     asset,
		Timestamp: e.nowFn(),
	}
	if amount != nil {
		rec.Amount = new(big.Int).Set(amount)
	}
	if memo != nil {
		copied := *memo
		rec.Memo = &copied
	}
	id, err := e.ledger.Append(rec)
	if err != nil {
		return 0, err
	}
	e.emitter.Emit(events.DonationRecorded{
		ID:        id,
		Donor:     rec.Donor,
		Recipient: rec.Recipient,
		Asset:     rec.Asset,
		Amount:    rec.Amount,
		Timestamp: rec.Timestamp,
		Memo:      rec.Memo,
	})
	return id, nil
}

// DonationCount returns the number of donations appended so far.
func (e *Engine) DonationCount() (uint64, error) {
	if e == nil {
		return 0, ErrStoreUnavailable
	}
	return e.ledger.Count()
}

// GetDonation fetches a donation by identifier. Unknown identifiers report
// ok=false rather than an error.
func (e *Engine) GetDonation(id uint64) (*DonationRecord, bool, error) {
	if e == nil {
		return nil, false, ErrStoreUnavailable
	}
	return e.ledger.Record(id)
}

// TotalDonated returns the exact sum donated to recipient.
func (e *Engine) TotalDonated(recipient [20]byte) (*big.Int, error) {
	if e == nil {
		return nil, ErrStoreUnavailable
	}
	return e.ledger.Total(recipient)
}

// GetDonorDonations returns up to limit donations made by donor, most recent
// first.
func (e *Engine) GetDonorDonations(donor [20]byte, limit uint32) ([]*DonationRecord, error) {
	if e == nil {
		return nil, ErrStoreUnavailable
	}
	return e.ledger.Scan(limit, func(rec *DonationRecord) bool { return rec.Donor == donor })
}

// GetRecipientDonations returns up to limit donations made to recipient, most
// recent first.
func (e *Engine) GetRecipientDonations(recipient [20]byte, limit uint32) ([]*DonationRecord, error) {
	if e == nil {
		return nil, ErrStoreUnavailable
	}
	return e.ledger.Scan(limit, func(rec *DonationRecord) bool { return rec.Recipient == recipient })
}
