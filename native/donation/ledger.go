package donation

import (
	"errors"
	"fmt"
	"math/big"
)

// storage abstracts the subset of state manager functionality required by the
// donation ledger.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	// ErrUnauthorized marks donations whose donor did not authorise the call.
	ErrUnauthorized = errors.New("donation: unauthorized")
	// ErrAmountRequired is returned when no amount is supplied.
	ErrAmountRequired = errors.New("donation: amount required")
	// ErrAmountOutOfRange marks amounts outside the signed 128-bit range.
	ErrAmountOutOfRange = errors.New("donation: amount outside signed 128-bit range")
	// ErrAggregateOverflow is returned when a recipient total would leave the
	// signed 128-bit range.
	ErrAggregateOverflow = errors.New("donation: recipient total overflow")
	// ErrIDSpaceExhausted is returned once every 64-bit identifier is in use.
	ErrIDSpaceExhausted = errors.New("donation: identifier space exhausted")
	// ErrAlreadyInitialized is returned by strict initialisation when
	// donations already exist.
	ErrAlreadyInitialized = errors.New("donation: ledger already holds donations")
	// ErrStoreUnavailable is returned when the ledger has no backing store.
	ErrStoreUnavailable = errors.New("donation: store unavailable")
)

// Ledger persists donation records, the donation counter and recipient totals.
// It performs no authorisation; see Engine.
type Ledger struct {
	store storage
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store storage) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) ready() error {
	if l == nil || l.store == nil {
		return ErrStoreUnavailable
	}
	return nil
}

// Count returns the number of donations ever appended. Absent counters read as
// zero.
func (l *Ledger) Count() (uint64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	var count uint64
	if _, err := l.store.KVGet(countKey, &count); err != nil {
		return 0, fmt.Errorf("donation: read count: %w", err)
	}
	return count, nil
}

func (l *Ledger) setCount(count uint64) error {
	if err := l.store.KVPut(countKey, count); err != nil {
		return fmt.Errorf("donation: write count: %w", err)
	}
	return nil
}

// Record fetches the donation stored under id.
func (l *Ledger) Record(id uint64) (*DonationRecord, bool, error) {
	if err := l.ready(); err != nil {
		return nil, false, err
	}
	var stored storedDonation
	ok, err := l.store.KVGet(recordKey(id), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("donation: read record %d: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	rec, err := stored.toRecord(id)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (l *Ledger) putRecord(id uint64, rec *DonationRecord) error {
	if err := l.store.KVPut(recordKey(id), newStoredDonation(rec)); err != nil {
		return fmt.Errorf("donation: write record %d: %w", id, err)
	}
	return nil
}

// Total returns the running sum donated to recipient, zero when absent.
func (l *Ledger) Total(recipient [20]byte) (*big.Int, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	var encoded string
	ok, err := l.store.KVGet(totalKey(recipient), &encoded)
	if err != nil {
		return nil, fmt.Errorf("donation: read total: %w", err)
	}
	if !ok || encoded == "" {
		return big.NewInt(0), nil
	}
	total, valid := new(big.Int).SetString(encoded, 10)
	if !valid {
		return nil, fmt.Errorf("donation: invalid stored total %q", encoded)
	}
	return total, nil
}

func (l *Ledger) putTotal(recipient [20]byte, total *big.Int) error {
	if err := l.store.KVPut(totalKey(recipient), total.String()); err != nil {
		return fmt.Errorf("donation: write total: %w", err)
	}
	return nil
}

// Append stores rec under the next identifier, bumps the counter and adds the
// amount to the recipient total, in that order. Every check runs before the
// first write so a rejected append leaves the ledger untouched.
func (l *Ledger) Append(rec *DonationRecord) (uint64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	if rec == nil || rec.Amount == nil {
		return 0, ErrAmountRequired
	}
	if !InRange(rec.Amount) {
		return 0, ErrAmountOutOfRange
	}
	id, err := l.Count()
	if err != nil {
		return 0, err
	}
	if id == ^uint64(0) {
		return 0, ErrIDSpaceExhausted
	}
	total, err := l.Total(rec.Recipient)
	if err != nil {
		return 0, err
	}
	next, err := checkedAdd(total, rec.Amount)
	if err != nil {
		return 0, err
	}

	if err := l.putRecord(id, rec); err != nil {
		return 0, err
	}
	if err := l.setCount(id + 1); err != nil {
		return 0, err
	}
	if err := l.putTotal(rec.Recipient, next); err != nil {
		return 0, err
	}
	rec.ID = id
	return id, nil
}

// Reset sets the counter to zero without touching records or totals.
func (l *Ledger) Reset() error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.setCount(0)
}

// Scan walks the ledger from the newest record towards id 0, collecting up to
// limit records accepted by match. Missing slots are skipped.
func (l *Ledger) Scan(limit uint32, match func(*DonationRecord) bool) ([]*DonationRecord, error) {
	out := make([]*DonationRecord, 0)
	if limit == 0 {
		return out, nil
	}
	index, err := l.Count()
	if err != nil {
		return nil, err
	}
	for index > 0 && uint32(len(out)) < limit {
		index--
		rec, ok, err := l.Record(index)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if match == nil || match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}
