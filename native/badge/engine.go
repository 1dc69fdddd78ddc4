package badge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lober-org/welovedogs/core/events"
	"github.com/lober-org/welovedogs/native/common"
)

// storage abstracts the subset of state manager functionality required by the
// badge collection.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVGetList(key []byte, out interface{}) error
}

// Authorizer reports whether the current caller proved control of id.
type Authorizer interface {
	Authorized(id [20]byte) bool
}

var (
	ErrNotInitialized     = errors.New("badge: not initialized")
	ErrAlreadyInitialized = errors.New("badge: already initialized")
	ErrUnauthorized       = errors.New("badge: unauthorized")
	ErrNotOwner           = errors.New("badge: caller is not the collection owner")
	ErrTokenNotFound      = errors.New("badge: token not found")
	ErrIncorrectOwner     = errors.New("badge: token not owned by sender")
	ErrTokenIDOverflow    = errors.New("badge: token id space exhausted")
	ErrAlreadyPaused      = errors.New("badge: already paused")
	ErrNotPaused          = errors.New("badge: not paused")
	ErrInvalidMetadata    = errors.New("badge: invalid metadata")
	ErrStoreUnavailable   = errors.New("badge: store unavailable")
)

// Default collection metadata.
const (
	DefaultBaseURI = "https://pod.example/api/pod-poap/metadata"
	DefaultName    = "ProofOfDonation"
	DefaultSymbol  = "POD"
)

// Engine implements the proof-of-donation badge: a sequential, enumerable
// non-fungible token whose minting and pausing are reserved to the collection
// owner.
type Engine struct {
	store   storage
	auth    Authorizer
	emitter events.Emitter
}

// NewEngine constructs a badge engine over store.
func NewEngine(store storage) *Engine {
	return &Engine{store: store, emitter: events.NoopEmitter{}}
}

// SetAuthorizer installs the caller authorisation check. A nil authorizer
// denies every mutating call.
func (e *Engine) SetAuthorizer(auth Authorizer) {
	if e == nil {
		return
	}
	e.auth = auth
}

// SetEmitter configures the event emitter used for badge events.
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

func (e *Engine) ready() error {
	if e == nil || e.store == nil {
		return ErrStoreUnavailable
	}
	return nil
}

func (e *Engine) authorized(id [20]byte) bool {
	return e.auth != nil && e.auth.Authorized(id)
}

// IsPaused implements common.PauseView. Read errors are reported as paused so
// mutating calls fail closed.
func (e *Engine) IsPaused(module string) bool {
	if module != common.ModuleBadge {
		return false
	}
	paused, err := e.Paused()
	return err != nil || paused
}

// Initialize stores the collection metadata and owner. It may only run once.
func (e *Engine) Initialize(owner [20]byte, baseURI, name, symbol string) error {
	if err := e.ready(); err != nil {
		return err
	}
	ok, err := e.store.KVGet(metadataKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if owner == ([20]byte{}) {
		return fmt.Errorf("%w: owner required", ErrInvalidMetadata)
	}
	meta := &Metadata{
		Owner:   owner,
		BaseURI: strings.TrimSpace(baseURI),
		Name:    strings.TrimSpace(name),
		Symbol:  strings.TrimSpace(symbol),
	}
	if meta.BaseURI == "" {
		meta.BaseURI = DefaultBaseURI
	}
	if meta.Name == "" {
		meta.Name = DefaultName
	}
	if meta.Symbol == "" {
		meta.Symbol = DefaultSymbol
	}
	return e.store.KVPut(metadataKey, meta)
}

// Metadata returns the collection metadata.
func (e *Engine) Metadata() (*Metadata, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	var meta Metadata
	ok, err := e.store.KVGet(metadataKey, &meta)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return &meta, nil
}

func (e *Engine) requireOwner(caller [20]byte) (*Metadata, error) {
	meta, err := e.Metadata()
	if err != nil {
		return nil, err
	}
	if !e.authorized(caller) {
		return nil, ErrUnauthorized
	}
	if caller != meta.Owner {
		return nil, ErrNotOwner
	}
	return meta, nil
}

// Owner returns the collection owner.
func (e *Engine) Owner() ([20]byte, error) {
	meta, err := e.Metadata()
	if err != nil {
		return [20]byte{}, err
	}
	return meta.Owner, nil
}

// TransferOwnership hands the collection to newOwner.
func (e *Engine) TransferOwnership(newOwner, caller [20]byte) error {
	meta, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	if newOwner == ([20]byte{}) {
		return fmt.Errorf("%w: owner required", ErrInvalidMetadata)
	}
	meta.Owner = newOwner
	return e.store.KVPut(metadataKey, meta)
}

// Paused reports whether transfers, burns and mints are currently halted.
func (e *Engine) Paused() (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	var paused bool
	if _, err := e.store.KVGet(pausedKey, &paused); err != nil {
		return false, err
	}
	return paused, nil
}

func (e *Engine) setPaused(paused bool, caller [20]byte) error {
	if _, err := e.requireOwner(caller); err != nil {
		return err
	}
	current, err := e.Paused()
	if err != nil {
		return err
	}
	if current == paused {
		if paused {
			return ErrAlreadyPaused
		}
		return ErrNotPaused
	}
	if err := e.store.KVPut(pausedKey, paused); err != nil {
		return err
	}
	e.emitter.Emit(events.BadgePauseToggled{Paused: paused, By: caller})
	return nil
}

// Pause halts mints, transfers and burns.
func (e *Engine) Pause(caller [20]byte) error { return e.setPaused(true, caller) }

// Unpause resumes normal operation.
func (e *Engine) Unpause(caller [20]byte) error { return e.setPaused(false, caller) }

// Mint issues the next sequential token to to.
func (e *Engine) Mint(to, caller [20]byte) (uint32, error) {
	if _, err := e.requireOwner(caller); err != nil {
		return 0, err
	}
	if err := common.Guard(e, common.ModuleBadge); err != nil {
		return 0, err
	}
	var next uint32
	if _, err := e.store.KVGet(nextIDKey, &next); err != nil {
		return 0, err
	}
	if next == ^uint32(0) {
		return 0, ErrTokenIDOverflow
	}
	supply, err := e.TotalSupply()
	if err != nil {
		return 0, err
	}
	holdings, err := e.TokensOf(to)
	if err != nil {
		return 0, err
	}

	id := next
	if err := e.store.KVPut(tokenKey(id), &storedToken{Owner: to}); err != nil {
		return 0, err
	}
	if err := e.store.KVPut(nextIDKey, id+1); err != nil {
		return 0, err
	}
	if err := e.store.KVPut(supplyKey, supply+1); err != nil {
		return 0, err
	}
	if err := e.store.KVPut(holdingsKey(to), append(holdings, id)); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.BadgeMinted{TokenID: id, To: to})
	return id, nil
}

func (e *Engine) token(id uint32) (*storedToken, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	var tok storedToken
	ok, err := e.store.KVGet(tokenKey(id), &tok)
	if err != nil {
		return nil, err
	}
	if !ok || tok.Burned {
		return nil, ErrTokenNotFound
	}
	return &tok, nil
}

// OwnerOf returns the holder of token id.
func (e *Engine) OwnerOf(id uint32) ([20]byte, error) {
	tok, err := e.token(id)
	if err != nil {
		return [20]byte{}, err
	}
	return tok.Owner, nil
}

// BalanceOf returns the number of tokens held by owner.
func (e *Engine) BalanceOf(owner [20]byte) (uint32, error) {
	holdings, err := e.TokensOf(owner)
	if err != nil {
		return 0, err
	}
	return uint32(len(holdings)), nil
}

// TokensOf lists the tokens held by owner in acquisition order.
func (e *Engine) TokensOf(owner [20]byte) ([]uint32, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	var holdings []uint32
	if err := e.store.KVGetList(holdingsKey(owner), &holdings); err != nil {
		return nil, err
	}
	return holdings, nil
}

// TotalSupply returns the number of live (unburned) tokens.
func (e *Engine) TotalSupply() (uint32, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	var supply uint32
	if _, err := e.store.KVGet(supplyKey, &supply); err != nil {
		return 0, err
	}
	return supply, nil
}

func (e *Engine) checkSender(from [20]byte, id uint32) (*storedToken, error) {
	if _, err := e.Metadata(); err != nil {
		return nil, err
	}
	if !e.authorized(from) {
		return nil, ErrUnauthorized
	}
	if err := common.Guard(e, common.ModuleBadge); err != nil {
		return nil, err
	}
	tok, err := e.token(id)
	if err != nil {
		return nil, err
	}
	if tok.Owner != from {
		return nil, ErrIncorrectOwner
	}
	return tok, nil
}

func (e *Engine) removeHolding(owner [20]byte, id uint32) error {
	holdings, err := e.TokensOf(owner)
	if err != nil {
		return err
	}
	kept := holdings[:0]
	for _, held := range holdings {
		if held != id {
			kept = append(kept, held)
		}
	}
	return e.store.KVPut(holdingsKey(owner), kept)
}

// Transfer moves token id from from to to. from must authorise the call.
func (e *Engine) Transfer(from, to [20]byte, id uint32) error {
	tok, err := e.checkSender(from, id)
	if err != nil {
		return err
	}
	if from == to {
		e.emitter.Emit(events.BadgeTransferred{TokenID: id, From: from, To: to})
		return nil
	}
	holdings, err := e.TokensOf(to)
	if err != nil {
		return err
	}
	if err := e.removeHolding(from, id); err != nil {
		return err
	}
	tok.Owner = to
	if err := e.store.KVPut(tokenKey(id), tok); err != nil {
		return err
	}
	if err := e.store.KVPut(holdingsKey(to), append(holdings, id)); err != nil {
		return err
	}
	e.emitter.Emit(events.BadgeTransferred{TokenID: id, From: from, To: to})
	return nil
}

// Burn destroys token id held by from. from must authorise the call.
func (e *Engine) Burn(from [20]byte, id uint32) error {
	tok, err := e.checkSender(from, id)
	if err != nil {
		return err
	}
	supply, err := e.TotalSupply()
	if err != nil {
		return err
	}
	if err := e.removeHolding(from, id); err != nil {
		return err
	}
	tok.Burned = true
	if err := e.store.KVPut(tokenKey(id), tok); err != nil {
		return err
	}
	if supply > 0 {
		supply--
	}
	if err := e.store.KVPut(supplyKey, supply); err != nil {
		return err
	}
	e.emitter.Emit(events.BadgeBurned{TokenID: id, From: from})
	return nil
}

// SetTokenURI overrides the metadata URI of a single token.
func (e *Engine) SetTokenURI(id uint32, uri string, caller [20]byte) error {
	if _, err := e.requireOwner(caller); err != nil {
		return err
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return fmt.Errorf("%w: empty uri", ErrInvalidMetadata)
	}
	if err := e.store.KVPut(uriKey(id), uri); err != nil {
		return err
	}
	e.emitter.Emit(events.BadgeURIUpdated{TokenID: id, URI: uri})
	return nil
}

// TokenURI returns the per-token override when set, otherwise the collection
// base URI joined with the token id.
func (e *Engine) TokenURI(id uint32) (string, error) {
	meta, err := e.Metadata()
	if err != nil {
		return "", err
	}
	var override string
	ok, err := e.store.KVGet(uriKey(id), &override)
	if err != nil {
		return "", err
	}
	if ok && override != "" {
		return override, nil
	}
	if _, err := e.token(id); err != nil {
		return "", err
	}
	return strings.TrimRight(meta.BaseURI, "/") + "/" + strconv.FormatUint(uint64(id), 10), nil
}
