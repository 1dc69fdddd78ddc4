package core

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/lober-org/welovedogs/core/events"
	wldstate "github.com/lober-org/welovedogs/core/state"
	"github.com/lober-org/welovedogs/native/badge"
	"github.com/lober-org/welovedogs/native/donation"
	"github.com/lober-org/welovedogs/observability"
	"github.com/lober-org/welovedogs/storage"
)

// Config controls host behaviour.
type Config struct {
	ChainID uint64
	// StrictInitialize makes donation_initialize refuse to reset a ledger
	// that already holds donations.
	StrictInitialize bool
	// AllowMigrate permits opening a database stamped with another state
	// schema version.
	AllowMigrate bool
}

// Node hosts the native contracts. Every mutating call runs against a fresh
// state journal under the node lock: it either commits all of its writes in a
// single batch or none of them. Committed events are then published on the
// node's event bus.
type Node struct {
	db     storage.Database
	cfg    Config
	mu     sync.RWMutex
	nowFn  func() time.Time
	bus    *events.Bus
	logger *slog.Logger
}

// NewNode opens a node over db, stamping or checking the state version.
func NewNode(db storage.Database, cfg Config) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = DefaultChainID
	}
	if err := wldstate.EnsureStateVersion(db, cfg.AllowMigrate); err != nil {
		return nil, err
	}
	return &Node{
		db:     db,
		cfg:    cfg,
		nowFn:  time.Now,
		bus:    events.NewBus(),
		logger: slog.Default(),
	}, nil
}

// ChainID returns the chain identifier bound into signed call digests.
func (n *Node) ChainID() uint64 { return n.cfg.ChainID }

// Events exposes the bus carrying committed contract events.
func (n *Node) Events() *events.Bus { return n.bus }

// SetNowFunc overrides the wall clock feeding the logical clock.
func (n *Node) SetNowFunc(now func() time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	n.nowFn = now
}

// SetLogger replaces the node logger.
func (n *Node) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger
}

// callContext is the per-call view handed to contract engines. It doubles as
// the authorisation oracle: only the identity proven by the call signature is
// authorised.
type callContext struct {
	manager   *wldstate.Manager
	buffer    *events.Buffer
	signer    *[20]byte
	timestamp uint64
}

func (c *callContext) Authorized(id [20]byte) bool {
	return c != nil && c.signer != nil && *c.signer == id
}

func (n *Node) donationEngine(c *callContext) *donation.Engine {
	engine := donation.NewEngine(c.manager)
	engine.SetAuthorizer(c)
	engine.SetNowFunc(func() uint64 { return c.timestamp })
	engine.SetEmitter(c.buffer)
	engine.SetStrictInitialize(n.cfg.StrictInitialize)
	return engine
}

func (n *Node) badgeEngine(c *callContext) *badge.Engine {
	engine := badge.NewEngine(c.manager)
	engine.SetAuthorizer(c)
	engine.SetEmitter(c.buffer)
	return engine
}

func (n *Node) logicalNow(manager *wldstate.Manager) (uint64, error) {
	last, err := manager.LastTimestamp()
	if err != nil {
		return 0, err
	}
	var now uint64
	if unix := n.nowFn().Unix(); unix > 0 {
		now = uint64(unix)
	}
	if now < last {
		now = last
	}
	return now, nil
}

// execute runs fn as one all-or-nothing host call. When call is non-nil its
// signature and nonce are verified first and the nonce is consumed only if the
// call commits.
func (n *Node) execute(method string, call *SignedCall, fn func(*callContext) error) (err error) {
	start := time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()

	ctx := &callContext{
		manager: wldstate.NewManager(n.db),
		buffer:  &events.Buffer{},
	}
	committed := false
	keys := 0
	defer func() {
		observability.Host().ObserveCall(method, committed, keys, time.Since(start))
		if err != nil {
			n.logger.Debug("contract call aborted", slog.String("method", method), slog.Any("error", err))
		}
	}()

	if ctx.timestamp, err = n.logicalNow(ctx.manager); err != nil {
		return err
	}
	if call != nil {
		if call.Method != method {
			return fmt.Errorf("%w: expected %s, got %s", ErrMethodMismatch, method, call.Method)
		}
		signer, err := call.Verify(n.cfg.ChainID)
		if err != nil {
			return err
		}
		expected, err := ctx.manager.Nonce(signer)
		if err != nil {
			return err
		}
		if call.Nonce != expected {
			return fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, expected, call.Nonce)
		}
		if expected == math.MaxUint64 {
			return fmt.Errorf("%w: nonce exhausted", ErrNonceMismatch)
		}
		if err := ctx.manager.SetNonce(signer, expected+1); err != nil {
			return err
		}
		ctx.signer = &signer
	}

	if err := fn(ctx); err != nil {
		ctx.manager.Discard()
		return err
	}
	if err := ctx.manager.SetLastTimestamp(ctx.timestamp); err != nil {
		ctx.manager.Discard()
		return err
	}
	keys = ctx.manager.Dirty()
	if err := ctx.manager.Commit(); err != nil {
		return fmt.Errorf("core: commit %s: %w", method, err)
	}
	committed = true

	published := ctx.buffer.Events()
	for _, evt := range published {
		observability.Host().RecordEvent(evt.Type)
	}
	n.bus.Publish(published...)
	n.logger.Debug("contract call committed",
		slog.String("method", method),
		slog.Int("keys", keys),
		slog.Int("events", len(published)))
	return nil
}

// query runs fn against committed state. Nothing it writes is persisted.
func (n *Node) query(fn func(*callContext) error) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ctx := &callContext{
		manager: wldstate.NewManager(n.db),
		buffer:  &events.Buffer{},
	}
	return fn(ctx)
}

// Nonce returns the next nonce expected from signer.
func (n *Node) Nonce(signer [20]byte) (uint64, error) {
	var nonce uint64
	err := n.query(func(c *callContext) error {
		var err error
		nonce, err = c.manager.Nonce(signer)
		return err
	})
	return nonce, err
}

// LastTimestamp returns the logical time of the most recent committed call.
func (n *Node) LastTimestamp() (uint64, error) {
	var ts uint64
	err := n.query(func(c *callContext) error {
		var err error
		ts, err = c.manager.LastTimestamp()
		return err
	})
	return ts, err
}
