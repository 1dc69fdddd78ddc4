package core

import (
	"fmt"

	"github.com/lober-org/welovedogs/native/badge"
)

// BadgeInitialize configures the badge collection. Empty strings select the
// collection defaults.
func (n *Node) BadgeInitialize(owner [20]byte, baseURI, name, symbol string) error {
	return n.execute(MethodBadgeInitialize, nil, func(c *callContext) error {
		return n.badgeEngine(c).Initialize(owner, baseURI, name, symbol)
	})
}

func (n *Node) signedBadgeCall(method string, call *SignedCall, payload interface{}, fn func(*badge.Engine) error) error {
	if call == nil {
		return fmt.Errorf("%w: nil call", ErrInvalidPayload)
	}
	return n.execute(method, call, func(c *callContext) error {
		if err := call.decode(method, payload); err != nil {
			return err
		}
		return fn(n.badgeEngine(c))
	})
}

// BadgeMint mints the next badge. The call must be signed by the collection
// owner named as caller.
func (n *Node) BadgeMint(call *SignedCall) (uint32, error) {
	var (
		payload BadgeMintPayload
		id      uint32
	)
	err := n.signedBadgeCall(MethodBadgeMint, call, &payload, func(engine *badge.Engine) error {
		to, err := parseIdentity("to", payload.To)
		if err != nil {
			return err
		}
		caller, err := parseIdentity("caller", payload.Caller)
		if err != nil {
			return err
		}
		id, err = engine.Mint(to, caller)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// BadgeTransfer moves a badge; the call must be signed by from.
func (n *Node) BadgeTransfer(call *SignedCall) error {
	var payload BadgeTransferPayload
	return n.signedBadgeCall(MethodBadgeTransfer, call, &payload, func(engine *badge.Engine) error {
		from, err := parseIdentity("from", payload.From)
		if err != nil {
			return err
		}
		to, err := parseIdentity("to", payload.To)
		if err != nil {
			return err
		}
		return engine.Transfer(from, to, payload.TokenID)
	})
}

// BadgeBurn destroys a badge; the call must be signed by from.
func (n *Node) BadgeBurn(call *SignedCall) error {
	var payload BadgeBurnPayload
	return n.signedBadgeCall(MethodBadgeBurn, call, &payload, func(engine *badge.Engine) error {
		from, err := parseIdentity("from", payload.From)
		if err != nil {
			return err
		}
		return engine.Burn(from, payload.TokenID)
	})
}

// BadgePause halts badge mints, transfers and burns.
func (n *Node) BadgePause(call *SignedCall) error {
	var payload BadgeCallerPayload
	return n.signedBadgeCall(MethodBadgePause, call, &payload, func(engine *badge.Engine) error {
		caller, err := parseIdentity("caller", payload.Caller)
		if err != nil {
			return err
		}
		return engine.Pause(caller)
	})
}

// BadgeUnpause resumes badge operations.
func (n *Node) BadgeUnpause(call *SignedCall) error {
	var payload BadgeCallerPayload
	return n.signedBadgeCall(MethodBadgeUnpause, call, &payload, func(engine *badge.Engine) error {
		caller, err := parseIdentity("caller", payload.Caller)
		if err != nil {
			return err
		}
		return engine.Unpause(caller)
	})
}

// BadgeSetTokenURI overrides the metadata URI of one badge.
func (n *Node) BadgeSetTokenURI(call *SignedCall) error {
	var payload BadgeSetTokenURIPayload
	return n.signedBadgeCall(MethodBadgeSetTokenURI, call, &payload, func(engine *badge.Engine) error {
		caller, err := parseIdentity("caller", payload.Caller)
		if err != nil {
			return err
		}
		return engine.SetTokenURI(payload.TokenID, payload.URI, caller)
	})
}

// BadgeTransferOwnership hands the collection to a new owner. The call must
// be signed by the current owner named as caller.
func (n *Node) BadgeTransferOwnership(call *SignedCall) error {
	var payload BadgeTransferOwnershipPayload
	return n.signedBadgeCall(MethodBadgeTransferOwnership, call, &payload, func(engine *badge.Engine) error {
		newOwner, err := parseIdentity("newOwner", payload.NewOwner)
		if err != nil {
			return err
		}
		caller, err := parseIdentity("caller", payload.Caller)
		if err != nil {
			return err
		}
		return engine.TransferOwnership(newOwner, caller)
	})
}

func (n *Node) badgeQuery(fn func(*badge.Engine) error) error {
	return n.query(func(c *callContext) error {
		return fn(n.badgeEngine(c))
	})
}

// BadgeOwner returns the collection owner.
func (n *Node) BadgeOwner() ([20]byte, error) {
	var owner [20]byte
	err := n.badgeQuery(func(engine *badge.Engine) error {
		var err error
		owner, err = engine.Owner()
		return err
	})
	return owner, err
}

func (n *Node) BadgeTokenURI(id uint32) (string, error) {
	var uri string
	err := n.badgeQuery(func(engine *badge.Engine) error {
		var err error
		uri, err = engine.TokenURI(id)
		return err
	})
	return uri, err
}

func (n *Node) BadgeOwnerOf(id uint32) ([20]byte, error) {
	var owner [20]byte
	err := n.badgeQuery(func(engine *badge.Engine) error {
		var err error
		owner, err = engine.OwnerOf(id)
		return err
	})
	return owner, err
}

func (n *Node) BadgeBalanceOf(owner [20]byte) (uint32, error) {
	var balance uint32
	err := n.badgeQuery(func(engine *badge.Engine) error {
		var err error
		balance, err = engine.BalanceOf(owner)
		return err
	})
	return balance, err
}

func (n *Node) BadgeTotalSupply() (uint32, error) {
	var supply uint32
	err := n.badgeQuery(func(engine *badge.Engine) error {
		var err error
		supply, err = engine.TotalSupply()
		return err
	})
	return supply, err
}

func (n *Node) BadgeTokensOf(owner [20]byte) ([]uint32, error) {
	var tokens []uint32
	err := n.badgeQuery(func(engine *badge.Engine) error {
		var err error
		tokens, err = engine.TokensOf(owner)
		return err
	})
	return tokens, err
}

func (n *Node) BadgePaused() (bool, error) {
	var paused bool
	err := n.badgeQuery(func(engine *badge.Engine) error {
		var err error
		paused, err = engine.Paused()
		return err
	})
	return paused, err
}

func (n *Node) BadgeMetadata() (*badge.Metadata, error) {
	var meta *badge.Metadata
	err := n.badgeQuery(func(engine *badge.Engine) error {
		var err error
		meta, err = engine.Metadata()
		return err
	})
	return meta, err
}
