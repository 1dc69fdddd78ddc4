package events

import (
	"strconv"

	"github.com/lober-org/welovedogs/core/types"
)

const (
	TypeBadgeMinted      = "badge.minted"
	TypeBadgeTransferred = "badge.transferred"
	TypeBadgeBurned      = "badge.burned"
	TypeBadgePaused      = "badge.paused"
	TypeBadgeUnpaused    = "badge.unpaused"
	TypeBadgeURIUpdated  = "badge.uriUpdated"
)

type BadgeMinted struct {
	TokenID uint32
	To      [20]byte
}

func (BadgeMinted) EventType() string { return TypeBadgeMinted }

func (e BadgeMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeBadgeMinted,
		Attributes: map[string]string{
			"tokenId": strconv.FormatUint(uint64(e.TokenID), 10),
			"to":      formatAddress(e.To),
		},
	}
}

type BadgeTransferred struct {
	TokenID uint32
	From    [20]byte
	To      [20]byte
}

func (BadgeTransferred) EventType() string { return TypeBadgeTransferred }

func (e BadgeTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeBadgeTransferred,
		Attributes: map[string]string{
			"tokenId": strconv.FormatUint(uint64(e.TokenID), 10),
			"from":    formatAddress(e.From),
			"to":      formatAddress(e.To),
		},
	}
}

type BadgeBurned struct {
	TokenID uint32
	From    [20]byte
}

func (BadgeBurned) EventType() string { return TypeBadgeBurned }

func (e BadgeBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeBadgeBurned,
		Attributes: map[string]string{
			"tokenId": strconv.FormatUint(uint64(e.TokenID), 10),
			"from":    formatAddress(e.From),
		},
	}
}

// BadgePauseToggled is emitted by Pause and Unpause.
type BadgePauseToggled struct {
	Paused bool
	By     [20]byte
}

func (e BadgePauseToggled) EventType() string {
	if e.Paused {
		return TypeBadgePaused
	}
	return TypeBadgeUnpaused
}

func (e BadgePauseToggled) Event() *types.Event {
	return &types.Event{
		Type:       e.EventType(),
		Attributes: map[string]string{"by": formatAddress(e.By)},
	}
}

type BadgeURIUpdated struct {
	TokenID uint32
	URI     string
}

func (BadgeURIUpdated) EventType() string { return TypeBadgeURIUpdated }

func (e BadgeURIUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeBadgeURIUpdated,
		Attributes: map[string]string{
			"tokenId": strconv.FormatUint(uint64(e.TokenID), 10),
			"uri":     e.URI,
		},
	}
}
