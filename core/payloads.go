package core

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/lober-org/welovedogs/crypto"
)

// Contract call methods. Initialisation methods are administrative and
// unsigned; the rest travel in a SignedCall.
const (
	MethodDonationInitialize     = "donation_initialize"
	MethodDonate                 = "donation_donate"
	MethodBadgeInitialize        = "pod_initialize"
	MethodBadgeMint              = "pod_mint"
	MethodBadgeTransfer          = "pod_transfer"
	MethodBadgeBurn              = "pod_burn"
	MethodBadgePause             = "pod_pause"
	MethodBadgeUnpause           = "pod_unpause"
	MethodBadgeSetTokenURI       = "pod_setTokenUri"
	MethodBadgeTransferOwnership = "pod_transferOwnership"
)

// DonatePayload is the body of a donation_donate call. Amount is a base-10
// signed integer.
type DonatePayload struct {
	Donor     string  `json:"donor"`
	Recipient string  `json:"recipient"`
	Amount    string  `json:"amount"`
	Asset     string  `json:"asset"`
	Memo      *string `json:"memo,omitempty"`
}

type donateArgs struct {
	donor, recipient, asset [20]byte
	amount                  *big.Int
	memo                    *string
}

func (p DonatePayload) parse() (*donateArgs, error) {
	var (
		args donateArgs
		err  error
	)
	if args.donor, err = parseIdentity("donor", p.Donor); err != nil {
		return nil, err
	}
	if args.recipient, err = parseIdentity("recipient", p.Recipient); err != nil {
		return nil, err
	}
	if args.asset, err = parseIdentity("asset", p.Asset); err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(p.Amount), 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid amount %q", ErrInvalidPayload, p.Amount)
	}
	args.amount = amount
	args.memo = p.Memo
	return &args, nil
}

// BadgeMintPayload is the body of a pod_mint call.
type BadgeMintPayload struct {
	To     string `json:"to"`
	Caller string `json:"caller"`
}

// BadgeTransferPayload is the body of a pod_transfer call.
type BadgeTransferPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	TokenID uint32 `json:"tokenId"`
}

// BadgeBurnPayload is the body of a pod_burn call.
type BadgeBurnPayload struct {
	From    string `json:"from"`
	TokenID uint32 `json:"tokenId"`
}

// BadgeCallerPayload is the body of pod_pause and pod_unpause.
type BadgeCallerPayload struct {
	Caller string `json:"caller"`
}

// BadgeSetTokenURIPayload is the body of a pod_setTokenUri call.
type BadgeSetTokenURIPayload struct {
	TokenID uint32 `json:"tokenId"`
	URI     string `json:"uri"`
	Caller  string `json:"caller"`
}

// BadgeTransferOwnershipPayload is the body of a pod_transferOwnership call.
type BadgeTransferOwnershipPayload struct {
	NewOwner string `json:"newOwner"`
	Caller   string `json:"caller"`
}

func parseIdentity(field, value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("%w: %s required", ErrInvalidPayload, field)
	}
	addr, err := crypto.ParseAddress(trimmed)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, field, err)
	}
	return addr, nil
}
