package events

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/lober-org/welovedogs/core/types"
)

const (
	// TypeDonationRecorded is emitted whenever the ledger appends a donation.
	TypeDonationRecorded = "donation.recorded"
	// TypeDonationInitialized is emitted when the ledger counter is (re)set.
	TypeDonationInitialized = "donation.initialized"
)

// DonationRecorded captures the full record of an appended donation.
type DonationRecorded struct {
	ID        uint64
	Donor     [20]byte
	Recipient [20]byte
	Asset     [20]byte
	Amount    *big.Int
	Timestamp uint64
	Memo      *string
}

func (DonationRecorded) EventType() string { return TypeDonationRecorded }

func (e DonationRecorded) Event() *types.Event {
	amount := big.NewInt(0)
	if e.Amount != nil {
		amount = new(big.Int).Set(e.Amount)
	}
	attrs := map[string]string{
		"id":        strconv.FormatUint(e.ID, 10),
		"donor":     formatAddress(e.Donor),
		"recipient": formatAddress(e.Recipient),
		"asset":     formatAddress(e.Asset),
		"amount":    amount.String(),
		"timestamp": strconv.FormatUint(e.Timestamp, 10),
	}
	if e.Memo != nil {
		attrs["memo"] = *e.Memo
	}
	return &types.Event{Type: TypeDonationRecorded, Attributes: attrs}
}

// ParseDonationRecorded reverses DonationRecorded.Event.
func ParseDonationRecorded(evt *types.Event) (DonationRecorded, error) {
	if evt == nil {
		return DonationRecorded{}, errors.New("events: nil event")
	}
	if evt.Type != TypeDonationRecorded {
		return DonationRecorded{}, fmt.Errorf("events: unexpected type %q", evt.Type)
	}
	attrs := evt.Attributes
	var (
		out DonationRecorded
		err error
	)
	if out.ID, err = strconv.ParseUint(attrs["id"], 10, 64); err != nil {
		return DonationRecorded{}, fmt.Errorf("events: id: %w", err)
	}
	if out.Donor, err = attrAddress(attrs, "donor"); err != nil {
		return DonationRecorded{}, err
	}
	if out.Recipient, err = attrAddress(attrs, "recipient"); err != nil {
		return DonationRecorded{}, err
	}
	if out.Asset, err = attrAddress(attrs, "asset"); err != nil {
		return DonationRecorded{}, err
	}
	amount, ok := new(big.Int).SetString(attrs["amount"], 10)
	if !ok {
		return DonationRecorded{}, fmt.Errorf("events: invalid amount %q", attrs["amount"])
	}
	out.Amount = amount
	if out.Timestamp, err = strconv.ParseUint(attrs["timestamp"], 10, 64); err != nil {
		return DonationRecorded{}, fmt.Errorf("events: timestamp: %w", err)
	}
	if memo, ok := attrs["memo"]; ok {
		out.Memo = &memo
	}
	return out, nil
}

// DonationInitialized reports the ledger counter being reset.
type DonationInitialized struct {
	PreviousCount uint64
}

func (DonationInitialized) EventType() string { return TypeDonationInitialized }

func (e DonationInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeDonationInitialized,
		Attributes: map[string]string{
			"previousCount": strconv.FormatUint(e.PreviousCount, 10),
		},
	}
}
