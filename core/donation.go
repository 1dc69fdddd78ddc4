package core

import (
	"fmt"
	"math/big"

	"github.com/lober-org/welovedogs/native/donation"
)

// DonationInitialize sets the ledger counter to zero.
func (n *Node) DonationInitialize() error {
	return n.execute(MethodDonationInitialize, nil, func(c *callContext) error {
		return n.donationEngine(c).Initialize()
	})
}

// Donate records the donation carried by call. The call must be signed by the
// donor named in its payload.
func (n *Node) Donate(call *SignedCall) (uint64, error) {
	if call == nil {
		return 0, fmt.Errorf("%w: nil call", ErrInvalidPayload)
	}
	var id uint64
	err := n.execute(MethodDonate, call, func(c *callContext) error {
		var payload DonatePayload
		if err := call.decode(MethodDonate, &payload); err != nil {
			return err
		}
		args, err := payload.parse()
		if err != nil {
			return err
		}
		id, err = n.donationEngine(c).Donate(args.donor, args.recipient, args.amount, args.asset, args.memo)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DonationCount returns the number of donations recorded.
func (n *Node) DonationCount() (uint64, error) {
	var count uint64
	err := n.query(func(c *callContext) error {
		var err error
		count, err = n.donationEngine(c).DonationCount()
		return err
	})
	return count, err
}

// GetDonation returns the donation stored under id, ok=false when absent.
func (n *Node) GetDonation(id uint64) (*donation.DonationRecord, bool, error) {
	var (
		rec *donation.DonationRecord
		ok  bool
	)
	err := n.query(func(c *callContext) error {
		var err error
		rec, ok, err = n.donationEngine(c).GetDonation(id)
		return err
	})
	return rec, ok, err
}

// TotalDonated returns the running total donated to recipient.
func (n *Node) TotalDonated(recipient [20]byte) (*big.Int, error) {
	var total *big.Int
	err := n.query(func(c *callContext) error {
		var err error
		total, err = n.donationEngine(c).TotalDonated(recipient)
		return err
	})
	return total, err
}

// DonorDonations returns up to limit donations by donor, newest first.
func (n *Node) DonorDonations(donor [20]byte, limit uint32) ([]*donation.DonationRecord, error) {
	var out []*donation.DonationRecord
	err := n.query(func(c *callContext) error {
		var err error
		out, err = n.donationEngine(c).GetDonorDonations(donor, limit)
		return err
	})
	return out, err
}

// RecipientDonations returns up to limit donations to recipient, newest first.
func (n *Node) RecipientDonations(recipient [20]byte, limit uint32) ([]*donation.DonationRecord, error) {
	var out []*donation.DonationRecord
	err := n.query(func(c *callContext) error {
		var err error
		out, err = n.donationEngine(c).GetRecipientDonations(recipient, limit)
		return err
	})
	return out, err
}
