package donation

import (
	"fmt"
	"math/big"
)

// DonationRecord is one immutable donation claim. ID is derived from the
// storage slot the record was read from and is not persisted.
type DonationRecord struct {
	ID        uint64
	Donor     [20]byte
	Recipient [20]byte
	Amount    *big.Int
	Asset     [20]byte
	Timestamp uint64
	Memo      *string
}

// Clone returns a deep copy of the record.
func (r *DonationRecord) Clone() *DonationRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Amount != nil {
		out.Amount = new(big.Int).Set(r.Amount)
	}
	if r.Memo != nil {
		memo := *r.Memo
		out.Memo = &memo
	}
	return &out
}

type storedDonation struct {
	Donor     [20]byte
	Recipient [20]byte
	Amount    string
	Asset     [20]byte
	Timestamp uint64
	HasMemo   bool
	Memo      string
}

func newStoredDonation(rec *DonationRecord) *storedDonation {
	stored := &storedDonation{
		Donor:     rec.Donor,
		Recipient: rec.Recipient,
		Amount:    rec.Amount.String(),
		Asset:     rec.Asset,
		Timestamp: rec.Timestamp,
	}
	if rec.Memo != nil {
		stored.HasMemo = true
		stored.Memo = *rec.Memo
	}
	return stored
}

func (s *storedDonation) toRecord(id uint64) (*DonationRecord, error) {
	amount, ok := new(big.Int).SetString(s.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("donation: invalid stored amount %q", s.Amount)
	}
	rec := &DonationRecord{
		ID:        id,
		Donor:     s.Donor,
		Recipient: s.Recipient,
		Amount:    amount,
		Asset:     s.Asset,
		Timestamp: s.Timestamp,
	}
	if s.HasMemo {
		memo := s.Memo
		rec.Memo = &memo
	}
	return rec, nil
}
