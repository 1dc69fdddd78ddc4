package rpc

import (
	"github.com/lober-org/welovedogs/crypto"
	"github.com/lober-org/welovedogs/indexer"
	"github.com/lober-org/welovedogs/native/badge"
	"github.com/lober-org/welovedogs/native/donation"
)

// DonationView is the wire form of a ledger record.
type DonationView struct {
	ID        uint64  `json:"id"`
	Donor     string  `json:"donor"`
	Recipient string  `json:"recipient"`
	Amount    string  `json:"amount"`
	Asset     string  `json:"asset"`
	Timestamp uint64  `json:"timestamp"`
	Memo      *string `json:"memo,omitempty"`
}

func addressString(raw [20]byte) string {
	return crypto.AddressFromRaw(raw).String()
}

func donationView(rec *donation.DonationRecord) *DonationView {
	if rec == nil {
		return nil
	}
	view := &DonationView{
		ID:        rec.ID,
		Donor:     addressString(rec.Donor),
		Recipient: addressString(rec.Recipient),
		Asset:     addressString(rec.Asset),
		Timestamp: rec.Timestamp,
		Memo:      rec.Memo,
	}
	if rec.Amount != nil {
		view.Amount = rec.Amount.String()
	} else {
		view.Amount = "0"
	}
	return view
}

func donationViews(records []*donation.DonationRecord) []*DonationView {
	out := make([]*DonationView, 0, len(records))
	for _, rec := range records {
		out = append(out, donationView(rec))
	}
	return out
}

type MetadataView struct {
	Owner   string `json:"owner"`
	BaseURI string `json:"baseUri"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

func metadataView(meta *badge.Metadata) *MetadataView {
	if meta == nil {
		return nil
	}
	return &MetadataView{
		Owner:   addressString(meta.Owner),
		BaseURI: meta.BaseURI,
		Name:    meta.Name,
		Symbol:  meta.Symbol,
	}
}

type StatsView struct {
	Count          int64  `json:"count"`
	Total          string `json:"total"`
	Counterparties int64  `json:"counterparties"`
	LastDonatedAt  uint64 `json:"lastDonatedAt"`
}

func statsView(stats *indexer.Stats) *StatsView {
	view := &StatsView{Total: "0"}
	if stats == nil {
		return view
	}
	view.Count = stats.Count
	view.Counterparties = stats.Counterparties
	view.LastDonatedAt = stats.LastDonatedAt
	if stats.Total != nil {
		view.Total = stats.Total.String()
	}
	return view
}

func indexedView(row indexer.Donation) *DonationView {
	return &DonationView{
		ID:        row.DonationID,
		Donor:     row.Donor,
		Recipient: row.Recipient,
		Amount:    row.Amount,
		Asset:     row.Asset,
		Timestamp: row.DonatedAt,
		Memo:      row.Memo,
	}
}
