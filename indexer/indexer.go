package indexer

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/lober-org/welovedogs/core/events"
	"github.com/lober-org/welovedogs/core/types"
	"github.com/lober-org/welovedogs/crypto"
	"github.com/lober-org/welovedogs/native/donation"
	"github.com/lober-org/welovedogs/observability"
)

// ErrInvalidLimit is returned when a listing limit is out of bounds.
var ErrInvalidLimit = errors.New("indexer: invalid limit")

// MaxRecent caps Recent listings.
const MaxRecent = 500

// Stats summarises the donations made by or to one identity.
type Stats struct {
	Count          int64
	Total          *big.Int
	Counterparties int64
	LastDonatedAt  uint64
}

// Source is the ledger view used to backfill the index.
type Source interface {
	DonationCount() (uint64, error)
	GetDonation(id uint64) (*donation.DonationRecord, bool, error)
}

// Indexer maintains an SQL read model of the donation ledger. The ledger stays
// authoritative; the index only accelerates reporting queries.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to dsn. postgres:// and postgresql:// URLs, as well as
// key=value DSNs naming a host, select PostgreSQL; anything else is treated
// as an SQLite path.
func Open(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("indexer: dsn required")
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	var dialector gorm.Dialector
	if isPostgres(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return db, nil
}

func isPostgres(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=")
}

// New migrates db and returns an indexer over it.
func New(db *gorm.DB, log *slog.Logger) (*Indexer, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{db: db, logger: log}, nil
}

// Close releases the underlying connection pool.
func (ix *Indexer) Close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return fmt.Errorf("indexer: close: %w", err)
	}
	return sqlDB.Close()
}

// Attach subscribes the indexer to committed donation events. The returned
// function detaches it.
func (ix *Indexer) Attach(bus *events.Bus) func() {
	return bus.Subscribe(events.TypeDonationRecorded, func(evt *types.Event) {
		if err := ix.HandleEvent(evt); err != nil {
			observability.Indexer().RecordFailure()
			ix.logger.Error("index donation event", slog.Any("error", err))
		}
	})
}

// HandleEvent stores the donation carried by a donation.recorded event.
func (ix *Indexer) HandleEvent(evt *types.Event) error {
	recorded, err := events.ParseDonationRecorded(evt)
	if err != nil {
		return err
	}
	return ix.Put(&donation.DonationRecord{
		ID:        recorded.ID,
		Donor:     recorded.Donor,
		Recipient: recorded.Recipient,
		Asset:     recorded.Asset,
		Amount:    recorded.Amount,
		Timestamp: recorded.Timestamp,
		Memo:      recorded.Memo,
	})
}

// Put upserts rec keyed by its ledger identifier. A re-initialised ledger
// reuses identifiers, in which case the newer record replaces the row.
func (ix *Indexer) Put(rec *donation.DonationRecord) error {
	if rec == nil || rec.Amount == nil {
		return fmt.Errorf("indexer: incomplete record")
	}
	row := Donation{
		ID:         uuid.New(),
		DonationID: rec.ID,
		Donor:      crypto.AddressFromRaw(rec.Donor).String(),
		Recipient:  crypto.AddressFromRaw(rec.Recipient).String(),
		Asset:      crypto.AddressFromRaw(rec.Asset).String(),
		Amount:     rec.Amount.String(),
		Memo:       rec.Memo,
		DonatedAt:  rec.Timestamp,
	}
	err := ix.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "donation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"donor", "recipient", "asset", "amount", "memo", "donated_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("indexer: upsert %d: %w", rec.ID, err)
	}
	observability.Indexer().RecordIndexed(rec.ID)
	return nil
}

// Backfill indexes every ledger record not yet present in the index, e.g.
// donations committed while the indexer was offline. It returns the number of
// rows written.
func (ix *Indexer) Backfill(src Source) (int, error) {
	count, err := src.DonationCount()
	if err != nil {
		return 0, err
	}
	var known []uint64
	if err := ix.db.Model(&Donation{}).Where("donation_id < ?", count).Pluck("donation_id", &known).Error; err != nil {
		return 0, err
	}
	seen := make(map[uint64]struct{}, len(known))
	for _, id := range known {
		seen[id] = struct{}{}
	}
	written := 0
	for id := uint64(0); id < count; id++ {
		if _, ok := seen[id]; ok {
			continue
		}
		rec, ok, err := src.GetDonation(id)
		if err != nil {
			return written, err
		}
		if !ok {
			continue
		}
		if err := ix.Put(rec); err != nil {
			return written, err
		}
		written++
	}
	if written > 0 {
		ix.logger.Info("indexer backfill complete", slog.Int("rows", written), slog.Uint64("ledgerCount", count))
	}
	return written, nil
}

func (ix *Indexer) stats(column, counterparty string, addr [20]byte) (*Stats, error) {
	encoded := crypto.AddressFromRaw(addr).String()
	scope := func() *gorm.DB {
		return ix.db.Model(&Donation{}).Where(column+" = ?", encoded)
	}
	var amounts []string
	if err := scope().Pluck("amount", &amounts).Error; err != nil {
		return nil, err
	}
	stats := &Stats{Count: int64(len(amounts)), Total: big.NewInt(0)}
	for _, raw := range amounts {
		amount, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("indexer: invalid stored amount %q", raw)
		}
		stats.Total.Add(stats.Total, amount)
	}
	if stats.Count == 0 {
		return stats, nil
	}
	if err := scope().Distinct(counterparty).Count(&stats.Counterparties).Error; err != nil {
		return nil, err
	}
	var last Donation
	if err := scope().Order("donated_at DESC").Order("donation_id DESC").Limit(1).Take(&last).Error; err != nil {
		return nil, err
	}
	stats.LastDonatedAt = last.DonatedAt
	return stats, nil
}

// RecipientStats summarises donations received by recipient.
func (ix *Indexer) RecipientStats(recipient [20]byte) (*Stats, error) {
	return ix.stats("recipient", "donor", recipient)
}

// DonorStats summarises donations made by donor.
func (ix *Indexer) DonorStats(donor [20]byte) (*Stats, error) {
	return ix.stats("donor", "recipient", donor)
}

// Recent lists the most recently appended donations, newest first.
func (ix *Indexer) Recent(limit int) ([]Donation, error) {
	if limit <= 0 || limit > MaxRecent {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	var rows []Donation
	if err := ix.db.Order("donation_id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
