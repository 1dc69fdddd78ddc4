package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Donation mirrors one ledger record. Identities are stored in their wld1…
// encoding and amounts as base-10 strings.
type Donation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	DonationID uint64    `gorm:"uniqueIndex;not null"`
	Donor      string    `gorm:"size:64;index"`
	Recipient  string    `gorm:"size:64;index"`
	Asset      string    `gorm:"size:64"`
	Amount     string    `gorm:"size:48;not null"`
	Memo       *string
	DonatedAt  uint64 `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AutoMigrate performs all schema migrations for the index.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Donation{})
}
