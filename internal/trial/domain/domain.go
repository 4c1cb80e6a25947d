package domain

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Fingerprint sources.
const (
	SourceImport   = "import"
	SourceCheckout = "checkout"
)

// ListingFingerprint marks a PMS listing as having consumed trial access.
// The fingerprint is globally unique; the first owner to use a listing keeps
// the row forever.
type ListingFingerprint struct {
	Fingerprint string       `gorm:"primaryKey;size:255" json:"fingerprint"`
	OwnerID     snowflake.ID `gorm:"not null;index" json:"owner_id"`
	Source      string       `gorm:"not null" json:"source"`
	UsedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"used_at"`
}

func (ListingFingerprint) TableName() string { return "listing_fingerprints" }

// Normalize derives the canonical fingerprint for one PMS listing.
func Normalize(pmsType, pmsID string) string {
	return strings.ToLower(strings.TrimSpace(pmsType)) + ":" + strings.ToLower(strings.TrimSpace(pmsID))
}

type Repository interface {
	Record(ctx context.Context, db *gorm.DB, prints []*ListingFingerprint) error
	CountForeign(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, fingerprints []string) (int64, error)
	ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]*ListingFingerprint, error)
}

type Service interface {
	// Record stores fingerprints for listings the owner has put to use.
	// Listings already fingerprinted, by anyone, are left untouched.
	Record(ctx context.Context, ownerID snowflake.ID, source, pmsType string, pmsIDs []string) error
	// TrialDays resolves the trial length for a checkout. Zero when any of
	// the owner's listings was already used under a different account.
	TrialDays(ctx context.Context, ownerID snowflake.ID) (int, error)
}
