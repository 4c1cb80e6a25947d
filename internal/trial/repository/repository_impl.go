package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/trial/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Record(ctx context.Context, db *gorm.DB, prints []*domain.ListingFingerprint) error {
	if len(prints) == 0 {
		return nil
	}
	// First write wins; a listing fingerprinted under any owner stays theirs.
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fingerprint"}},
			DoNothing: true,
		}).
		Create(prints).Error
}

func (r *repo) CountForeign(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, fingerprints []string) (int64, error) {
	if len(fingerprints) == 0 {
		return 0, nil
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.ListingFingerprint{}).
		Where("fingerprint IN ? AND owner_id <> ?", fingerprints, ownerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]*domain.ListingFingerprint, error) {
	var prints []*domain.ListingFingerprint
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("used_at asc").
		Find(&prints).Error
	if err != nil {
		return nil, err
	}
	return prints, nil
}
