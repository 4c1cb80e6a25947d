package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/billing/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgdb "github.com/hostwise/nightly/pkg/db"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := db.WithContext(ctx).
		First(&subscription, "owner_id = ?", ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) FindByProviderID(ctx context.Context, db *gorm.DB, providerID string) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := db.WithContext(ctx).
		First(&subscription, "provider_id = ?", providerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"provider_id", "customer_id", "status",
				"parent_item_id", "child_item_id",
				"parent_qty", "child_qty",
				"trial_ends_at", "updated_at",
			}),
		}).
		Create(subscription).Error
}

func (r *repo) RecordEvent(ctx context.Context, db *gorm.DB, event *domain.BillingEvent) (bool, error) {
	err := db.WithContext(ctx).Create(event).Error
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
