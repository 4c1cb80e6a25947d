package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/override/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, date time.Time) (*domain.PriceOverride, error) {
	var override domain.PriceOverride
	err := db.WithContext(ctx).
		First(&override, "property_id = ? AND date = ?", propertyID, date).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

func (r *repo) ListRange(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, start, end time.Time) ([]*domain.PriceOverride, error) {
	var overrides []*domain.PriceOverride
	err := db.WithContext(ctx).
		Where("property_id = ? AND date >= ? AND date <= ?", propertyID, start, end).
		Order("date asc").
		Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, override *domain.PriceOverride, force bool) error {
	assignments := clause.Assignments(map[string]interface{}{
		"price":      override.Price,
		"is_locked":  override.IsLocked,
		"reason":     override.Reason,
		"updated_by": override.UpdatedBy,
		"updated_at": override.UpdatedAt,
	})
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "property_id"}, {Name: "date"}},
		DoUpdates: assignments,
	}
	if !force {
		onConflict.Where = clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "price_overrides", Name: "is_locked"}, Value: false},
		}}
	}
	return db.WithContext(ctx).
		Clauses(onConflict).
		Create(override).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, date time.Time) error {
	return db.WithContext(ctx).
		Where("property_id = ? AND date = ?", propertyID, date).
		Delete(&domain.PriceOverride{}).Error
}

func (r *repo) DeleteByProperty(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Delete(&domain.PriceOverride{}).Error
}
