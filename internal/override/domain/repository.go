package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, date time.Time) (*PriceOverride, error)
	ListRange(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, start, end time.Time) ([]*PriceOverride, error)
	// Upsert writes the row keyed on (property_id, date). It must not touch
	// locked rows unless force is set.
	Upsert(ctx context.Context, db *gorm.DB, override *PriceOverride, force bool) error
	Delete(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, date time.Time) error
	DeleteByProperty(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) error
}
