package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/property/domain"
	"gorm.io/gorm"
)

type logRepo struct{}

func ProvideLogs() domain.LogRepository {
	return &logRepo{}
}

func (r *logRepo) Append(ctx context.Context, db *gorm.DB, entry *domain.PropertyLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *logRepo) ListByProperty(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, limit int) ([]*domain.PropertyLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []*domain.PropertyLog
	err := db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("id desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
