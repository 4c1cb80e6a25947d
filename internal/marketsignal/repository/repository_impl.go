package repository

import (
	"context"
	"errors"

	"github.com/hostwise/nightly/internal/marketsignal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, key string) (*domain.MarketSignal, error) {
	var signal domain.MarketSignal
	err := db.WithContext(ctx).First(&signal, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &signal, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, signal *domain.MarketSignal) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"language":   signal.Language,
				"payload":    signal.Payload,
				"updated_at": signal.UpdatedAt,
			}),
		}).
		Create(signal).Error
}
