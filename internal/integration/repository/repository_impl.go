package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/integration/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, integration *domain.Integration) error {
	return db.WithContext(ctx).Create(integration).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Integration, error) {
	var integration domain.Integration
	err := db.WithContext(ctx).
		First(&integration, "owner_id = ? AND id = ?", ownerID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &integration, nil
}

func (r *repo) FindByType(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, pmsType string) (*domain.Integration, error) {
	var integration domain.Integration
	err := db.WithContext(ctx).
		First(&integration, "owner_id = ? AND pms_type = ?", ownerID, pmsType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &integration, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]*domain.Integration, error) {
	var integrations []*domain.Integration
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at asc, id asc").
		Find(&integrations).Error
	if err != nil {
		return nil, err
	}
	return integrations, nil
}

func (r *repo) ListEnabled(ctx context.Context, db *gorm.DB) ([]*domain.Integration, error) {
	var integrations []*domain.Integration
	err := db.WithContext(ctx).
		Where("enabled = ? AND status <> ?", true, domain.StatusDisconnected).
		Order("owner_id asc, id asc").
		Find(&integrations).Error
	if err != nil {
		return nil, err
	}
	return integrations, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status) error {
	return db.WithContext(ctx).
		Model(&domain.Integration{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repo) UpdateLastSync(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Integration{}).
		Where("id = ?", id).
		Update("last_sync_at", at).Error
}

func (r *repo) UpdateLastPush(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Integration{}).
		Where("id = ?", id).
		Update("last_push_at", at).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&domain.Integration{}).Error
}
