package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/owner/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Owner, error) {
	var owner domain.Owner
	err := db.WithContext(ctx).First(&owner, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &owner, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Owner, error) {
	var owners []*domain.Owner
	if err := db.WithContext(ctx).Order("id").Find(&owners).Error; err != nil {
		return nil, err
	}
	return owners, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, owner *domain.Owner) error {
	return db.WithContext(ctx).
		Model(&domain.Owner{}).
		Where("id = ?", owner.ID).
		Updates(map[string]interface{}{
			"name":       owner.Name,
			"currency":   owner.Currency,
			"language":   owner.Language,
			"timezone":   owner.Timezone,
			"updated_at": owner.UpdatedAt,
		}).Error
}

func (r *repo) UpdateAccessStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.AccessStatus) error {
	return db.WithContext(ctx).
		Model(&domain.Owner{}).
		Where("id = ?", id).
		Update("access_status", status).Error
}
