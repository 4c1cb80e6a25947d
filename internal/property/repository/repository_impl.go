package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/property/domain"
	"github.com/hostwise/nightly/pkg/db/option"
	"github.com/hostwise/nightly/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, property *domain.Property) error {
	return db.WithContext(ctx).Create(property).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Property, error) {
	var property domain.Property
	err := db.WithContext(ctx).
		First(&property, "owner_id = ? AND id = ?", ownerID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &property, nil
}

func (r *repo) FindByPMSID(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, pmsType, pmsID string) (*domain.Property, error) {
	var property domain.Property
	err := db.WithContext(ctx).
		First(&property, "owner_id = ? AND pms_type = ? AND pms_id = ?", ownerID, pmsType, pmsID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &property, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Property, error) {
	var properties []*domain.Property
	stmt := db.WithContext(ctx).
		Model(&domain.Property{}).
		Where("owner_id = ?", ownerID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Location != "" {
		stmt = stmt.Where("location = ?", filter.Location)
	}
	if filter.PMSType != "" {
		stmt = stmt.Where("pms_type = ?", filter.PMSType)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&properties).Error
	if err != nil {
		return nil, err
	}
	return properties, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]*domain.Property, error) {
	var properties []*domain.Property
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at asc, id asc").
		Find(&properties).Error
	if err != nil {
		return nil, err
	}
	return properties, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, property *domain.Property) error {
	return db.WithContext(ctx).
		Model(&domain.Property{}).
		Where("owner_id = ? AND id = ?", property.OwnerID, property.ID).
		Select("*").
		Omit("id", "owner_id", "created_at").
		Updates(property).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, status domain.Status) error {
	return db.WithContext(ctx).
		Model(&domain.Property{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Update("status", status).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Group membership is a weak reference: remove it, keep the group.
		if err := tx.Exec(`DELETE FROM group_memberships WHERE property_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM price_overrides WHERE property_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.
			Where("owner_id = ? AND id = ?", ownerID, id).
			Delete(&domain.Property{}).Error
	})
}
