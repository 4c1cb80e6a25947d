package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/reservation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, reservation *domain.Reservation) error {
	return db.WithContext(ctx).Create(reservation).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Reservation, error) {
	var reservation domain.Reservation
	err := db.WithContext(ctx).
		First(&reservation, "owner_id = ? AND id = ?", ownerID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repo) FindByPMSID(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, pmsID string) (*domain.Reservation, error) {
	var reservation domain.Reservation
	err := db.WithContext(ctx).
		First(&reservation, "property_id = ? AND pms_id = ?", propertyID, pmsID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repo) ListByOwnerRange(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, start, end time.Time) ([]*domain.Reservation, error) {
	var reservations []*domain.Reservation
	err := db.WithContext(ctx).
		Where("owner_id = ? AND start_date < ? AND end_date > ?", ownerID, end, start).
		Order("start_date asc, id asc").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *repo) ListByPropertyRange(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, start, end time.Time) ([]*domain.Reservation, error) {
	var reservations []*domain.Reservation
	err := db.WithContext(ctx).
		Where("property_id = ? AND start_date < ? AND end_date > ?", propertyID, end, start).
		Order("start_date asc, id asc").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *repo) ListActivePMSIDs(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, start, end time.Time) ([]string, error) {
	var pmsIDs []string
	err := db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("property_id = ? AND pms_id IS NOT NULL AND status <> ?", propertyID, domain.StatusCancelled).
		Where("start_date < ? AND end_date > ?", end, start).
		Pluck("pms_id", &pmsIDs).Error
	if err != nil {
		return nil, err
	}
	return pmsIDs, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, reservation *domain.Reservation) error {
	return db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("id = ?", reservation.ID).
		Select("*").
		Omit("id", "owner_id", "property_id", "created_at").
		Updates(reservation).Error
}

func (r *repo) MarkCancelledByPMSIDs(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, pmsIDs []string) error {
	if len(pmsIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("property_id = ? AND pms_id IN ?", propertyID, pmsIDs).
		Update("status", domain.StatusCancelled).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&domain.Reservation{}).Error
}

func (r *repo) CountOverlapping(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, start, end time.Time, excludeID snowflake.ID) (int64, error) {
	var count int64
	stmt := db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("property_id = ? AND status <> ?", propertyID, domain.StatusCancelled).
		Where("start_date < ? AND end_date > ?", end, start)
	if excludeID != 0 {
		stmt = stmt.Where("id <> ?", excludeID)
	}
	err := stmt.Count(&count).Error
	return count, err
}
