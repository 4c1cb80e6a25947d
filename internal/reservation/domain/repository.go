package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reservation *Reservation) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Reservation, error)
	FindByPMSID(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, pmsID string) (*Reservation, error)
	ListByOwnerRange(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, start, end time.Time) ([]*Reservation, error)
	ListByPropertyRange(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, start, end time.Time) ([]*Reservation, error)
	ListActivePMSIDs(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, start, end time.Time) ([]string, error)
	Update(ctx context.Context, db *gorm.DB, reservation *Reservation) error
	MarkCancelledByPMSIDs(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, pmsIDs []string) error
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error
	CountOverlapping(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, start, end time.Time, excludeID snowflake.ID) (int64, error)
}
