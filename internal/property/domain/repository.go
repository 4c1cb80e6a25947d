package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status   Status
	Location string
	PMSType  string
	GroupID  *snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, property *Property) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Property, error)
	FindByPMSID(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, pmsType, pmsID string) (*Property, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*Property, error)
	ListAll(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]*Property, error)
	Update(ctx context.Context, db *gorm.DB, property *Property) error
	UpdateStatus(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, status Status) error
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error
}

type LogRepository interface {
	Append(ctx context.Context, db *gorm.DB, entry *PropertyLog) error
	ListByProperty(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, limit int) ([]*PropertyLog, error)
}
