package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Owner, error)
	List(ctx context.Context, db *gorm.DB) ([]*Owner, error)
	Update(ctx context.Context, db *gorm.DB, owner *Owner) error
	UpdateAccessStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status AccessStatus) error
}
