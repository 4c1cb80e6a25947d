package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, group *Group) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Group, error)
	FindByProperty(ctx context.Context, db *gorm.DB, ownerID, propertyID snowflake.ID) (*Group, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]*Group, error)
	Update(ctx context.Context, db *gorm.DB, group *Group) error
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error

	ListMembers(ctx context.Context, db *gorm.DB, groupID snowflake.ID) ([]*Membership, error)
	MemberGroup(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) (snowflake.ID, error)
	AddMember(ctx context.Context, db *gorm.DB, member *Membership) error
	RemoveMember(ctx context.Context, db *gorm.DB, groupID, propertyID snowflake.ID) error
	NextPosition(ctx context.Context, db *gorm.DB, groupID snowflake.ID) (int, error)
}
