package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/group/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, group *domain.Group) error {
	return db.WithContext(ctx).Create(group).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Group, error) {
	var group domain.Group
	err := db.WithContext(ctx).
		First(&group, "owner_id = ? AND id = ?", ownerID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

func (r *repo) FindByProperty(ctx context.Context, db *gorm.DB, ownerID, propertyID snowflake.ID) (*domain.Group, error) {
	var group domain.Group
	err := db.WithContext(ctx).
		Raw(`SELECT g.* FROM groups g
		     JOIN group_memberships m ON m.group_id = g.id
		     WHERE g.owner_id = ? AND m.property_id = ?`, ownerID, propertyID).
		Scan(&group).Error
	if err != nil {
		return nil, err
	}
	if group.ID == 0 {
		return nil, nil
	}
	return &group, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]*domain.Group, error) {
	var groups []*domain.Group
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at asc, id asc").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, group *domain.Group) error {
	return db.WithContext(ctx).
		Model(&domain.Group{}).
		Where("owner_id = ? AND id = ?", group.OwnerID, group.ID).
		Select("*").
		Omit("id", "owner_id", "created_at").
		Updates(group).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM group_memberships WHERE group_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.
			Where("owner_id = ? AND id = ?", ownerID, id).
			Delete(&domain.Group{}).Error
	})
}

func (r *repo) ListMembers(ctx context.Context, db *gorm.DB, groupID snowflake.ID) ([]*domain.Membership, error) {
	var members []*domain.Membership
	err := db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("position asc").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) MemberGroup(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) (snowflake.ID, error) {
	var member domain.Membership
	err := db.WithContext(ctx).
		First(&member, "property_id = ?", propertyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return member.GroupID, nil
}

func (r *repo) AddMember(ctx context.Context, db *gorm.DB, member *domain.Membership) error {
	return db.WithContext(ctx).Create(member).Error
}

func (r *repo) RemoveMember(ctx context.Context, db *gorm.DB, groupID, propertyID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("group_id = ? AND property_id = ?", groupID, propertyID).
		Delete(&domain.Membership{}).Error
}

func (r *repo) NextPosition(ctx context.Context, db *gorm.DB, groupID snowflake.ID) (int, error) {
	var position int
	err := db.WithContext(ctx).
		Raw(`SELECT COALESCE(MAX(position), 0) + 1 FROM group_memberships WHERE group_id = ?`, groupID).
		Scan(&position).Error
	if err != nil {
		return 0, err
	}
	return position, nil
}
