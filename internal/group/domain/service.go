package domain

import (
	"context"
	"errors"

	propertydomain "github.com/hostwise/nightly/internal/property/domain"
)

type CreateGroupRequest struct {
	Name           string                   `json:"name"`
	SyncPrices     bool                     `json:"sync_prices"`
	MainPropertyID string                   `json:"main_property_id"`
	Strategy       *propertydomain.Strategy `json:"strategy"`
	PropertyIDs    []string                 `json:"property_ids"`
}

type UpdateGroupRequest struct {
	ID             string
	Name           *string                  `json:"name"`
	SyncPrices     *bool                    `json:"sync_prices"`
	MainPropertyID *string                  `json:"main_property_id"`
	Strategy       *propertydomain.Strategy `json:"strategy"`
}

type MembershipRequest struct {
	GroupID     string
	PropertyIDs []string `json:"property_ids"`
}

type GroupWithMembers struct {
	Group
	Members []Membership `json:"members"`
}

type Service interface {
	Create(ctx context.Context, req CreateGroupRequest) (GroupWithMembers, error)
	GetByID(ctx context.Context, id string) (GroupWithMembers, error)
	List(ctx context.Context) ([]GroupWithMembers, error)
	Update(ctx context.Context, req UpdateGroupRequest) (GroupWithMembers, error)
	Delete(ctx context.Context, id string) error
	AddProperties(ctx context.Context, req MembershipRequest) (GroupWithMembers, error)
	RemoveProperties(ctx context.Context, req MembershipRequest) (GroupWithMembers, error)
}

var (
	ErrInvalidOwner    = errors.New("invalid_owner")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrNotFound        = errors.New("not_found")
	ErrPropertyGrouped = errors.New("property_already_grouped")
	ErrNotMember       = errors.New("property_not_member")
)
