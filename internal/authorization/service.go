package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Roles carried by the session token. Session issuance is external; the
// token is trusted once its signature verifies.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
	RoleSystem = "system"
)

const (
	ObjectProperty       = "property"
	ObjectGroup          = "group"
	ObjectIntegration    = "integration"
	ObjectReservation    = "reservation"
	ObjectOverride       = "override"
	ObjectPricing        = "pricing"
	ObjectBilling        = "billing"
	ObjectRecommendation = "recommendation"
)

const (
	ActionView   = "view"
	ActionManage = "manage"
)

type Service interface {
	Authorize(ctx context.Context, actor, role string, ownerID snowflake.ID, object, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidOwner  = errors.New("invalid_owner")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
