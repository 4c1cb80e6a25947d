package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeOwnerManages(t *testing.T) {
	svc := newService(t)
	ownerID := snowflake.ID(1001)

	err := svc.Authorize(context.Background(), "user:1", RoleOwner, ownerID, ObjectProperty, ActionManage)
	assert.NoError(t, err)
	err = svc.Authorize(context.Background(), "user:1", RoleOwner, ownerID, ObjectBilling, ActionView)
	assert.NoError(t, err)
}

func TestAuthorizeMemberIsReadOnly(t *testing.T) {
	svc := newService(t)
	ownerID := snowflake.ID(1001)

	err := svc.Authorize(context.Background(), "user:2", RoleMember, ownerID, ObjectIntegration, ActionView)
	assert.NoError(t, err)

	err = svc.Authorize(context.Background(), "user:2", RoleMember, ownerID, ObjectIntegration, ActionManage)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeRoleChangeReplacesBinding(t *testing.T) {
	svc := newService(t)
	ownerID := snowflake.ID(1001)

	require.NoError(t, svc.Authorize(context.Background(), "user:3", RoleOwner, ownerID, ObjectGroup, ActionManage))

	// Demoted tokens lose mutation rights on the next check.
	err := svc.Authorize(context.Background(), "user:3", RoleMember, ownerID, ObjectGroup, ActionManage)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeScopedPerTenant(t *testing.T) {
	svc := newService(t)

	require.NoError(t, svc.Authorize(context.Background(), "user:4", RoleOwner, snowflake.ID(1001), ObjectProperty, ActionManage))

	// The same subject shows up as member under another tenant.
	err := svc.Authorize(context.Background(), "user:4", RoleMember, snowflake.ID(2002), ObjectProperty, ActionManage)
	assert.ErrorIs(t, err, ErrForbidden)

	// The original tenant binding is untouched.
	assert.NoError(t, svc.Authorize(context.Background(), "user:4", RoleOwner, snowflake.ID(1001), ObjectProperty, ActionManage))
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc := newService(t)
	ownerID := snowflake.ID(1001)

	assert.ErrorIs(t, svc.Authorize(context.Background(), "", RoleOwner, ownerID, ObjectProperty, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "user:1", "superuser", ownerID, ObjectProperty, ActionView), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "user:1", RoleOwner, 0, ObjectProperty, ActionView), ErrInvalidOwner)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "user:1", RoleOwner, ownerID, " ", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "user:1", RoleOwner, ownerID, ObjectProperty, ""), ErrInvalidAction)
}
