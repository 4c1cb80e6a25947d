package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/hostwise/nightly/internal/group/domain"
	grouprepo "github.com/hostwise/nightly/internal/group/repository"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	"github.com/hostwise/nightly/internal/ownerctx"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	propertyrepo "github.com/hostwise/nightly/internal/property/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubReconciler struct {
	calls int
}

func (r *stubReconciler) InventoryChanged(ctx context.Context, ownerID snowflake.ID) {
	r.calls++
}

type groupFixture struct {
	db         *gorm.DB
	svc        domain.Service
	reconciler *stubReconciler
	node       *snowflake.Node
	ownerID    snowflake.ID
	ctx        context.Context
}

func newFixture(t *testing.T) *groupFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&ownerdomain.Owner{},
		&propertydomain.Property{},
		&domain.Group{},
		&domain.Membership{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	owner := &ownerdomain.Owner{
		ID:       node.Generate(),
		Email:    "host@example.com",
		Name:     "Host",
		Currency: "EUR",
		Language: "en",
		Timezone: "UTC",
	}
	require.NoError(t, db.Create(owner).Error)

	reconciler := &stubReconciler{}
	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       grouprepo.Provide(),
		Properties: propertyrepo.Provide(),
		Billing:    reconciler,
	})

	return &groupFixture{
		db:         db,
		svc:        svc,
		reconciler: reconciler,
		node:       node,
		ownerID:    owner.ID,
		ctx:        ownerctx.WithOwnerID(context.Background(), owner.ID),
	}
}

func (f *groupFixture) createProperty(t *testing.T, name string) *propertydomain.Property {
	t.Helper()

	property := &propertydomain.Property{
		ID:        f.node.Generate(),
		OwnerID:   f.ownerID,
		Name:      name,
		Location:  "Lisbon",
		Status:    propertydomain.StatusActive,
		Currency:  "EUR",
		Timezone:  "UTC",
		Tier:      propertydomain.TierBalanced,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(property).Error)
	return property
}

func TestCreateWithMembersAndMain(t *testing.T) {
	f := newFixture(t)
	first := f.createProperty(t, "Unit A")
	second := f.createProperty(t, "Unit B")

	group, err := f.svc.Create(f.ctx, domain.CreateGroupRequest{
		Name:           "Duplex",
		SyncPrices:     true,
		MainPropertyID: first.ID.String(),
		PropertyIDs:    []string{first.ID.String(), second.ID.String()},
	})
	require.NoError(t, err)
	require.NotNil(t, group.MainPropertyID)
	assert.Equal(t, first.ID, *group.MainPropertyID)
	assert.Len(t, group.Members, 2)
	assert.Equal(t, 1, f.reconciler.calls)
}

func TestCreateRejectsNonMemberMain(t *testing.T) {
	f := newFixture(t)
	first := f.createProperty(t, "Unit A")
	second := f.createProperty(t, "Unit B")
	outsider := f.createProperty(t, "Unit C")

	_, err := f.svc.Create(f.ctx, domain.CreateGroupRequest{
		Name:           "Duplex",
		MainPropertyID: outsider.ID.String(),
		PropertyIDs:    []string{first.ID.String(), second.ID.String()},
	})
	assert.ErrorIs(t, err, domain.ErrNotMember)

	var count int64
	require.NoError(t, f.db.Model(&domain.Group{}).Count(&count).Error)
	assert.Zero(t, count, "rejected create leaves nothing behind")
	assert.Zero(t, f.reconciler.calls)
}

func TestUpdateRejectsNonMemberMain(t *testing.T) {
	f := newFixture(t)
	first := f.createProperty(t, "Unit A")
	second := f.createProperty(t, "Unit B")
	outsider := f.createProperty(t, "Unit C")

	group, err := f.svc.Create(f.ctx, domain.CreateGroupRequest{
		Name:        "Duplex",
		PropertyIDs: []string{first.ID.String(), second.ID.String()},
	})
	require.NoError(t, err)

	outsiderID := outsider.ID.String()
	_, err = f.svc.Update(f.ctx, domain.UpdateGroupRequest{
		ID:             group.ID.String(),
		MainPropertyID: &outsiderID,
	})
	assert.ErrorIs(t, err, domain.ErrNotMember)
}

func TestAddPropertyTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	first := f.createProperty(t, "Unit A")
	second := f.createProperty(t, "Unit B")

	_, err := f.svc.Create(f.ctx, domain.CreateGroupRequest{
		Name:        "Duplex",
		PropertyIDs: []string{first.ID.String()},
	})
	require.NoError(t, err)

	other, err := f.svc.Create(f.ctx, domain.CreateGroupRequest{
		Name:        "Second",
		PropertyIDs: []string{second.ID.String()},
	})
	require.NoError(t, err)

	_, err = f.svc.AddProperties(f.ctx, domain.MembershipRequest{
		GroupID:     other.ID.String(),
		PropertyIDs: []string{first.ID.String()},
	})
	assert.ErrorIs(t, err, domain.ErrPropertyGrouped)
}
