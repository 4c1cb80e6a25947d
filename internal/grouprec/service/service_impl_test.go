package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	grouprepo "github.com/hostwise/nightly/internal/group/repository"
	groupservice "github.com/hostwise/nightly/internal/group/service"
	"github.com/hostwise/nightly/internal/grouprec/domain"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	"github.com/hostwise/nightly/internal/ownerctx"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	propertyrepo "github.com/hostwise/nightly/internal/property/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type noopReconciler struct{}

func (noopReconciler) InventoryChanged(context.Context, snowflake.ID) {}

type recFixture struct {
	db      *gorm.DB
	svc     domain.Service
	node    *snowflake.Node
	ownerID snowflake.ID
	ctx     context.Context
}

func newFixture(t *testing.T) *recFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&ownerdomain.Owner{},
		&propertydomain.Property{},
		&groupdomain.Group{},
		&groupdomain.Membership{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ownerID := node.Generate()
	require.NoError(t, db.Create(&ownerdomain.Owner{
		ID:       ownerID,
		Email:    "host@example.com",
		Name:     "Host",
		Currency: "EUR",
		Language: "en",
		Timezone: "UTC",
	}).Error)

	groupRepo := grouprepo.Provide()
	propertyRepo := propertyrepo.Provide()
	groups := groupservice.New(groupservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       groupRepo,
		Properties: propertyRepo,
		Billing:    noopReconciler{},
	})

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Properties: propertyRepo,
		GroupRepo:  groupRepo,
		Groups:     groups,
	})

	return &recFixture{
		db:      db,
		svc:     svc,
		node:    node,
		ownerID: ownerID,
		ctx:     ownerctx.WithOwnerID(context.Background(), ownerID),
	}
}

func (f *recFixture) createProperty(t *testing.T, name, location, propertyType string, capacity, bedrooms int, status propertydomain.Status) *propertydomain.Property {
	t.Helper()
	property := &propertydomain.Property{
		ID:           f.node.Generate(),
		OwnerID:      f.ownerID,
		Name:         name,
		Location:     location,
		Status:       status,
		Currency:     "EUR",
		Timezone:     "UTC",
		PropertyType: propertyType,
		Capacity:     capacity,
		Bedrooms:     bedrooms,
	}
	require.NoError(t, f.db.Create(property).Error)
	return property
}

func TestListClustersEquivalentProperties(t *testing.T) {
	f := newFixture(t)

	a := f.createProperty(t, "Flat A", "Lisbon", "apartment", 4, 2, propertydomain.StatusActive)
	b := f.createProperty(t, "Flat B", "Lisbon", "apartment", 4, 2, propertydomain.StatusActive)
	c := f.createProperty(t, "Flat C", "Lisbon", "apartment", 4, 2, propertydomain.StatusActive)
	f.createProperty(t, "Loft", "Lisbon", "apartment", 4, 3, propertydomain.StatusActive)
	f.createProperty(t, "Closed", "Lisbon", "apartment", 4, 2, propertydomain.StatusArchived)
	f.createProperty(t, "Nowhere", "", "apartment", 4, 2, propertydomain.StatusActive)

	recommendations, err := f.svc.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, recommendations, 1, "singleton clusters are not proposed")

	rec := recommendations[0]
	assert.Equal(t, "lisbon-apartment-4p-2br", rec.Key)
	assert.Equal(t, "Lisbon", rec.Location)
	assert.Equal(t, "apartment", rec.PropertyType)
	assert.ElementsMatch(t, []snowflake.ID{a.ID, b.ID, c.ID}, rec.PropertyIDs)
}

func TestListSkipsAlreadyGroupedProperties(t *testing.T) {
	f := newFixture(t)

	a := f.createProperty(t, "Flat A", "Porto", "house", 6, 3, propertydomain.StatusActive)
	b := f.createProperty(t, "Flat B", "Porto", "house", 6, 3, propertydomain.StatusActive)
	f.createProperty(t, "Flat C", "Porto", "house", 6, 3, propertydomain.StatusActive)

	group := &groupdomain.Group{ID: f.node.Generate(), OwnerID: f.ownerID, Name: "Porto houses"}
	require.NoError(t, f.db.Create(group).Error)
	require.NoError(t, f.db.Create(&groupdomain.Membership{GroupID: group.ID, PropertyID: a.ID, Position: 1}).Error)
	require.NoError(t, f.db.Create(&groupdomain.Membership{GroupID: group.ID, PropertyID: b.ID, Position: 2}).Error)

	recommendations, err := f.svc.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, recommendations, "only one ungrouped property remains in the cluster")
}

func TestAcceptCreatesGroupWithMembers(t *testing.T) {
	f := newFixture(t)

	a := f.createProperty(t, "Flat A", "Lisbon", "apartment", 4, 2, propertydomain.StatusActive)
	b := f.createProperty(t, "Flat B", "Lisbon", "apartment", 4, 2, propertydomain.StatusActive)

	group, err := f.svc.Accept(f.ctx, domain.AcceptRequest{
		PropertyIDs: []string{a.ID.String(), b.ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lisbon apartment x4", group.Name, "name derived from the first member")
	require.Len(t, group.Members, 2)
	assert.Equal(t, a.ID, group.Members[0].PropertyID)
	assert.Equal(t, 1, group.Members[0].Position)
	assert.Equal(t, b.ID, group.Members[1].PropertyID)
	assert.Equal(t, 2, group.Members[1].Position)

	// Accepted members no longer show up in later scans.
	recommendations, err := f.svc.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, recommendations)
}

func TestAcceptRejectsGroupedProperty(t *testing.T) {
	f := newFixture(t)

	a := f.createProperty(t, "Flat A", "Lisbon", "apartment", 4, 2, propertydomain.StatusActive)
	b := f.createProperty(t, "Flat B", "Lisbon", "apartment", 4, 2, propertydomain.StatusActive)

	_, err := f.svc.Accept(f.ctx, domain.AcceptRequest{
		Name:        "First",
		PropertyIDs: []string{a.ID.String(), b.ID.String()},
	})
	require.NoError(t, err)

	c := f.createProperty(t, "Flat C", "Lisbon", "apartment", 4, 2, propertydomain.StatusActive)
	_, err = f.svc.Accept(f.ctx, domain.AcceptRequest{
		Name:        "Second",
		PropertyIDs: []string{a.ID.String(), c.ID.String()},
	})
	assert.ErrorIs(t, err, groupdomain.ErrPropertyGrouped)
}

func TestAcceptValidatesInput(t *testing.T) {
	f := newFixture(t)
	a := f.createProperty(t, "Flat A", "Lisbon", "apartment", 4, 2, propertydomain.StatusActive)

	_, err := f.svc.Accept(f.ctx, domain.AcceptRequest{PropertyIDs: []string{a.ID.String()}})
	assert.ErrorIs(t, err, domain.ErrTooFewMembers)

	_, err = f.svc.Accept(context.Background(), domain.AcceptRequest{PropertyIDs: []string{"1", "2"}})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}
