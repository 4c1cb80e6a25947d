package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/hostwise/nightly/internal/ownerctx"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	propertyrepo "github.com/hostwise/nightly/internal/property/repository"
	"github.com/hostwise/nightly/internal/reservation/domain"
	reservationrepo "github.com/hostwise/nightly/internal/reservation/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type reservationFixture struct {
	db      *gorm.DB
	svc     domain.Service
	node    *snowflake.Node
	ownerID snowflake.ID
}

func newFixture(t *testing.T) *reservationFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&propertydomain.Property{},
		&domain.Reservation{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       reservationrepo.Provide(),
		Properties: propertyrepo.Provide(),
	})
	return &reservationFixture{db: db, svc: svc, node: node, ownerID: node.Generate()}
}

func (f *reservationFixture) ctx() context.Context {
	return ownerctx.WithOwnerID(context.Background(), f.ownerID)
}

func (f *reservationFixture) addProperty(t *testing.T) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&propertydomain.Property{
		ID:       id,
		OwnerID:  f.ownerID,
		Name:     "Alfama Loft",
		Status:   propertydomain.StatusActive,
		Currency: "EUR",
		Timezone: "Europe/Lisbon",
	}).Error)
	return id
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	propertyID := f.addProperty(t)

	_, err := f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-14",
		TotalPrice: 480,
		Channel:    "airbnb",
	})
	require.NoError(t, err)

	// Shares the night of the 13th.
	_, err = f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-13",
		EndDate:    "2026-05-16",
	})
	assert.ErrorIs(t, err, domain.ErrOverlap)
}

func TestCreateAllowsBackToBackStays(t *testing.T) {
	f := newFixture(t)
	propertyID := f.addProperty(t)

	_, err := f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-14",
	})
	require.NoError(t, err)

	// Checkout and checkin on the same day never collide.
	_, err = f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-14",
		EndDate:    "2026-05-16",
	})
	require.NoError(t, err)
}

func TestCancelledStaysDoNotBlockNights(t *testing.T) {
	f := newFixture(t)
	propertyID := f.addProperty(t)

	_, err := f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-14",
		Status:     "cancelled",
	})
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-12",
		EndDate:    "2026-05-15",
	})
	require.NoError(t, err)
}

func TestCancellingFreesTheNights(t *testing.T) {
	f := newFixture(t)
	propertyID := f.addProperty(t)

	first, err := f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-14",
	})
	require.NoError(t, err)

	cancelled := "cancelled"
	_, err = f.svc.Update(f.ctx(), domain.UpdateReservationRequest{
		ID:     first.ID.String(),
		Status: &cancelled,
	})
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-12",
		EndDate:    "2026-05-15",
	})
	require.NoError(t, err)
}

func TestUpdateRejectsOverlapWithOtherStay(t *testing.T) {
	f := newFixture(t)
	propertyID := f.addProperty(t)

	_, err := f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-14",
	})
	require.NoError(t, err)

	second, err := f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-20",
		EndDate:    "2026-05-22",
	})
	require.NoError(t, err)

	start := "2026-05-12"
	_, err = f.svc.Update(f.ctx(), domain.UpdateReservationRequest{
		ID:        second.ID.String(),
		StartDate: &start,
	})
	assert.ErrorIs(t, err, domain.ErrOverlap)
}

func TestCreateEnforcesStayBounds(t *testing.T) {
	f := newFixture(t)
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&propertydomain.Property{
		ID:       id,
		OwnerID:  f.ownerID,
		Name:     "Alfama Loft",
		Status:   propertydomain.StatusActive,
		Currency: "EUR",
		Timezone: "Europe/Lisbon",
		MinStay:  3,
		MaxStay:  5,
	}).Error)

	// Two nights falls under the three-night minimum.
	_, err := f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: id.String(),
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-12",
	})
	assert.ErrorIs(t, err, domain.ErrStayLength)

	// Six nights exceeds the five-night maximum.
	_, err = f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: id.String(),
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-16",
	})
	assert.ErrorIs(t, err, domain.ErrStayLength)

	reservation, err := f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: id.String(),
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-13",
	})
	require.NoError(t, err)

	// Shrinking the stay below the minimum is rejected too.
	end := "2026-05-11"
	_, err = f.svc.Update(f.ctx(), domain.UpdateReservationRequest{
		ID:      reservation.ID.String(),
		EndDate: &end,
	})
	assert.ErrorIs(t, err, domain.ErrStayLength)

	// A cancelled stay is exempt from the bounds.
	cancelled := string(domain.StatusCancelled)
	_, err = f.svc.Update(f.ctx(), domain.UpdateReservationRequest{
		ID:      reservation.ID.String(),
		EndDate: &end,
		Status:  &cancelled,
	})
	require.NoError(t, err)
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t)
	propertyID := f.addProperty(t)

	_, err := f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-14",
		EndDate:    "2026-05-10",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDates)

	_, err = f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-12",
		Status:     "held",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: "not-a-snowflake",
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-12",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestCreateScopedToOwnerProperties(t *testing.T) {
	f := newFixture(t)
	propertyID := f.addProperty(t)

	stranger := ownerctx.WithOwnerID(context.Background(), f.node.Generate())
	_, err := f.svc.Create(stranger, domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-12",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListRangeReturnsOwnedStays(t *testing.T) {
	f := newFixture(t)
	propertyID := f.addProperty(t)

	_, err := f.svc.Create(f.ctx(), domain.CreateReservationRequest{
		PropertyID: propertyID.String(),
		StartDate:  "2026-05-10",
		EndDate:    "2026-05-14",
	})
	require.NoError(t, err)

	reservations, err := f.svc.ListRange(f.ctx(), domain.ListReservationsRequest{
		Start: "2026-05-01",
		End:   "2026-05-31",
	})
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.Equal(t, 4, reservations[0].Nights())
	assert.Equal(t, domain.StatusConfirmed, reservations[0].Status)
	assert.Equal(t, domain.PricingManual, reservations[0].PricingMethod)
}
