package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/hostwise/nightly/internal/clock"
	"github.com/hostwise/nightly/internal/config"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	propertyrepo "github.com/hostwise/nightly/internal/property/repository"
	"github.com/hostwise/nightly/internal/trial/domain"
	trialrepo "github.com/hostwise/nightly/internal/trial/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type trialFixture struct {
	db   *gorm.DB
	svc  domain.Service
	node *snowflake.Node
}

func newFixture(t *testing.T) *trialFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&propertydomain.Property{},
		&domain.ListingFingerprint{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Clock:      clock.NewFake(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)),
		Config:     config.Config{DefaultTrialDays: 30},
		Repo:       trialrepo.Provide(),
		Properties: propertyrepo.Provide(),
	})
	return &trialFixture{db: db, svc: svc, node: node}
}

func (f *trialFixture) linkProperty(t *testing.T, ownerID snowflake.ID, pmsType, pmsID string) {
	t.Helper()
	require.NoError(t, f.db.Create(&propertydomain.Property{
		ID:       f.node.Generate(),
		OwnerID:  ownerID,
		Name:     "Listing " + pmsID,
		Status:   propertydomain.StatusActive,
		Currency: "EUR",
		Timezone: "UTC",
		PMSType:  pmsType,
		PMSID:    &pmsID,
	}).Error)
}

func TestTrialDaysFreshOwner(t *testing.T) {
	f := newFixture(t)
	ownerID := f.node.Generate()
	f.linkProperty(t, ownerID, "hostaway", "90001")

	days, err := f.svc.TrialDays(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Equal(t, 30, days)
}

func TestTrialDaysDeniedForReusedListing(t *testing.T) {
	f := newFixture(t)
	first := f.node.Generate()
	second := f.node.Generate()

	// First account consumed the listing, cancelled, and the listing shows
	// up again under a new account.
	f.linkProperty(t, first, "hostaway", "90001")
	require.NoError(t, f.svc.Record(context.Background(), first, domain.SourceImport, "hostaway", []string{"90001"}))

	f.linkProperty(t, second, "hostaway", "90001")

	days, err := f.svc.TrialDays(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 0, days)

	// The first account keeps its own trial.
	days, err = f.svc.TrialDays(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 30, days)
}

func TestTrialDaysNormalizesIdentifiers(t *testing.T) {
	f := newFixture(t)
	first := f.node.Generate()
	second := f.node.Generate()

	f.linkProperty(t, first, "hostaway", "90001")
	require.NoError(t, f.svc.Record(context.Background(), first, domain.SourceImport, "Hostaway", []string{" 90001 "}))

	f.linkProperty(t, second, "HOSTAWAY", "90001")

	days, err := f.svc.TrialDays(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 0, days)
}

func TestRecordKeepsFirstOwner(t *testing.T) {
	f := newFixture(t)
	first := f.node.Generate()
	second := f.node.Generate()

	require.NoError(t, f.svc.Record(context.Background(), first, domain.SourceImport, "lodgify", []string{"77"}))
	require.NoError(t, f.svc.Record(context.Background(), second, domain.SourceCheckout, "lodgify", []string{"77"}))

	var print domain.ListingFingerprint
	require.NoError(t, f.db.First(&print, "fingerprint = ?", "lodgify:77").Error)
	assert.Equal(t, first, print.OwnerID)
	assert.Equal(t, domain.SourceImport, print.Source)
}

func TestTrialDaysFailsSafeOnReadError(t *testing.T) {
	f := newFixture(t)
	ownerID := f.node.Generate()
	f.linkProperty(t, ownerID, "hostaway", "90001")

	require.NoError(t, f.db.Migrator().DropTable(&domain.ListingFingerprint{}))

	days, err := f.svc.TrialDays(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Equal(t, 30, days)
}
