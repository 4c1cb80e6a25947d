package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	"github.com/hostwise/nightly/internal/clock"
	integrationdomain "github.com/hostwise/nightly/internal/integration/domain"
	integrationrepo "github.com/hostwise/nightly/internal/integration/repository"
	overridedomain "github.com/hostwise/nightly/internal/override/domain"
	overriderepo "github.com/hostwise/nightly/internal/override/repository"
	"github.com/hostwise/nightly/internal/ownerctx"
	pmsdomain "github.com/hostwise/nightly/internal/pms/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	propertyrepo "github.com/hostwise/nightly/internal/property/repository"
	reservationdomain "github.com/hostwise/nightly/internal/reservation/domain"
	reservationrepo "github.com/hostwise/nightly/internal/reservation/repository"
	syncdomain "github.com/hostwise/nightly/internal/sync/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// mockAdapter records calls and serves canned reservations.
type mockAdapter struct {
	reservations []pmsdomain.NormalizedReservation
	batches      map[string][]pmsdomain.RateUpdate
	settings     map[string]pmsdomain.PropertySettings
	failBatches  int
	batchCalls   int
}

func (m *mockAdapter) TestConnection(ctx context.Context) error { return nil }

func (m *mockAdapter) ListProperties(ctx context.Context) ([]pmsdomain.NormalizedProperty, error) {
	return nil, nil
}

func (m *mockAdapter) ListReservations(ctx context.Context, start, end time.Time) ([]pmsdomain.NormalizedReservation, error) {
	return m.reservations, nil
}

func (m *mockAdapter) UpdateRate(ctx context.Context, propertyPMSID string, date time.Time, price float64) error {
	return m.UpdateRatesBatch(ctx, propertyPMSID, []pmsdomain.RateUpdate{{Date: date, Price: price}})
}

func (m *mockAdapter) UpdateRatesBatch(ctx context.Context, propertyPMSID string, rates []pmsdomain.RateUpdate) error {
	m.batchCalls++
	if m.failBatches > 0 {
		m.failBatches--
		return pmsdomain.ErrUnavailable
	}
	if m.batches == nil {
		m.batches = make(map[string][]pmsdomain.RateUpdate)
	}
	m.batches[propertyPMSID] = append(m.batches[propertyPMSID], rates...)
	return nil
}

func (m *mockAdapter) UpdatePropertySettings(ctx context.Context, propertyPMSID string, settings pmsdomain.PropertySettings) error {
	if m.settings == nil {
		m.settings = make(map[string]pmsdomain.PropertySettings)
	}
	m.settings[propertyPMSID] = settings
	return nil
}

func (m *mockAdapter) CreateReservation(ctx context.Context, r pmsdomain.NormalizedReservation) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockAdapter) UpdateReservation(ctx context.Context, pmsID string, r pmsdomain.NormalizedReservation) error {
	return errors.New("not implemented")
}

func (m *mockAdapter) DeleteReservation(ctx context.Context, pmsID string) error {
	return errors.New("not implemented")
}

// stubAdapters satisfies the integration service surface the sync fabric
// needs; everything but AdapterFor is unused here.
type stubAdapters struct {
	adapter pmsdomain.Adapter
}

func (s stubAdapters) TestConnection(ctx context.Context, pmsType string, credentials map[string]string) error {
	return nil
}

func (s stubAdapters) Connect(ctx context.Context, pmsType string, credentials map[string]string) (*integrationdomain.Integration, error) {
	return nil, errors.New("not implemented")
}

func (s stubAdapters) List(ctx context.Context) ([]*integrationdomain.Integration, error) {
	return nil, errors.New("not implemented")
}

func (s stubAdapters) GetByID(ctx context.Context, id snowflake.ID) (*integrationdomain.Integration, error) {
	return nil, errors.New("not implemented")
}

func (s stubAdapters) Disconnect(ctx context.Context, id snowflake.ID) error {
	return errors.New("not implemented")
}

func (s stubAdapters) SyncProperties(ctx context.Context, id snowflake.ID) ([]integrationdomain.PropertyPreview, error) {
	return nil, errors.New("not implemented")
}

func (s stubAdapters) ImportProperties(ctx context.Context, id snowflake.ID, pmsIDs []string) (*integrationdomain.ImportResult, error) {
	return nil, errors.New("not implemented")
}

func (s stubAdapters) AdapterFor(ctx context.Context, integration *integrationdomain.Integration) (pmsdomain.Adapter, error) {
	return s.adapter, nil
}

type syncFixture struct {
	db          *gorm.DB
	svc         *Service
	adapter     *mockAdapter
	clk         *clock.Fake
	node        *snowflake.Node
	ownerID     snowflake.ID
	integration *integrationdomain.Integration
	property    *propertydomain.Property
	ctx         context.Context
}

func newFixture(t *testing.T) *syncFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&integrationdomain.Integration{},
		&propertydomain.Property{},
		&overridedomain.PriceOverride{},
		&reservationdomain.Reservation{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ownerID := node.Generate()

	adapter := &mockAdapter{}
	clk := clock.NewFake(time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        clk,
		GenID:        node,
		Integrations: integrationrepo.Provide(),
		Adapters:     stubAdapters{adapter: adapter},
		Properties:   propertyrepo.Provide(),
		Overrides:    overriderepo.Provide(),
		Reservations: reservationrepo.Provide(),
	}).(*Service)
	svc.newBackoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, retryMaxAttempts-1)
	}

	integration := &integrationdomain.Integration{
		ID:          node.Generate(),
		OwnerID:     ownerID,
		PMSType:     "hostaway",
		Credentials: []byte("sealed"),
		Status:      integrationdomain.StatusConnected,
		Enabled:     true,
	}
	require.NoError(t, db.Create(integration).Error)

	pmsID := "hp-1"
	property := &propertydomain.Property{
		ID:       node.Generate(),
		OwnerID:  ownerID,
		Name:     "Harbor House",
		Status:   propertydomain.StatusActive,
		Currency: "EUR",
		Timezone: "UTC",
		PMSType:  "hostaway",
		PMSID:    &pmsID,
	}
	require.NoError(t, db.Create(property).Error)

	return &syncFixture{
		db:          db,
		svc:         svc,
		adapter:     adapter,
		clk:         clk,
		node:        node,
		ownerID:     ownerID,
		integration: integration,
		property:    property,
		ctx:         ownerctx.WithOwnerID(context.Background(), ownerID),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPullCreatesAndUpdatesReservations(t *testing.T) {
	f := newFixture(t)
	f.adapter.reservations = []pmsdomain.NormalizedReservation{
		{PMSID: "r-1", PropertyPMSID: "hp-1", StartDate: day(2026, 7, 10), EndDate: day(2026, 7, 13), TotalPrice: 300, Channel: "airbnb", Status: "confirmed"},
		{PMSID: "r-2", PropertyPMSID: "hp-1", StartDate: day(2026, 7, 20), EndDate: day(2026, 7, 22), TotalPrice: 180, Channel: "direct", Status: "pending"},
	}

	summary, err := f.svc.Pull(f.ctx, f.integration.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 0, summary.Cancelled)

	// Same payload again: pure update, nothing new.
	summary, err = f.svc.Pull(f.ctx, f.integration.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 2, summary.Updated)

	var count int64
	require.NoError(t, f.db.Model(&reservationdomain.Reservation{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestPullCancelsAbsentReservations(t *testing.T) {
	f := newFixture(t)
	f.adapter.reservations = []pmsdomain.NormalizedReservation{
		{PMSID: "r-1", PropertyPMSID: "hp-1", StartDate: day(2026, 7, 10), EndDate: day(2026, 7, 13), Status: "confirmed"},
		{PMSID: "r-2", PropertyPMSID: "hp-1", StartDate: day(2026, 7, 20), EndDate: day(2026, 7, 22), Status: "confirmed"},
	}
	_, err := f.svc.Pull(f.ctx, f.integration.ID)
	require.NoError(t, err)

	f.adapter.reservations = f.adapter.reservations[:1]
	summary, err := f.svc.Pull(f.ctx, f.integration.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cancelled)

	var cancelled reservationdomain.Reservation
	require.NoError(t, f.db.First(&cancelled, "pms_id = ?", "r-2").Error)
	assert.Equal(t, reservationdomain.StatusCancelled, cancelled.Status)
}

func TestPullCountsUnmatchedListings(t *testing.T) {
	f := newFixture(t)
	f.adapter.reservations = []pmsdomain.NormalizedReservation{
		{PMSID: "r-9", PropertyPMSID: "unknown-listing", StartDate: day(2026, 7, 10), EndDate: day(2026, 7, 11), Status: "confirmed"},
	}

	summary, err := f.svc.Pull(f.ctx, f.integration.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 0, summary.Created)
}

func TestPushSendsChangedRatesOnly(t *testing.T) {
	f := newFixture(t)

	stale := f.clk.Now().Add(-48 * time.Hour)
	fresh := f.clk.Now().Add(-1 * time.Hour)
	lastPush := f.clk.Now().Add(-24 * time.Hour)

	require.NoError(t, f.db.Create(&overridedomain.PriceOverride{
		PropertyID: f.property.ID, Date: day(2026, 7, 10), Price: 120, UpdatedAt: stale,
	}).Error)
	require.NoError(t, f.db.Create(&overridedomain.PriceOverride{
		PropertyID: f.property.ID, Date: day(2026, 7, 11), Price: 130, UpdatedAt: fresh,
	}).Error)
	require.NoError(t, f.db.Model(&integrationdomain.Integration{}).
		Where("id = ?", f.integration.ID).
		Update("last_push_at", lastPush).Error)

	summary, err := f.svc.Push(f.ctx, f.integration.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RatesPushed)
	assert.Equal(t, 0, summary.Failed)

	rates := f.adapter.batches["hp-1"]
	require.Len(t, rates, 1)
	assert.Equal(t, day(2026, 7, 11), rates[0].Date)
	assert.InDelta(t, 130.0, rates[0].Price, 0.001)

	var refreshed integrationdomain.Integration
	require.NoError(t, f.db.First(&refreshed, "id = ?", f.integration.ID).Error)
	require.NotNil(t, refreshed.LastPushAt)
	assert.True(t, refreshed.LastPushAt.After(lastPush))
}

func TestPushRetriesThenParksPropertyInError(t *testing.T) {
	f := newFixture(t)
	f.adapter.failBatches = retryMaxAttempts

	require.NoError(t, f.db.Create(&overridedomain.PriceOverride{
		PropertyID: f.property.ID, Date: day(2026, 7, 11), Price: 130, UpdatedAt: f.clk.Now(),
	}).Error)

	summary, err := f.svc.Push(f.ctx, f.integration.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, retryMaxAttempts, f.adapter.batchCalls)

	var property propertydomain.Property
	require.NoError(t, f.db.First(&property, "id = ?", f.property.ID).Error)
	assert.Equal(t, propertydomain.StatusError, property.Status)

	// The parked property is skipped on the next run.
	f.adapter.batchCalls = 0
	summary, err = f.svc.Push(f.ctx, f.integration.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Properties)
	assert.Equal(t, 0, f.adapter.batchCalls)
}

func TestPushRecoversWithinRetryBudget(t *testing.T) {
	f := newFixture(t)
	f.adapter.failBatches = retryMaxAttempts - 1

	require.NoError(t, f.db.Create(&overridedomain.PriceOverride{
		PropertyID: f.property.ID, Date: day(2026, 7, 11), Price: 130, UpdatedAt: f.clk.Now(),
	}).Error)

	summary, err := f.svc.Push(f.ctx, f.integration.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.RatesPushed)
	assert.Equal(t, retryMaxAttempts, f.adapter.batchCalls)
}

func TestDefaultBackoffKeepsJitter(t *testing.T) {
	// Retries against a rate-limiting provider must not fire in lockstep
	// across instances: the first wait stays within the jittered band
	// around the 30s initial interval.
	b := defaultBackoff()
	first := b.NextBackOff()
	require.NotEqual(t, backoff.Stop, first)
	assert.GreaterOrEqual(t, first, 15*time.Second)
	assert.LessOrEqual(t, first, 45*time.Second)
}

func TestResolveRejectsDisabledIntegration(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&integrationdomain.Integration{}).
		Where("id = ?", f.integration.ID).
		Update("enabled", false).Error)

	_, err := f.svc.Pull(f.ctx, f.integration.ID)
	assert.ErrorIs(t, err, integrationdomain.ErrDisabled)
}

func TestPushSettingsMirrorsRules(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&propertydomain.Property{}).
		Where("id = ?", f.property.ID).
		Updates(map[string]interface{}{
			"base_price":           140.0,
			"min_stay":             2,
			"max_stay":             0,
			"weekly_discount_pct":  10,
			"monthly_discount_pct": 20,
		}).Error)

	require.NoError(t, f.svc.PushSettings(f.ctx, f.property.ID))

	settings, ok := f.adapter.settings["hp-1"]
	require.True(t, ok)
	require.NotNil(t, settings.BasePrice)
	assert.Equal(t, 140.0, *settings.BasePrice)
	require.NotNil(t, settings.MinStay)
	assert.Equal(t, 2, *settings.MinStay)
	assert.Nil(t, settings.MaxStay, "unset max stay is not pushed")
	require.NotNil(t, settings.WeeklyDiscountPct)
	assert.Equal(t, 10, *settings.WeeklyDiscountPct)
	require.NotNil(t, settings.MonthlyDiscountPct)
	assert.Equal(t, 20, *settings.MonthlyDiscountPct)
}

func TestPushSettingsSkipsUnlinkedProperty(t *testing.T) {
	f := newFixture(t)
	unlinked := &propertydomain.Property{
		ID:       f.node.Generate(),
		OwnerID:  f.ownerID,
		Name:     "Manual Flat",
		Status:   propertydomain.StatusActive,
		Currency: "EUR",
		Timezone: "UTC",
	}
	require.NoError(t, f.db.Create(unlinked).Error)

	require.NoError(t, f.svc.PushSettings(f.ctx, unlinked.ID))
	assert.Empty(t, f.adapter.settings)
}

var _ syncdomain.Service = (*Service)(nil)
