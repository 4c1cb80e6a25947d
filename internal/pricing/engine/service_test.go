package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	aidomain "github.com/hostwise/nightly/internal/ai/domain"
	"github.com/hostwise/nightly/internal/clock"
	"github.com/hostwise/nightly/internal/config"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	grouprepo "github.com/hostwise/nightly/internal/group/repository"
	signaldomain "github.com/hostwise/nightly/internal/marketsignal/domain"
	overridedomain "github.com/hostwise/nightly/internal/override/domain"
	overriderepo "github.com/hostwise/nightly/internal/override/repository"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	ownerrepo "github.com/hostwise/nightly/internal/owner/repository"
	"github.com/hostwise/nightly/internal/ownerctx"
	"github.com/hostwise/nightly/internal/pricing/guardrail"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	propertyrepo "github.com/hostwise/nightly/internal/property/repository"
	reservationdomain "github.com/hostwise/nightly/internal/reservation/domain"
	reservationrepo "github.com/hostwise/nightly/internal/reservation/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubAI struct {
	suggestion aidomain.Suggestion
	err        error
	calls      int
}

func (s *stubAI) SuggestPrice(ctx context.Context, req aidomain.SuggestPriceRequest) (aidomain.Suggestion, error) {
	s.calls++
	if s.err != nil {
		return aidomain.Suggestion{}, s.err
	}
	return s.suggestion, nil
}

func (s *stubAI) AnalyzeDate(ctx context.Context, req aidomain.AnalyzeDateRequest) ([]byte, error) {
	return nil, aidomain.ErrProviderUnavailable
}

func (s *stubAI) Quota(ctx context.Context) (aidomain.QuotaStatus, error) {
	return aidomain.QuotaStatus{}, nil
}

type stubSignals struct{}

func (stubSignals) GetNews(ctx context.Context, language string) (signaldomain.Signal, error) {
	return signaldomain.Signal{}, signaldomain.ErrNotReady
}

func (stubSignals) GetAnalysis(ctx context.Context, propertyID snowflake.ID, date time.Time, language string) (signaldomain.Signal, error) {
	return signaldomain.Signal{Payload: json.RawMessage(`{"demand":"medium"}`)}, nil
}

func (stubSignals) RefreshAnalysis(ctx context.Context, propertyID snowflake.ID, date time.Time, language string) (signaldomain.Signal, error) {
	return signaldomain.Signal{}, signaldomain.ErrNotReady
}

type engineFixture struct {
	db      *gorm.DB
	svc     Service
	ai      *stubAI
	clk     *clock.Fake
	node    *snowflake.Node
	ownerID snowflake.ID
	ctx     context.Context
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&ownerdomain.Owner{},
		&propertydomain.Property{},
		&propertydomain.PropertyLog{},
		&groupdomain.Group{},
		&groupdomain.Membership{},
		&overridedomain.PriceOverride{},
		&reservationdomain.Reservation{},
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

	clk := clock.NewFake(time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC))
	ai := &stubAI{}

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        clk,
		Pricing:      config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()),
		Owners:       ownerrepo.Provide(),
		Properties:   propertyrepo.Provide(),
		Logs:         propertyrepo.ProvideLogs(),
		Groups:       grouprepo.Provide(),
		Overrides:    overriderepo.Provide(),
		Reservations: reservationrepo.Provide(),
		AI:           ai,
		Signals:      stubSignals{},
	})

	return &engineFixture{
		db:      db,
		svc:     svc,
		ai:      ai,
		clk:     clk,
		node:    node,
		ownerID: owner.ID,
		ctx:     ownerctx.WithOwnerID(context.Background(), owner.ID),
	}
}

func (f *engineFixture) createProperty(t *testing.T, mutate func(*propertydomain.Property)) *propertydomain.Property {
	t.Helper()

	property := &propertydomain.Property{
		ID:           f.node.Generate(),
		OwnerID:      f.ownerID,
		Name:         "Seaside Flat",
		Location:     "Lisbon",
		Status:       propertydomain.StatusActive,
		Currency:     "EUR",
		Timezone:     "UTC",
		Tier:         propertydomain.TierBalanced,
		BasePrice:    100,
		FloorPrice:   80,
		CeilingPrice: 150,
		MinStay:      1,
		PropertyType: "apartment",
		Capacity:     4,
		Bedrooms:     2,
	}
	if mutate != nil {
		mutate(property)
	}
	require.NoError(t, f.db.Create(property).Error)
	return property
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRunHeuristicEmptyCalendar(t *testing.T) {
	f := newFixture(t)
	property := f.createProperty(t, nil)

	// Mon..Wed, no reservations: low occupancy discounts the base price.
	summary, err := f.svc.Run(f.ctx, RunRequest{
		PropertyID: property.ID,
		StartDate:  date(2026, 6, 1),
		EndDate:    date(2026, 6, 3),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Decided)
	assert.Equal(t, 0, summary.SkippedLocked)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Decisions, 3)

	for i, decision := range summary.Decisions {
		assert.Equal(t, date(2026, 6, 1+i), decision.Date, "decisions in ascending date order")
		assert.Equal(t, SourceHeuristic, decision.Source)
		assert.Equal(t, guardrail.ReasonValid, decision.Reason)
		assert.InDelta(t, 90.0, decision.Price, 0.001)
	}

	var overrides []overridedomain.PriceOverride
	require.NoError(t, f.db.Where("property_id = ?", property.ID).Find(&overrides).Error)
	assert.Len(t, overrides, 3)
	for _, o := range overrides {
		assert.False(t, o.IsLocked)
		assert.Equal(t, SourceHeuristic, o.Reason)
		assert.Equal(t, propertydomain.ActorSystem, o.UpdatedBy)
	}

	var logs int64
	require.NoError(t, f.db.Model(&propertydomain.PropertyLog{}).
		Where("property_id = ? AND action = ?", property.ID, "pricing.decision").
		Count(&logs).Error)
	assert.EqualValues(t, 3, logs)
}

func TestRunLockedOverrideUntouched(t *testing.T) {
	f := newFixture(t)
	property := f.createProperty(t, nil)

	locked := &overridedomain.PriceOverride{
		PropertyID: property.ID,
		Date:       date(2026, 6, 2),
		Price:      999,
		IsLocked:   true,
		UpdatedBy:  "owner",
	}
	require.NoError(t, f.db.Create(locked).Error)

	summary, err := f.svc.Run(f.ctx, RunRequest{
		PropertyID: property.ID,
		StartDate:  date(2026, 6, 1),
		EndDate:    date(2026, 6, 3),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Decided)
	assert.Equal(t, 1, summary.SkippedLocked)

	var lockedDecision *Decision
	for i := range summary.Decisions {
		if summary.Decisions[i].Locked {
			lockedDecision = &summary.Decisions[i]
		}
	}
	require.NotNil(t, lockedDecision)
	assert.Equal(t, SourceOverride, lockedDecision.Source)
	assert.InDelta(t, 999.0, lockedDecision.Price, 0.001)

	var row overridedomain.PriceOverride
	require.NoError(t, f.db.Where("property_id = ? AND date = ?", property.ID, date(2026, 6, 2)).
		First(&row).Error)
	assert.True(t, row.IsLocked)
	assert.InDelta(t, 999.0, row.Price, 0.001)
}

func TestRunCeilingClampsWeekendMarkup(t *testing.T) {
	f := newFixture(t)
	property := f.createProperty(t, func(p *propertydomain.Property) {
		p.CeilingPrice = 200
		p.WeekendMarkupPct = 100
	})

	// Fully booked window pushes the heuristic up before the markup.
	require.NoError(t, f.db.Create(&reservationdomain.Reservation{
		ID:         f.node.Generate(),
		OwnerID:    f.ownerID,
		PropertyID: property.ID,
		StartDate:  date(2026, 5, 1),
		EndDate:    date(2026, 8, 1),
		Status:     reservationdomain.StatusConfirmed,
	}).Error)

	// 2026-06-06 is a Saturday: 115 heuristic, doubled, clamped to ceiling.
	summary, err := f.svc.Run(f.ctx, RunRequest{
		PropertyID: property.ID,
		StartDate:  date(2026, 6, 6),
		EndDate:    date(2026, 6, 6),
	})
	require.NoError(t, err)
	require.Len(t, summary.Decisions, 1)

	decision := summary.Decisions[0]
	assert.Equal(t, guardrail.ReasonAboveMaxLimit, decision.Reason)
	assert.InDelta(t, 200.0, decision.Price, 0.001)
}

func TestRunUsesAISuggestion(t *testing.T) {
	f := newFixture(t)
	property := f.createProperty(t, nil)
	f.ai.suggestion = aidomain.Suggestion{Price: 140, Rationale: "festival weekend"}

	summary, err := f.svc.Run(f.ctx, RunRequest{
		PropertyID: property.ID,
		StartDate:  date(2026, 6, 1),
		EndDate:    date(2026, 6, 1),
		UseAI:      true,
	})
	require.NoError(t, err)
	require.Len(t, summary.Decisions, 1)

	assert.Equal(t, SourceAI, summary.Decisions[0].Source)
	assert.Equal(t, guardrail.ReasonValid, summary.Decisions[0].Reason)
	assert.InDelta(t, 140.0, summary.Decisions[0].Price, 0.001)
	assert.Equal(t, 1, f.ai.calls)
}

func TestRunFallsBackWhenAIFails(t *testing.T) {
	f := newFixture(t)
	property := f.createProperty(t, nil)
	f.ai.err = aidomain.ErrQuotaExceeded

	summary, err := f.svc.Run(f.ctx, RunRequest{
		PropertyID: property.ID,
		StartDate:  date(2026, 6, 1),
		EndDate:    date(2026, 6, 1),
		UseAI:      true,
	})
	require.NoError(t, err)
	require.Len(t, summary.Decisions, 1)

	assert.Equal(t, SourceHeuristic, summary.Decisions[0].Source)
	assert.InDelta(t, 90.0, summary.Decisions[0].Price, 0.001)
	assert.Zero(t, summary.Failed, "a provider failure is not a date failure")
}

func TestRunSyncGroupUsesMainStrategy(t *testing.T) {
	f := newFixture(t)
	main := f.createProperty(t, func(p *propertydomain.Property) {
		p.Name = "Main Unit"
		p.BasePrice = 200
		p.FloorPrice = 150
		p.CeilingPrice = 300
	})
	member := f.createProperty(t, func(p *propertydomain.Property) {
		p.Name = "Twin Unit"
		p.BasePrice = 50
		p.FloorPrice = 40
		p.CeilingPrice = 60
	})

	mainID := main.ID
	group := &groupdomain.Group{
		ID:             f.node.Generate(),
		OwnerID:        f.ownerID,
		Name:           "Duplex",
		MainPropertyID: &mainID,
		SyncPrices:     true,
		Tier:           propertydomain.TierBalanced,
		BasePrice:      120,
		FloorPrice:     100,
		CeilingPrice:   180,
	}
	require.NoError(t, f.db.Create(group).Error)
	require.NoError(t, f.db.Create(&groupdomain.Membership{GroupID: group.ID, PropertyID: main.ID, Position: 1}).Error)
	require.NoError(t, f.db.Create(&groupdomain.Membership{GroupID: group.ID, PropertyID: member.ID, Position: 2}).Error)

	summary, err := f.svc.Run(f.ctx, RunRequest{
		PropertyID: member.ID,
		StartDate:  date(2026, 6, 1),
		EndDate:    date(2026, 6, 1),
	})
	require.NoError(t, err)
	require.Len(t, summary.Decisions, 1)

	// 200 base discounted 10 percent for the empty calendar.
	assert.InDelta(t, 180.0, summary.Decisions[0].Price, 0.001)
}

func TestRunSecondRunLeavesRowsUntouched(t *testing.T) {
	f := newFixture(t)
	property := f.createProperty(t, nil)

	first, err := f.svc.Run(f.ctx, RunRequest{
		PropertyID: property.ID,
		StartDate:  date(2026, 6, 1),
		EndDate:    date(2026, 6, 3),
	})
	require.NoError(t, err)
	require.Equal(t, 3, first.Decided)

	firstRun := f.clk.Now()
	f.clk.Advance(2 * time.Hour)

	second, err := f.svc.Run(f.ctx, RunRequest{
		PropertyID: property.ID,
		StartDate:  date(2026, 6, 1),
		EndDate:    date(2026, 6, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, first.Decisions, second.Decisions)

	// Untouched rows stay behind any push watermark taken after the first
	// run, so nothing is re-pushed.
	var overrides []overridedomain.PriceOverride
	require.NoError(t, f.db.Where("property_id = ?", property.ID).Find(&overrides).Error)
	require.Len(t, overrides, 3)
	for _, o := range overrides {
		assert.False(t, o.UpdatedAt.After(firstRun),
			"unchanged decision must not bump updated_at")
	}

	var logs int64
	require.NoError(t, f.db.Model(&propertydomain.PropertyLog{}).
		Where("property_id = ?", property.ID).Count(&logs).Error)
	assert.EqualValues(t, 3, logs, "no duplicate audit entries on an unchanged run")
}

func TestRunSyncedMemberCopiesMainRate(t *testing.T) {
	f := newFixture(t)
	main := f.createProperty(t, func(p *propertydomain.Property) {
		p.Name = "Main Unit"
	})
	member := f.createProperty(t, func(p *propertydomain.Property) {
		p.Name = "Twin Unit"
	})

	mainID := main.ID
	group := &groupdomain.Group{
		ID:             f.node.Generate(),
		OwnerID:        f.ownerID,
		Name:           "Duplex",
		MainPropertyID: &mainID,
		SyncPrices:     true,
		Tier:           propertydomain.TierBalanced,
	}
	require.NoError(t, f.db.Create(group).Error)
	require.NoError(t, f.db.Create(&groupdomain.Membership{GroupID: group.ID, PropertyID: main.ID, Position: 1}).Error)
	require.NoError(t, f.db.Create(&groupdomain.Membership{GroupID: group.ID, PropertyID: member.ID, Position: 2}).Error)

	// Main fully booked, member empty: on their own they would price 115
	// and 90. The main's occupancy drives both.
	require.NoError(t, f.db.Create(&reservationdomain.Reservation{
		ID:         f.node.Generate(),
		OwnerID:    f.ownerID,
		PropertyID: main.ID,
		StartDate:  date(2026, 5, 1),
		EndDate:    date(2026, 8, 1),
		Status:     reservationdomain.StatusConfirmed,
	}).Error)

	mainSummary, err := f.svc.Run(f.ctx, RunRequest{
		PropertyID: main.ID,
		StartDate:  date(2026, 6, 1),
		EndDate:    date(2026, 6, 1),
	})
	require.NoError(t, err)
	require.Len(t, mainSummary.Decisions, 1)
	assert.InDelta(t, 115.0, mainSummary.Decisions[0].Price, 0.001)

	memberSummary, err := f.svc.Run(f.ctx, RunRequest{
		PropertyID: member.ID,
		StartDate:  date(2026, 6, 1),
		EndDate:    date(2026, 6, 1),
	})
	require.NoError(t, err)
	require.Len(t, memberSummary.Decisions, 1)
	assert.InDelta(t, mainSummary.Decisions[0].Price, memberSummary.Decisions[0].Price, 0.001)

	var row overridedomain.PriceOverride
	require.NoError(t, f.db.Where("property_id = ? AND date = ?", member.ID, date(2026, 6, 1)).
		First(&row).Error)
	assert.InDelta(t, 115.0, row.Price, 0.001)
}

func TestRunOwnerPricesMainsFirst(t *testing.T) {
	f := newFixture(t)
	// Member created before the main so listing order alone would price it
	// off a cold row.
	member := f.createProperty(t, func(p *propertydomain.Property) { p.Name = "Twin Unit" })
	main := f.createProperty(t, func(p *propertydomain.Property) { p.Name = "Main Unit" })

	mainID := main.ID
	group := &groupdomain.Group{
		ID:             f.node.Generate(),
		OwnerID:        f.ownerID,
		Name:           "Duplex",
		MainPropertyID: &mainID,
		SyncPrices:     true,
		Tier:           propertydomain.TierBalanced,
	}
	require.NoError(t, f.db.Create(group).Error)
	require.NoError(t, f.db.Create(&groupdomain.Membership{GroupID: group.ID, PropertyID: main.ID, Position: 1}).Error)
	require.NoError(t, f.db.Create(&groupdomain.Membership{GroupID: group.ID, PropertyID: member.ID, Position: 2}).Error)

	require.NoError(t, f.db.Create(&reservationdomain.Reservation{
		ID:         f.node.Generate(),
		OwnerID:    f.ownerID,
		PropertyID: main.ID,
		StartDate:  date(2026, 5, 1),
		EndDate:    date(2026, 8, 1),
		Status:     reservationdomain.StatusConfirmed,
	}).Error)

	summaries, err := f.svc.RunOwner(f.ctx, date(2026, 6, 1), date(2026, 6, 1), false)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, main.ID, summaries[0].PropertyID, "main property decides first")
	require.Len(t, summaries[0].Decisions, 1)
	require.Len(t, summaries[1].Decisions, 1)
	assert.InDelta(t, summaries[0].Decisions[0].Price, summaries[1].Decisions[0].Price, 0.001)
}

func TestRunRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	property := f.createProperty(t, nil)

	_, err := f.svc.Run(f.ctx, RunRequest{
		PropertyID: property.ID,
		StartDate:  date(2026, 6, 3),
		EndDate:    date(2026, 6, 1),
	})
	assert.ErrorIs(t, err, ErrInvalidRange)

	archived := f.createProperty(t, func(p *propertydomain.Property) {
		p.Status = propertydomain.StatusArchived
	})
	_, err = f.svc.Run(f.ctx, RunRequest{
		PropertyID: archived.ID,
		StartDate:  date(2026, 6, 1),
		EndDate:    date(2026, 6, 1),
	})
	assert.ErrorIs(t, err, ErrPropertyInactive)

	_, err = f.svc.Run(context.Background(), RunRequest{
		PropertyID: property.ID,
		StartDate:  date(2026, 6, 1),
		EndDate:    date(2026, 6, 1),
	})
	assert.ErrorIs(t, err, propertydomain.ErrInvalidOwner)
}

func TestRunOwnerSkipsInactive(t *testing.T) {
	f := newFixture(t)
	f.createProperty(t, nil)
	f.createProperty(t, func(p *propertydomain.Property) {
		p.Name = "Mothballed"
		p.Status = propertydomain.StatusArchived
	})

	summaries, err := f.svc.RunOwner(f.ctx, date(2026, 6, 1), date(2026, 6, 2), false)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].Decided)
}
