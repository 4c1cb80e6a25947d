package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	aidomain "github.com/hostwise/nightly/internal/ai/domain"
	"github.com/hostwise/nightly/internal/clock"
	"github.com/hostwise/nightly/internal/config"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	signaldomain "github.com/hostwise/nightly/internal/marketsignal/domain"
	"github.com/hostwise/nightly/internal/observability/metrics"
	overridedomain "github.com/hostwise/nightly/internal/override/domain"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	"github.com/hostwise/nightly/internal/ownerctx"
	"github.com/hostwise/nightly/internal/pricing/guardrail"
	"github.com/hostwise/nightly/internal/pricing/rules"
	"github.com/hostwise/nightly/internal/pricing/strategy"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	reservationdomain "github.com/hostwise/nightly/internal/reservation/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Pricing      *config.PricingConfigHolder
	Owners       ownerdomain.Repository
	Properties   propertydomain.Repository
	Logs         propertydomain.LogRepository
	Groups       groupdomain.Repository
	Overrides    overridedomain.Repository
	Reservations reservationdomain.Repository
	AI           aidomain.Service
	Signals      signaldomain.Service
	Metrics      *metrics.DomainMetrics `optional:"true"`
}

type service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	pricing      *config.PricingConfigHolder
	owners       ownerdomain.Repository
	properties   propertydomain.Repository
	logs         propertydomain.LogRepository
	groups       groupdomain.Repository
	overrides    overridedomain.Repository
	reservations reservationdomain.Repository
	ai           aidomain.Service
	signals      signaldomain.Service
	metrics      *metrics.DomainMetrics
}

func New(p Params) Service {
	return &service{
		db:           p.DB,
		log:          p.Log.Named("pricing.engine"),
		clock:        p.Clock,
		pricing:      p.Pricing,
		owners:       p.Owners,
		properties:   p.Properties,
		logs:         p.Logs,
		groups:       p.Groups,
		overrides:    p.Overrides,
		reservations: p.Reservations,
		ai:           p.AI,
		signals:      p.Signals,
		metrics:      p.Metrics,
	}
}

// envelope is the per-run pricing context, resolved once per property.
type envelope struct {
	property *propertydomain.Property
	main     *propertydomain.Property
	synced   bool
	resolved strategy.Resolved
	ruleSet  rules.RuleSet
	loc      *time.Location
	language string
	occupied map[string]bool
	cfg      config.PricingConfig
	useAI    bool
}

func (s *service) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	started := s.clock.Now()
	summary, err := s.run(ctx, req)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.ObservePricingRun(outcome, s.clock.Now().Sub(started),
			summary.Decided, summary.SkippedLocked, summary.Failed)
	}
	return summary, err
}

func (s *service) run(ctx context.Context, req RunRequest) (RunSummary, error) {
	summary := RunSummary{PropertyID: req.PropertyID}

	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return summary, propertydomain.ErrInvalidOwner
	}

	start := dateOnly(req.StartDate)
	end := dateOnly(req.EndDate)
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return summary, ErrInvalidRange
	}

	property, err := s.properties.FindByID(ctx, s.db, ownerID, req.PropertyID)
	if err != nil {
		return summary, err
	}
	if property == nil {
		return summary, propertydomain.ErrNotFound
	}
	if property.Status != propertydomain.StatusActive {
		return summary, fmt.Errorf("%w: %s", ErrPropertyInactive, property.Status)
	}

	env, err := s.buildEnvelope(ctx, ownerID, property, start, end, req.UseAI)
	if err != nil {
		return summary, err
	}

	existing, err := s.overrides.ListRange(ctx, s.db, property.ID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return summary, err
	}
	byDate := make(map[string]*overridedomain.PriceOverride, len(existing))
	for _, o := range existing {
		byDate[dateOnly(o.Date).Format(dateLayout)] = o
	}

	// A synced member copies the main property's decision instead of
	// computing its own.
	var mainEnv *envelope
	var mainByDate map[string]*overridedomain.PriceOverride
	if env.synced {
		mainEnv, err = s.buildEnvelope(ctx, ownerID, env.main, start, end, req.UseAI)
		if err != nil {
			return summary, err
		}
		mainExisting, err := s.overrides.ListRange(ctx, s.db, env.main.ID, start, end.AddDate(0, 0, 1))
		if err != nil {
			return summary, err
		}
		mainByDate = make(map[string]*overridedomain.PriceOverride, len(mainExisting))
		for _, o := range mainExisting {
			mainByDate[dateOnly(o.Date).Format(dateLayout)] = o
		}
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		if o := byDate[key]; o != nil && o.IsLocked {
			summary.Decisions = append(summary.Decisions, Decision{
				Date:   d,
				Price:  o.Price,
				Source: SourceOverride,
				Reason: guardrail.ReasonValid,
				Locked: true,
			})
			summary.SkippedLocked++
			continue
		}

		var decision Decision
		var err error
		if env.synced {
			decision, err = s.decideSyncedDate(ctx, env, mainEnv, mainByDate, d, byDate[key])
		} else {
			decision, err = s.decideDate(ctx, env, d, byDate[key])
		}
		if err != nil {
			summary.Failed++
			s.log.Warn("pricing.date_failed",
				zap.String("property_id", property.ID.String()),
				zap.String("date", key),
				zap.Error(err),
			)
			continue
		}
		summary.Decisions = append(summary.Decisions, decision)
		summary.Decided++
	}
	return summary, nil
}

func (s *service) RunOwner(ctx context.Context, start, end time.Time, useAI bool) ([]RunSummary, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return nil, propertydomain.ErrInvalidOwner
	}

	properties, err := s.properties.ListAll(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}

	// Mains of synced groups price first so members copy a fresh decision.
	groups, err := s.groups.List(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}
	mains := make(map[snowflake.ID]bool)
	for _, group := range groups {
		if group.SyncPrices && group.MainPropertyID != nil {
			mains[*group.MainPropertyID] = true
		}
	}
	ordered := make([]*propertydomain.Property, 0, len(properties))
	for _, property := range properties {
		if mains[property.ID] {
			ordered = append(ordered, property)
		}
	}
	for _, property := range properties {
		if !mains[property.ID] {
			ordered = append(ordered, property)
		}
	}

	summaries := make([]RunSummary, 0, len(properties))
	for _, property := range ordered {
		if property.Status != propertydomain.StatusActive {
			continue
		}
		summary, err := s.Run(ctx, RunRequest{
			PropertyID: property.ID,
			StartDate:  start,
			EndDate:    end,
			UseAI:      useAI,
		})
		if err != nil {
			s.log.Warn("pricing.property_failed",
				zap.String("property_id", property.ID.String()),
				zap.Error(err),
			)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *service) buildEnvelope(ctx context.Context, ownerID snowflake.ID, property *propertydomain.Property, start, end time.Time, useAI bool) (*envelope, error) {
	group, err := s.groups.FindByProperty(ctx, s.db, ownerID, property.ID)
	if err != nil {
		return nil, err
	}

	// A sync_prices group with a main property prices every member off the
	// main's envelope.
	var main *propertydomain.Property
	if group != nil && group.SyncPrices && group.MainPropertyID != nil && *group.MainPropertyID != property.ID {
		main, err = s.properties.FindByID(ctx, s.db, ownerID, *group.MainPropertyID)
		if err != nil {
			return nil, err
		}
	} else if group != nil && group.MainPropertyID != nil && *group.MainPropertyID == property.ID {
		main = property
	}

	language := "en"
	if owner, err := s.owners.FindByID(ctx, s.db, ownerID); err == nil && owner != nil && owner.Language != "" {
		language = owner.Language
	}

	cfg := s.pricing.Get()
	occupied, err := s.loadOccupancy(ctx, property.ID, start, end, cfg.OccupancyWindowDays)
	if err != nil {
		return nil, err
	}

	rv := property.RulesView()
	return &envelope{
		property: property,
		main:     main,
		synced:   main != nil && main.ID != property.ID,
		resolved: strategy.Resolve(*property, group, main),
		ruleSet: rules.RuleSet{
			MinStay:            rv.MinStay,
			MaxStay:            rv.MaxStay,
			WeeklyDiscountPct:  rv.WeeklyDiscountPct,
			MonthlyDiscountPct: rv.MonthlyDiscountPct,
			WeekendMarkupPct:   rv.WeekendMarkupPct,
		},
		loc:      property.TimeLocation(),
		language: language,
		occupied: occupied,
		cfg:      cfg,
		useAI:    useAI,
	}, nil
}

// loadOccupancy marks each night covered by a non-cancelled reservation in
// the run range padded by the occupancy window on both sides.
func (s *service) loadOccupancy(ctx context.Context, propertyID snowflake.ID, start, end time.Time, windowDays int) (map[string]bool, error) {
	from := start.AddDate(0, 0, -windowDays)
	to := end.AddDate(0, 0, windowDays)

	reservations, err := s.reservations.ListByPropertyRange(ctx, s.db, propertyID, from, to)
	if err != nil {
		return nil, err
	}

	occupied := make(map[string]bool)
	for _, r := range reservations {
		if r.Status == reservationdomain.StatusCancelled {
			continue
		}
		for night := dateOnly(r.StartDate); night.Before(dateOnly(r.EndDate)); night = night.AddDate(0, 0, 1) {
			occupied[night.Format(dateLayout)] = true
		}
	}
	return occupied, nil
}

func (s *service) decideDate(ctx context.Context, env *envelope, date time.Time, existing *overridedomain.PriceOverride) (Decision, error) {
	occupancy := env.occupancyAround(date)
	heuristic := heuristicCandidate(env.resolved.BasePrice, occupancy, env.cfg, env.resolved.Weight())

	candidate := heuristic
	source := SourceHeuristic
	if env.useAI {
		if price, ok := s.aiCandidate(ctx, env, date, heuristic); ok {
			candidate = price
			source = SourceAI
		}
	}

	outcome := rules.Apply(candidate, date, 0, env.loc, env.ruleSet)

	verdict := guardrail.Check(outcome.Price, guardrail.Context{
		BasePrice:       env.resolved.BasePrice,
		MinPrice:        env.resolved.FloorPrice,
		MaxPrice:        env.resolved.CeilingPrice,
		AllowOverride:   env.resolved.AllowOverride,
		SanityThreshold: env.cfg.SanityThreshold,
	})

	// An unchanged decision leaves the stored row alone so the push
	// watermark keeps treating it as already delivered.
	if existing != nil && !existing.IsLocked &&
		existing.Price == verdict.SafePrice && existing.Reason == source {
		return Decision{
			Date:   date,
			Price:  verdict.SafePrice,
			Source: source,
			Reason: verdict.Reason,
		}, nil
	}

	override := &overridedomain.PriceOverride{
		PropertyID: env.property.ID,
		Date:       date,
		Price:      verdict.SafePrice,
		IsLocked:   false,
		Reason:     source,
		UpdatedBy:  propertydomain.ActorSystem,
		UpdatedAt:  s.clock.Now(),
	}
	if err := s.overrides.Upsert(ctx, s.db, override, false); err != nil {
		return Decision{}, err
	}

	entry := &propertydomain.PropertyLog{
		ID:         ulid.Make().String(),
		PropertyID: env.property.ID,
		ActorType:  propertydomain.ActorSystem,
		Action:     "pricing.decision",
		Diff: datatypes.JSONMap{
			"date":      date.Format(dateLayout),
			"source":    source,
			"candidate": guardrail.Round2(outcome.Price),
			"reason":    string(verdict.Reason),
			"final":     verdict.SafePrice,
		},
		CreatedAt: s.clock.Now(),
	}
	if err := s.logs.Append(ctx, s.db, entry); err != nil {
		return Decision{}, err
	}

	return Decision{
		Date:   date,
		Price:  verdict.SafePrice,
		Source: source,
		Reason: verdict.Reason,
	}, nil
}

// decideSyncedDate copies the main property's decision to a synced member.
// The main's stored row is authoritative; when no row exists yet the main's
// decision is computed and persisted first.
func (s *service) decideSyncedDate(ctx context.Context, env, mainEnv *envelope, mainByDate map[string]*overridedomain.PriceOverride, date time.Time, existing *overridedomain.PriceOverride) (Decision, error) {
	var price float64
	source := SourceOverride
	reason := guardrail.ReasonValid

	if mo := mainByDate[date.Format(dateLayout)]; mo != nil {
		price = mo.Price
		if mo.Reason != "" {
			source = mo.Reason
		}
	} else {
		mainDecision, err := s.decideDate(ctx, mainEnv, date, nil)
		if err != nil {
			return Decision{}, err
		}
		price = mainDecision.Price
		source = mainDecision.Source
		reason = mainDecision.Reason
	}

	if existing != nil && !existing.IsLocked &&
		existing.Price == price && existing.Reason == source {
		return Decision{Date: date, Price: price, Source: source, Reason: reason}, nil
	}

	override := &overridedomain.PriceOverride{
		PropertyID: env.property.ID,
		Date:       date,
		Price:      price,
		IsLocked:   false,
		Reason:     source,
		UpdatedBy:  propertydomain.ActorSystem,
		UpdatedAt:  s.clock.Now(),
	}
	if err := s.overrides.Upsert(ctx, s.db, override, false); err != nil {
		return Decision{}, err
	}

	entry := &propertydomain.PropertyLog{
		ID:         ulid.Make().String(),
		PropertyID: env.property.ID,
		ActorType:  propertydomain.ActorSystem,
		Action:     "pricing.decision",
		Diff: datatypes.JSONMap{
			"date":        date.Format(dateLayout),
			"source":      source,
			"synced_from": env.main.ID.String(),
			"final":       price,
		},
		CreatedAt: s.clock.Now(),
	}
	if err := s.logs.Append(ctx, s.db, entry); err != nil {
		return Decision{}, err
	}

	return Decision{Date: date, Price: price, Source: source, Reason: reason}, nil
}

// aiCandidate asks the provider for a price, seeded with the heuristic and
// the cached market analysis. Any failure, quota exhaustion included, falls
// back to the heuristic.
func (s *service) aiCandidate(ctx context.Context, env *envelope, date time.Time, heuristic float64) (float64, bool) {
	var payload []byte
	if signal, err := s.signals.GetAnalysis(ctx, env.property.ID, date, env.language); err == nil {
		payload = signal.Payload
	}

	suggestion, err := s.ai.SuggestPrice(ctx, aidomain.SuggestPriceRequest{
		PropertyID:     env.property.ID,
		PropertyType:   env.property.PropertyType,
		Location:       env.property.Location,
		Capacity:       env.property.Capacity,
		Bedrooms:       env.property.Bedrooms,
		Currency:       env.property.Currency,
		Date:           date,
		BasePrice:      env.resolved.BasePrice,
		HeuristicPrice: heuristic,
		Signals:        payload,
	})
	if err != nil {
		s.log.Debug("pricing.ai_fallback",
			zap.String("property_id", env.property.ID.String()),
			zap.String("date", date.Format(dateLayout)),
			zap.Error(err),
		)
		return 0, false
	}
	return suggestion.Price, true
}

// occupancyAround measures booked nights in a window centered on date.
func (e *envelope) occupancyAround(date time.Time) float64 {
	window := e.cfg.OccupancyWindowDays
	if window <= 0 {
		return 0
	}
	start := date.AddDate(0, 0, -window/2)
	booked := 0
	for i := 0; i < window; i++ {
		if e.occupied[start.AddDate(0, 0, i).Format(dateLayout)] {
			booked++
		}
	}
	return float64(booked) / float64(window)
}

// heuristicCandidate adjusts the base price for local occupancy. The
// adjustment is scaled by the tier weight: cautious halves it, aggressive
// amplifies it by half.
func heuristicCandidate(base, occupancy float64, cfg config.PricingConfig, weight float64) float64 {
	var adjustment float64
	switch {
	case occupancy >= cfg.HighOccupancyPct:
		adjustment = cfg.HighOccupancyBoost
	case occupancy <= cfg.LowOccupancyPct:
		adjustment = -cfg.LowOccupancyDiscount
	default:
		t := (occupancy - cfg.LowOccupancyPct) / (cfg.HighOccupancyPct - cfg.LowOccupancyPct)
		adjustment = -cfg.LowOccupancyDiscount + t*(cfg.LowOccupancyDiscount+cfg.HighOccupancyBoost)
	}
	return base * (1 + adjustment*2*weight)
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
