package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v4"
	"github.com/hostwise/nightly/internal/clock"
	integrationdomain "github.com/hostwise/nightly/internal/integration/domain"
	"github.com/hostwise/nightly/internal/observability/metrics"
	overridedomain "github.com/hostwise/nightly/internal/override/domain"
	"github.com/hostwise/nightly/internal/ownerctx"
	pmsdomain "github.com/hostwise/nightly/internal/pms/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	"github.com/hostwise/nightly/internal/ratelimit"
	reservationdomain "github.com/hostwise/nightly/internal/reservation/domain"
	syncdomain "github.com/hostwise/nightly/internal/sync/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	pushWorkers = 4
	lockTTL     = 10 * time.Minute

	retryInitialInterval = 30 * time.Second
	retryMultiplier      = 2
	retryMaxAttempts     = 4
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	GenID        *snowflake.Node
	Locker       *ratelimit.Locker `optional:"true"`
	Integrations integrationdomain.Repository
	Adapters     integrationdomain.Service
	Properties   propertydomain.Repository
	Overrides    overridedomain.Repository
	Reservations reservationdomain.Repository
	Metrics      *metrics.DomainMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	genID        *snowflake.Node
	locker       *ratelimit.Locker
	integrations integrationdomain.Repository
	adapters     integrationdomain.Service
	properties   propertydomain.Repository
	overrides    overridedomain.Repository
	reservations reservationdomain.Repository
	metrics      *metrics.DomainMetrics

	// Replaced in tests to avoid real 30s retry waits.
	newBackoff func() backoff.BackOff
}

func New(p Params) syncdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("sync.service"),
		clock:        p.Clock,
		genID:        p.GenID,
		locker:       p.Locker,
		integrations: p.Integrations,
		adapters:     p.Adapters,
		properties:   p.Properties,
		overrides:    p.Overrides,
		reservations: p.Reservations,
		metrics:      p.Metrics,
		newBackoff:   defaultBackoff,
	}
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.Multiplier = retryMultiplier
	return backoff.WithMaxRetries(b, retryMaxAttempts-1)
}

func (s *Service) Pull(ctx context.Context, integrationID snowflake.ID) (syncdomain.PullSummary, error) {
	integration, err := s.resolve(ctx, integrationID)
	if err != nil {
		return syncdomain.PullSummary{}, err
	}
	return s.PullIntegration(ctx, integration)
}

func (s *Service) Push(ctx context.Context, integrationID snowflake.ID) (syncdomain.PushSummary, error) {
	integration, err := s.resolve(ctx, integrationID)
	if err != nil {
		return syncdomain.PushSummary{}, err
	}
	return s.PushIntegration(ctx, integration)
}

func (s *Service) PullAll(ctx context.Context) ([]syncdomain.PullSummary, error) {
	integrations, err := s.integrations.ListEnabled(ctx, s.db)
	if err != nil {
		return nil, err
	}

	summaries := make([]syncdomain.PullSummary, 0, len(integrations))
	for _, integration := range integrations {
		summary, err := s.PullIntegration(ctx, integration)
		if err != nil {
			s.log.Warn("sync.pull_failed",
				zap.String("integration_id", integration.ID.String()),
				zap.Error(err),
			)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *Service) PullIntegration(ctx context.Context, integration *integrationdomain.Integration) (syncdomain.PullSummary, error) {
	started := s.clock.Now()
	summary, err := s.pull(ctx, integration)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.ObserveSyncRun("pull", outcome, s.clock.Now().Sub(started))
	}
	return summary, err
}

func (s *Service) pull(ctx context.Context, integration *integrationdomain.Integration) (syncdomain.PullSummary, error) {
	summary := syncdomain.PullSummary{IntegrationID: integration.ID}

	release, err := s.acquire(ctx, integration)
	if err != nil {
		return summary, err
	}
	defer release()

	adapter, err := s.adapters.AdapterFor(ctx, integration)
	if err != nil {
		return summary, err
	}

	today := dateOnly(s.clock.Now())
	start := today.AddDate(0, 0, -syncdomain.PullWindowPastDays)
	end := today.AddDate(0, 0, syncdomain.PullWindowFutureDays)

	remote, err := adapter.ListReservations(ctx, start, end)
	if err != nil {
		return summary, err
	}

	seenByProperty := make(map[snowflake.ID]map[string]bool)
	propertyCache := make(map[string]*propertydomain.Property)

	for _, r := range remote {
		property, err := s.matchProperty(ctx, integration, propertyCache, r.PropertyPMSID)
		if err != nil {
			return summary, err
		}
		if property == nil {
			summary.Unmatched++
			continue
		}

		if seenByProperty[property.ID] == nil {
			seenByProperty[property.ID] = make(map[string]bool)
		}
		seenByProperty[property.ID][r.PMSID] = true

		created, err := s.upsertReservation(ctx, property, r)
		if err != nil {
			return summary, err
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}

	// Reservations gone from the PMS inside the window are cancellations.
	for propertyID, seen := range seenByProperty {
		active, err := s.reservations.ListActivePMSIDs(ctx, s.db, propertyID, start, end)
		if err != nil {
			return summary, err
		}
		var absent []string
		for _, pmsID := range active {
			if !seen[pmsID] {
				absent = append(absent, pmsID)
			}
		}
		if len(absent) > 0 {
			if err := s.reservations.MarkCancelledByPMSIDs(ctx, s.db, propertyID, absent); err != nil {
				return summary, err
			}
			summary.Cancelled += len(absent)
		}
	}

	if err := s.integrations.UpdateLastSync(ctx, s.db, integration.ID, s.clock.Now()); err != nil {
		s.log.Warn("sync.last_sync_update_failed", zap.Error(err))
	}
	return summary, nil
}

func (s *Service) matchProperty(ctx context.Context, integration *integrationdomain.Integration, cache map[string]*propertydomain.Property, pmsID string) (*propertydomain.Property, error) {
	if property, ok := cache[pmsID]; ok {
		return property, nil
	}
	property, err := s.properties.FindByPMSID(ctx, s.db, integration.OwnerID, integration.PMSType, pmsID)
	if err != nil {
		return nil, err
	}
	cache[pmsID] = property
	return property, nil
}

// upsertReservation applies one remote reservation, keyed on
// (property, pms_id). Re-applying the same payload is a no-op, so pulls are
// safe to repeat.
func (s *Service) upsertReservation(ctx context.Context, property *propertydomain.Property, r pmsdomain.NormalizedReservation) (bool, error) {
	existing, err := s.reservations.FindByPMSID(ctx, s.db, property.ID, r.PMSID)
	if err != nil {
		return false, err
	}

	status := parseStatus(r.Status)
	if existing == nil {
		pmsID := r.PMSID
		return true, s.reservations.Insert(ctx, s.db, &reservationdomain.Reservation{
			ID:            s.genID.Generate(),
			OwnerID:       property.OwnerID,
			PropertyID:    property.ID,
			PMSID:         &pmsID,
			StartDate:     dateOnly(r.StartDate),
			EndDate:       dateOnly(r.EndDate),
			TotalPrice:    r.TotalPrice,
			Channel:       r.Channel,
			Status:        status,
			PricingMethod: reservationdomain.PricingManual,
			CreatedAt:     s.clock.Now(),
			UpdatedAt:     s.clock.Now(),
		})
	}

	existing.StartDate = dateOnly(r.StartDate)
	existing.EndDate = dateOnly(r.EndDate)
	existing.TotalPrice = r.TotalPrice
	existing.Channel = r.Channel
	existing.Status = status
	existing.UpdatedAt = s.clock.Now()
	return false, s.reservations.Update(ctx, s.db, existing)
}

func (s *Service) PushIntegration(ctx context.Context, integration *integrationdomain.Integration) (syncdomain.PushSummary, error) {
	started := s.clock.Now()
	summary, err := s.push(ctx, integration)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.ObserveSyncRun("push", outcome, s.clock.Now().Sub(started))
	}
	return summary, err
}

func (s *Service) push(ctx context.Context, integration *integrationdomain.Integration) (syncdomain.PushSummary, error) {
	summary := syncdomain.PushSummary{IntegrationID: integration.ID}

	release, err := s.acquire(ctx, integration)
	if err != nil {
		return summary, err
	}
	defer release()

	adapter, err := s.adapters.AdapterFor(ctx, integration)
	if err != nil {
		return summary, err
	}

	properties, err := s.properties.ListAll(ctx, s.db, integration.OwnerID)
	if err != nil {
		return summary, err
	}

	runStart := s.clock.Now()
	today := dateOnly(runStart)
	horizon := today.AddDate(0, 0, syncdomain.PullWindowFutureDays+1)

	var mu sync.Mutex
	pool := pond.NewPool(pushWorkers)

	for _, property := range properties {
		if property.PMSType != integration.PMSType || property.PMSID == nil || *property.PMSID == "" {
			continue
		}
		// Properties in error state are excluded until an owner resets them.
		if property.Status != propertydomain.StatusActive {
			continue
		}

		pool.Submit(func() {
			pushed, err := s.pushProperty(ctx, adapter, integration, property, today, horizon)
			mu.Lock()
			defer mu.Unlock()
			summary.Properties++
			if err != nil {
				summary.Failed++
			} else {
				summary.RatesPushed += pushed
			}
		})
	}
	pool.StopAndWait()

	if summary.Failed == 0 {
		if err := s.integrations.UpdateLastPush(ctx, s.db, integration.ID, runStart); err != nil {
			s.log.Warn("sync.last_push_update_failed", zap.Error(err))
		}
	}
	return summary, nil
}

// pushProperty sends the property's changed rates in one batch, retrying
// with exponential backoff. Exhausted retries park the property in error
// state so later runs skip it.
func (s *Service) pushProperty(ctx context.Context, adapter pmsdomain.Adapter, integration *integrationdomain.Integration, property *propertydomain.Property, today, horizon time.Time) (int, error) {
	overrides, err := s.overrides.ListRange(ctx, s.db, property.ID, today, horizon)
	if err != nil {
		return 0, err
	}

	rates := make([]pmsdomain.RateUpdate, 0, len(overrides))
	for _, o := range overrides {
		if integration.LastPushAt != nil && !o.UpdatedAt.After(*integration.LastPushAt) {
			continue
		}
		rates = append(rates, pmsdomain.RateUpdate{Date: dateOnly(o.Date), Price: o.Price})
	}
	if len(rates) == 0 {
		return 0, nil
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Date.Before(rates[j].Date) })

	operation := func() error {
		return adapter.UpdateRatesBatch(ctx, *property.PMSID, rates)
	}
	if err := backoff.Retry(operation, backoff.WithContext(s.newBackoff(), ctx)); err != nil {
		s.observeBatch("error")
		s.log.Error("sync.push_exhausted",
			zap.String("property_id", property.ID.String()),
			zap.Int("rates", len(rates)),
			zap.Error(err),
		)
		if statusErr := s.properties.UpdateStatus(ctx, s.db, property.OwnerID, property.ID, propertydomain.StatusError); statusErr != nil {
			s.log.Warn("sync.status_update_failed", zap.Error(statusErr))
		}
		return 0, err
	}

	s.observeBatch("ok")
	return len(rates), nil
}

func (s *Service) PushSettings(ctx context.Context, propertyID snowflake.ID) error {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return integrationdomain.ErrInvalidOwner
	}

	property, err := s.properties.FindByID(ctx, s.db, ownerID, propertyID)
	if err != nil {
		return err
	}
	if property == nil {
		return propertydomain.ErrNotFound
	}
	if property.PMSID == nil || *property.PMSID == "" || property.PMSType == "" {
		return nil
	}

	integration, err := s.integrations.FindByType(ctx, s.db, ownerID, property.PMSType)
	if err != nil {
		return err
	}
	if integration == nil || !integration.Enabled {
		return nil
	}

	adapter, err := s.adapters.AdapterFor(ctx, integration)
	if err != nil {
		return err
	}

	settings := pmsdomain.PropertySettings{
		WeeklyDiscountPct:  &property.WeeklyDiscountPct,
		MonthlyDiscountPct: &property.MonthlyDiscountPct,
	}
	if property.BasePrice > 0 {
		settings.BasePrice = &property.BasePrice
	}
	if property.MinStay > 0 {
		settings.MinStay = &property.MinStay
	}
	if property.MaxStay > 0 {
		settings.MaxStay = &property.MaxStay
	}

	if err := adapter.UpdatePropertySettings(ctx, *property.PMSID, settings); err != nil {
		s.log.Warn("sync.settings_push_failed",
			zap.String("property_id", property.ID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) observeBatch(outcome string) {
	if s.metrics != nil {
		s.metrics.ObservePushBatch(outcome)
	}
}

// acquire takes the per-(owner, pms_type) sync lock. Without a configured
// locker the instance runs unguarded.
func (s *Service) acquire(ctx context.Context, integration *integrationdomain.Integration) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("sync:%s:%s", integration.OwnerID, integration.PMSType)
	token, ok, err := s.locker.TryLock(ctx, key, lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, syncdomain.ErrSyncInProgress
	}
	return func() {
		if err := s.locker.Release(context.Background(), key, token); err != nil {
			s.log.Warn("sync.lock_release_failed", zap.Error(err))
		}
	}, nil
}

func (s *Service) resolve(ctx context.Context, integrationID snowflake.ID) (*integrationdomain.Integration, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return nil, integrationdomain.ErrInvalidOwner
	}
	if integrationID == 0 {
		return nil, integrationdomain.ErrInvalidID
	}

	integration, err := s.integrations.FindByID(ctx, s.db, ownerID, integrationID)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, integrationdomain.ErrNotFound
	}
	if !integration.Enabled || integration.Status == integrationdomain.StatusDisconnected {
		return nil, integrationdomain.ErrDisabled
	}
	return integration, nil
}

func parseStatus(raw string) reservationdomain.Status {
	switch reservationdomain.Status(raw) {
	case reservationdomain.StatusConfirmed, reservationdomain.StatusPending, reservationdomain.StatusCancelled:
		return reservationdomain.Status(raw)
	default:
		return reservationdomain.StatusPending
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
