package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hostwise/nightly/internal/clock"
	grouprecdomain "github.com/hostwise/nightly/internal/grouprec/domain"
	integrationdomain "github.com/hostwise/nightly/internal/integration/domain"
	obsmetrics "github.com/hostwise/nightly/internal/observability/metrics"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	syncdomain "github.com/hostwise/nightly/internal/sync/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Sync         syncdomain.Service
	Recommender  grouprecdomain.Service
	Integrations integrationdomain.Repository
	Owners       ownerdomain.Repository
	Metrics      *obsmetrics.SchedulerMetrics `optional:"true"`
	Config       Config                       `optional:"true"`
}

// Scheduler drives the periodic background work: reservation pulls, rate
// pushes and group recommendation scans.
type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	sync         syncdomain.Service
	recommender  grouprecdomain.Service
	integrations integrationdomain.Repository
	owners       ownerdomain.Repository
	metrics      *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Sync == nil || p.Recommender == nil || p.Integrations == nil || p.Owners == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler"),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		sync:         p.Sync,
		recommender:  p.Recommender,
		integrations: p.Integrations,
		owners:       p.Owners,
		metrics:      p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	err := fn(ctx)
	if s.metrics != nil {
		s.metrics.ObserveJob(name, time.Since(start), err)
	}
	if err == nil {
		return nil
	}

	// A deadline is a soft failure; the next tick picks up the remainder.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"reservation_pull", s.ReservationPullJob},
		{"rate_push", s.RatePushJob},
		{"group_scan", s.GroupScanJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if lag := time.Since(nextRun); lag > 0 && s.metrics != nil {
			s.metrics.ObserveLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ReservationPullJob imports reservations for every enabled integration.
func (s *Scheduler) ReservationPullJob(ctx context.Context) error {
	summaries, err := s.sync.PullAll(ctx)
	for _, summary := range summaries {
		s.log.Info("scheduler.reservation_pull",
			zap.String("integration_id", summary.IntegrationID.String()),
			zap.Int("created", summary.Created),
			zap.Int("updated", summary.Updated),
			zap.Int("cancelled", summary.Cancelled),
			zap.Int("unmatched", summary.Unmatched),
		)
	}
	return err
}

// RatePushJob sends changed rates upstream for every enabled integration.
// One integration failing does not stop the rest.
func (s *Scheduler) RatePushJob(ctx context.Context) error {
	integrations, err := s.integrations.ListEnabled(ctx, s.db)
	if err != nil {
		return err
	}

	var jobErr error
	for _, integration := range integrations {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		summary, err := s.sync.PushIntegration(ctx, integration)
		if err != nil {
			if errors.Is(err, syncdomain.ErrSyncInProgress) {
				continue
			}
			jobErr = errors.Join(jobErr, err)
			continue
		}
		s.log.Info("scheduler.rate_push",
			zap.String("integration_id", summary.IntegrationID.String()),
			zap.Int("properties", summary.Properties),
			zap.Int("rates_pushed", summary.RatesPushed),
			zap.Int("failed", summary.Failed),
		)
	}
	return jobErr
}

// GroupScanJob recomputes group recommendations per owner so the next
// dashboard visit serves a warm result.
func (s *Scheduler) GroupScanJob(ctx context.Context) error {
	owners, err := s.owners.List(ctx, s.db)
	if err != nil {
		return err
	}

	var jobErr error
	for _, owner := range owners {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		recommendations, err := s.recommender.ScanOwner(ctx, owner.ID)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		if len(recommendations) == 0 {
			continue
		}
		s.log.Info("scheduler.group_scan",
			zap.String("owner_id", owner.ID.String()),
			zap.Int("recommendations", len(recommendations)),
		)
	}
	return jobErr
}
