package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/cache"
	"github.com/hostwise/nightly/internal/clock"
	"github.com/hostwise/nightly/internal/marketsignal/domain"
	"github.com/hostwise/nightly/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NewsTTL bounds how long a signal is served without a refresh attempt.
const NewsTTL = 5 * time.Minute

const refillTimeout = 60 * time.Second

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    domain.Repository
	Fetcher domain.Fetcher
	Metrics *metrics.DomainMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	fetcher domain.Fetcher
	metrics *metrics.DomainMetrics

	cache *cache.TTLCache[domain.Signal]

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("marketsignal.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		fetcher:  p.Fetcher,
		metrics:  p.Metrics,
		cache:    cache.New[domain.Signal](NewsTTL, p.Clock),
		inFlight: make(map[string]struct{}),
	}
}

func (s *Service) GetNews(ctx context.Context, language string) (domain.Signal, error) {
	language, err := normalizeLanguage(language)
	if err != nil {
		return domain.Signal{}, err
	}

	key := "news:" + language
	return s.get(ctx, key, func(fetchCtx context.Context) (json.RawMessage, error) {
		return s.fetcher.FetchNews(fetchCtx, language)
	}, language)
}

func (s *Service) GetAnalysis(ctx context.Context, propertyID snowflake.ID, date time.Time, language string) (domain.Signal, error) {
	language, err := normalizeLanguage(language)
	if err != nil {
		return domain.Signal{}, err
	}

	key := fmt.Sprintf("analysis:%s:%s:%s", propertyID.String(), date.Format(dateLayout), language)
	return s.get(ctx, key, func(fetchCtx context.Context) (json.RawMessage, error) {
		return s.fetcher.FetchAnalysis(fetchCtx, propertyID, date, language)
	}, language)
}

// get serves last-good data and never blocks on the provider. Misses and
// stale entries schedule a coalesced background refill.
func (s *Service) get(ctx context.Context, key string, fetch func(context.Context) (json.RawMessage, error), language string) (domain.Signal, error) {
	if signal, ok := s.cache.Get(key); ok {
		s.observeCache("hit")
		return signal, nil
	}

	row, err := s.repo.Find(ctx, s.db, key)
	if err != nil {
		return domain.Signal{}, err
	}
	if row != nil {
		signal := domain.Signal{
			Key:       row.Key,
			Language:  row.Language,
			Payload:   json.RawMessage(row.Payload),
			UpdatedAt: row.UpdatedAt,
		}
		s.cache.Set(key, signal)
		if s.clock.Now().Sub(row.UpdatedAt) > NewsTTL {
			s.observeCache("stale")
			s.refillAsync(key, language, fetch)
		} else {
			s.observeCache("db")
		}
		return signal, nil
	}

	s.observeCache("miss")
	s.refillAsync(key, language, fetch)
	return domain.Signal{}, domain.ErrNotReady
}

func (s *Service) RefreshAnalysis(ctx context.Context, propertyID snowflake.ID, date time.Time, language string) (domain.Signal, error) {
	language, err := normalizeLanguage(language)
	if err != nil {
		return domain.Signal{}, err
	}

	key := fmt.Sprintf("analysis:%s:%s:%s", propertyID.String(), date.Format(dateLayout), language)
	payload, err := s.fetcher.FetchAnalysis(ctx, propertyID, date, language)
	if err != nil {
		return domain.Signal{}, err
	}

	now := s.clock.Now().UTC()
	record := domain.MarketSignal{
		Key:       key,
		Language:  language,
		Payload:   datatypes.JSON(payload),
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, s.db, &record); err != nil {
		return domain.Signal{}, err
	}

	signal := domain.Signal{Key: key, Language: language, Payload: payload, UpdatedAt: now}
	s.cache.Set(key, signal)
	return signal, nil
}

// refillAsync starts at most one fetch per key.
func (s *Service) refillAsync(key, language string, fetch func(context.Context) (json.RawMessage, error)) {
	s.mu.Lock()
	if _, busy := s.inFlight[key]; busy {
		s.mu.Unlock()
		return
	}
	s.inFlight[key] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, key)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), refillTimeout)
		defer cancel()

		payload, err := fetch(ctx)
		if err != nil {
			s.log.Warn("marketsignal.refill_failed", zap.String("key", key), zap.Error(err))
			return
		}

		// Provider timestamps are never trusted; stamp server-side.
		now := s.clock.Now().UTC()
		signal := domain.MarketSignal{
			Key:       key,
			Language:  language,
			Payload:   datatypes.JSON(payload),
			UpdatedAt: now,
		}
		if err := s.repo.Upsert(ctx, s.db, &signal); err != nil {
			s.log.Warn("marketsignal.persist_failed", zap.String("key", key), zap.Error(err))
			return
		}
		s.cache.Set(key, domain.Signal{
			Key:       key,
			Language:  language,
			Payload:   payload,
			UpdatedAt: now,
		})
	}()
}

func (s *Service) observeCache(result string) {
	if s.metrics != nil {
		s.metrics.ObserveSignalCache(result)
	}
}

func normalizeLanguage(raw string) (string, error) {
	language := strings.ToLower(strings.TrimSpace(raw))
	if language == "" {
		language = "en"
	}
	if len(language) != 2 {
		return "", domain.ErrInvalidLanguage
	}
	return language, nil
}
