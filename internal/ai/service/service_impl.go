package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hostwise/nightly/internal/ai/client"
	aidomain "github.com/hostwise/nightly/internal/ai/domain"
	"github.com/hostwise/nightly/internal/ai/quota"
	"github.com/hostwise/nightly/internal/ai/sanitize"
	"github.com/hostwise/nightly/internal/config"
	signaldomain "github.com/hostwise/nightly/internal/marketsignal/domain"
	"github.com/hostwise/nightly/internal/observability/metrics"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	"github.com/hostwise/nightly/internal/ownerctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var propertyTypeWhitelist = []string{"apartment", "house", "villa", "studio", "room", "other"}

const suggestSystemPrompt = "You are a short-term-rental pricing assistant. " +
	"Respond with a single JSON object: " +
	`{"price":number,"rationale":string}. The price is a nightly rate.`

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Config  config.Config
	Quota   *quota.Keeper
	Client  *client.Client
	Owners  ownerdomain.Repository
	Signals signaldomain.Service
	Metrics *metrics.DomainMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     config.Config
	quota   *quota.Keeper
	client  *client.Client
	owners  ownerdomain.Repository
	signals signaldomain.Service
	metrics *metrics.DomainMetrics
}

func New(p Params) aidomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("ai.service"),
		cfg:     p.Config,
		quota:   p.Quota,
		client:  p.Client,
		owners:  p.Owners,
		signals: p.Signals,
		metrics: p.Metrics,
	}
}

func (s *Service) SuggestPrice(ctx context.Context, req aidomain.SuggestPriceRequest) (aidomain.Suggestion, error) {
	owner, err := s.currentOwner(ctx)
	if err != nil {
		return aidomain.Suggestion{}, err
	}

	// Required numeric context fails before any quota or network use.
	if !isFinitePositive(req.HeuristicPrice) {
		return aidomain.Suggestion{}, fmt.Errorf("%w: heuristic price", aidomain.ErrInvalidInput)
	}

	if err := s.reserve(ctx, owner); err != nil {
		return aidomain.Suggestion{}, err
	}

	user := s.buildSuggestPrompt(req, owner)
	var suggestion aidomain.Suggestion
	if err := s.client.CompleteJSON(ctx, suggestSystemPrompt, user, &suggestion); err != nil {
		s.observe("suggest", outcomeOf(err))
		return aidomain.Suggestion{}, err
	}
	if !isFinitePositive(suggestion.Price) {
		s.observe("suggest", "malformed")
		return aidomain.Suggestion{}, fmt.Errorf("%w: non-positive price", aidomain.ErrProviderMalformed)
	}

	suggestion.Rationale = sanitize.Text(suggestion.Rationale)
	s.observe("suggest", "ok")
	return suggestion, nil
}

func (s *Service) AnalyzeDate(ctx context.Context, req aidomain.AnalyzeDateRequest) ([]byte, error) {
	owner, err := s.currentOwner(ctx)
	if err != nil {
		return nil, err
	}
	if req.PropertyID == 0 || req.Date.IsZero() {
		return nil, fmt.Errorf("%w: property and date required", aidomain.ErrInvalidInput)
	}

	language := req.Language
	if language == "" {
		language = owner.Language
	}

	if err := s.reserve(ctx, owner); err != nil {
		return nil, err
	}

	signal, err := s.signals.RefreshAnalysis(ctx, req.PropertyID, req.Date, language)
	if err != nil {
		s.observe("analysis", outcomeOf(err))
		return nil, err
	}
	s.observe("analysis", "ok")
	return signal.Payload, nil
}

func (s *Service) Quota(ctx context.Context) (aidomain.QuotaStatus, error) {
	owner, err := s.currentOwner(ctx)
	if err != nil {
		return aidomain.QuotaStatus{}, err
	}
	return s.quota.Status(ctx, owner.ID, owner.Location(), s.cfg.AIDailyCap)
}

func (s *Service) reserve(ctx context.Context, owner ownerdomain.Owner) error {
	err := s.quota.Reserve(ctx, owner.ID, owner.Location(), s.cfg.AIDailyCap)
	if errors.Is(err, aidomain.ErrQuotaExceeded) {
		if s.metrics != nil {
			s.metrics.ObserveQuotaExceeded()
		}
	}
	return err
}

func (s *Service) currentOwner(ctx context.Context) (ownerdomain.Owner, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return ownerdomain.Owner{}, aidomain.ErrInvalidOwner
	}
	owner, err := s.owners.FindByID(ctx, s.db, ownerID)
	if err != nil {
		return ownerdomain.Owner{}, err
	}
	if owner == nil {
		return ownerdomain.Owner{}, aidomain.ErrInvalidOwner
	}
	return *owner, nil
}

func (s *Service) buildSuggestPrompt(req aidomain.SuggestPriceRequest, owner ownerdomain.Owner) string {
	propertyType := sanitize.Categorical(req.PropertyType, propertyTypeWhitelist, "other")
	location := sanitize.Text(req.Location)
	description := sanitize.Text(req.Description)
	capacity := sanitize.Int(float64(req.Capacity), 0, 64, 0)
	bedrooms := sanitize.Int(float64(req.Bedrooms), 0, 32, 0)
	basePrice := sanitize.Decimal(req.BasePrice, 0, 1e6, 0)
	heuristic := sanitize.Decimal(req.HeuristicPrice, 0.01, 1e6, req.BasePrice)
	currency := sanitize.Categorical(req.Currency, []string{"EUR", "USD", "GBP", "CHF"}, owner.Currency)

	prompt := fmt.Sprintf(
		"Suggest a nightly price in %s for %s in %s on %s. Capacity %d, bedrooms %d, base price %.2f, heuristic baseline %.2f.",
		currency, propertyType, location, req.Date.Format("2006-01-02"), capacity, bedrooms, basePrice, heuristic,
	)
	if description != "" {
		prompt += " Description: " + description + "."
	}
	if len(req.Signals) > 0 {
		prompt += " Market signals: " + string(req.Signals)
	}
	return prompt
}

func (s *Service) observe(kind, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveAICall(kind, outcome)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, aidomain.ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, aidomain.ErrProviderMalformed):
		return "malformed"
	case errors.Is(err, aidomain.ErrProviderUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func isFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
