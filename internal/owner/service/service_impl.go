package service

import (
	"strings"
	"time"

	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/owner/domain"
	"github.com/hostwise/nightly/internal/ownerctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var supportedLanguages = map[string]struct{}{
	"en": {}, "de": {}, "fr": {}, "es": {}, "it": {}, "pt": {}, "nl": {},
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("owner.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) GetProfile(ctx context.Context) (domain.Owner, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.Owner{}, domain.ErrInvalidOwner
	}

	owner, err := s.repo.FindByID(ctx, s.db, ownerID)
	if err != nil {
		return domain.Owner{}, err
	}
	if owner == nil {
		return domain.Owner{}, domain.ErrNotFound
	}
	return *owner, nil
}

func (s *Service) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (domain.Owner, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.Owner{}, domain.ErrInvalidOwner
	}

	owner, err := s.repo.FindByID(ctx, s.db, ownerID)
	if err != nil {
		return domain.Owner{}, err
	}
	if owner == nil {
		return domain.Owner{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != "" {
			owner.Name = name
		}
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(currency) != 3 {
			return domain.Owner{}, domain.ErrInvalidCurrency
		}
		owner.Currency = currency
	}
	if req.Language != nil {
		language := strings.ToLower(strings.TrimSpace(*req.Language))
		if _, ok := supportedLanguages[language]; !ok {
			return domain.Owner{}, domain.ErrInvalidLanguage
		}
		owner.Language = language
	}
	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if _, err := time.LoadLocation(tz); err != nil {
			return domain.Owner{}, domain.ErrInvalidTimezone
		}
		owner.Timezone = tz
	}

	owner.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, owner); err != nil {
		return domain.Owner{}, err
	}
	return *owner, nil
}

func (s *Service) SetAccessStatus(ctx context.Context, id int64, status domain.AccessStatus) error {
	if id == 0 {
		return domain.ErrInvalidOwner
	}
	switch status {
	case domain.AccessActive, domain.AccessPaymentFailed, domain.AccessSubscriptionCanceled:
	default:
		return domain.ErrInvalidOwner
	}

	s.log.Info("owner.access_status",
		zap.Int64("owner_id", id),
		zap.String("status", string(status)),
	)
	return s.repo.UpdateAccessStatus(ctx, s.db, snowflake.ID(id), status)
}
