package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/override/domain"
	"github.com/hostwise/nightly/internal/ownerctx"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	Properties propertydomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	properties propertydomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("override.service"),
		repo:       p.Repo,
		properties: p.Properties,
	}
}

func (s *Service) ListRange(ctx context.Context, req domain.ListOverridesRequest) ([]domain.PriceOverride, error) {
	propertyID, err := s.authorize(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(dateLayout, strings.TrimSpace(req.Start))
	if err != nil {
		return nil, domain.ErrInvalidDates
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(req.End))
	if err != nil || end.Before(start) {
		return nil, domain.ErrInvalidDates
	}

	items, err := s.repo.ListRange(ctx, s.db, propertyID, start, end)
	if err != nil {
		return nil, err
	}

	overrides := make([]domain.PriceOverride, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		overrides = append(overrides, *item)
	}
	return overrides, nil
}

func (s *Service) Put(ctx context.Context, req domain.PutOverridesRequest) ([]domain.PriceOverride, error) {
	propertyID, err := s.authorize(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	ownerID, _ := ownerctx.OwnerIDFromContext(ctx)
	now := time.Now().UTC()

	written := make([]domain.PriceOverride, 0, len(req.Entries))
	for _, entry := range req.Entries {
		date, err := time.Parse(dateLayout, strings.TrimSpace(entry.Date))
		if err != nil {
			return nil, domain.ErrInvalidDates
		}
		if entry.Price <= 0 || math.IsNaN(entry.Price) || math.IsInf(entry.Price, 0) {
			return nil, domain.ErrInvalidPrice
		}

		override := domain.PriceOverride{
			PropertyID: propertyID,
			Date:       date,
			Price:      entry.Price,
			IsLocked:   entry.IsLocked,
			Reason:     strings.TrimSpace(entry.Reason),
			UpdatedBy:  ownerID.String(),
			UpdatedAt:  now,
		}
		// Manual writes always win, including over a previous lock.
		if err := s.repo.Upsert(ctx, s.db, &override, true); err != nil {
			return nil, err
		}
		written = append(written, override)
	}
	return written, nil
}

func (s *Service) Delete(ctx context.Context, propertyID, date string) error {
	id, err := s.authorize(ctx, propertyID)
	if err != nil {
		return err
	}

	parsed, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return domain.ErrInvalidDates
	}
	return s.repo.Delete(ctx, s.db, id, parsed)
}

func (s *Service) authorize(ctx context.Context, raw string) (snowflake.ID, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return 0, domain.ErrInvalidOwner
	}
	propertyID, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || propertyID == 0 {
		return 0, domain.ErrInvalidID
	}

	property, err := s.properties.FindByID(ctx, s.db, ownerID, propertyID)
	if err != nil {
		return 0, err
	}
	if property == nil {
		return 0, domain.ErrNotFound
	}
	return propertyID, nil
}
