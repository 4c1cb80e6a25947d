package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/clock"
	"github.com/hostwise/nightly/internal/config"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	"github.com/hostwise/nightly/internal/trial/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Config     config.Config
	Repo       domain.Repository
	Properties propertydomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	cfg        config.Config
	repo       domain.Repository
	properties propertydomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("trial.service"),
		clock:      p.Clock,
		cfg:        p.Config,
		repo:       p.Repo,
		properties: p.Properties,
	}
}

func (s *Service) Record(ctx context.Context, ownerID snowflake.ID, source, pmsType string, pmsIDs []string) error {
	now := s.clock.Now()
	prints := make([]*domain.ListingFingerprint, 0, len(pmsIDs))
	seen := make(map[string]bool, len(pmsIDs))
	for _, pmsID := range pmsIDs {
		if pmsID == "" {
			continue
		}
		fingerprint := domain.Normalize(pmsType, pmsID)
		if seen[fingerprint] {
			continue
		}
		seen[fingerprint] = true
		prints = append(prints, &domain.ListingFingerprint{
			Fingerprint: fingerprint,
			OwnerID:     ownerID,
			Source:      source,
			UsedAt:      now,
		})
	}
	return s.repo.Record(ctx, s.db, prints)
}

// TrialDays fails safe: a read error grants the default trial rather than
// blocking a checkout.
func (s *Service) TrialDays(ctx context.Context, ownerID snowflake.ID) (int, error) {
	candidates, err := s.candidateFingerprints(ctx, ownerID)
	if err != nil {
		s.log.Warn("trial.eligibility_read_failed",
			zap.String("owner_id", ownerID.String()),
			zap.Error(err),
		)
		return s.cfg.DefaultTrialDays, nil
	}
	if len(candidates) == 0 {
		return s.cfg.DefaultTrialDays, nil
	}

	foreign, err := s.repo.CountForeign(ctx, s.db, ownerID, candidates)
	if err != nil {
		s.log.Warn("trial.eligibility_read_failed",
			zap.String("owner_id", ownerID.String()),
			zap.Error(err),
		)
		return s.cfg.DefaultTrialDays, nil
	}
	if foreign > 0 {
		return 0, nil
	}
	return s.cfg.DefaultTrialDays, nil
}

// candidateFingerprints derives fingerprints from every PMS-linked property
// of the owner.
func (s *Service) candidateFingerprints(ctx context.Context, ownerID snowflake.ID) ([]string, error) {
	properties, err := s.properties.ListAll(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	fingerprints := make([]string, 0, len(properties))
	for _, property := range properties {
		if property.PMSID == nil || *property.PMSID == "" || property.PMSType == "" {
			continue
		}
		fingerprint := domain.Normalize(property.PMSType, *property.PMSID)
		if seen[fingerprint] {
			continue
		}
		seen[fingerprint] = true
		fingerprints = append(fingerprints, fingerprint)
	}
	return fingerprints, nil
}
