package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/hostwise/nightly/internal/billing/domain"
	"github.com/hostwise/nightly/internal/clock"
	"github.com/hostwise/nightly/internal/integration/domain"
	"github.com/hostwise/nightly/internal/integration/secret"
	"github.com/hostwise/nightly/internal/ownerctx"
	"github.com/hostwise/nightly/internal/pms/adapters"
	pmsdomain "github.com/hostwise/nightly/internal/pms/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	trialdomain "github.com/hostwise/nightly/internal/trial/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	pkgdb "github.com/hostwise/nightly/pkg/db"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	Registry   *adapters.Registry
	Sealer     *secret.Sealer
	Repo       domain.Repository
	Properties propertydomain.Repository
	Logs       propertydomain.LogRepository
	Trial      trialdomain.Service
	Billing    billingdomain.Reconciler
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	registry   *adapters.Registry
	sealer     *secret.Sealer
	repo       domain.Repository
	properties propertydomain.Repository
	logs       propertydomain.LogRepository
	trial      trialdomain.Service
	billing    billingdomain.Reconciler
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("integration.service"),
		clock:      p.Clock,
		genID:      p.GenID,
		registry:   p.Registry,
		sealer:     p.Sealer,
		repo:       p.Repo,
		properties: p.Properties,
		logs:       p.Logs,
		trial:      p.Trial,
		billing:    p.Billing,
	}
}

func (s *Service) TestConnection(ctx context.Context, pmsType string, credentials map[string]string) error {
	adapter, err := s.registry.New(pmsType, pmsdomain.AdapterConfig{Credentials: credentials})
	if err != nil {
		return err
	}
	return adapter.TestConnection(ctx)
}

func (s *Service) Connect(ctx context.Context, pmsType string, credentials map[string]string) (*domain.Integration, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}

	if err := s.TestConnection(ctx, pmsType, credentials); err != nil {
		return nil, err
	}

	sealed, err := s.sealer.Seal(credentials)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	integration := &domain.Integration{
		ID:          s.genID.Generate(),
		OwnerID:     ownerID,
		PMSType:     pmsType,
		Credentials: sealed,
		Status:      domain.StatusConnected,
		Enabled:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, integration); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyConnected
		}
		return nil, err
	}

	s.log.Info("integration.connected",
		zap.String("owner_id", ownerID.String()),
		zap.String("pms_type", pmsType),
	)
	return integration, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Integration, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}
	return s.repo.List(ctx, s.db, ownerID)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Integration, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}
	if id == 0 {
		return nil, domain.ErrInvalidID
	}

	integration, err := s.repo.FindByID(ctx, s.db, ownerID, id)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, domain.ErrNotFound
	}
	return integration, nil
}

func (s *Service) Disconnect(ctx context.Context, id snowflake.ID) error {
	integration, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, integration.OwnerID, integration.ID)
}

func (s *Service) SyncProperties(ctx context.Context, id snowflake.ID) ([]domain.PropertyPreview, error) {
	integration, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	adapter, err := s.AdapterFor(ctx, integration)
	if err != nil {
		return nil, err
	}

	listings, err := adapter.ListProperties(ctx)
	if err != nil {
		return nil, err
	}

	previews := make([]domain.PropertyPreview, 0, len(listings))
	for _, listing := range listings {
		existing, err := s.properties.FindByPMSID(ctx, s.db, integration.OwnerID, integration.PMSType, listing.PMSID)
		if err != nil {
			return nil, err
		}
		previews = append(previews, domain.PropertyPreview{
			NormalizedProperty: listing,
			AlreadyImported:    existing != nil,
		})
	}
	return previews, nil
}

func (s *Service) ImportProperties(ctx context.Context, id snowflake.ID, pmsIDs []string) (*domain.ImportResult, error) {
	integration, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	adapter, err := s.AdapterFor(ctx, integration)
	if err != nil {
		return nil, err
	}

	listings, err := adapter.ListProperties(ctx)
	if err != nil {
		return nil, err
	}

	selected := make(map[string]bool, len(pmsIDs))
	for _, pmsID := range pmsIDs {
		selected[pmsID] = true
	}

	result := &domain.ImportResult{}
	imported := make([]string, 0, len(listings))
	for _, listing := range listings {
		if len(selected) > 0 && !selected[listing.PMSID] {
			continue
		}

		existing, err := s.properties.FindByPMSID(ctx, s.db, integration.OwnerID, integration.PMSType, listing.PMSID)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			applyListing(existing, listing)
			existing.UpdatedAt = s.clock.Now()
			if err := s.properties.Update(ctx, s.db, existing); err != nil {
				return nil, err
			}
			result.Updated = append(result.Updated, existing)
		} else {
			property, err := s.newProperty(integration, listing)
			if err != nil {
				return nil, err
			}
			if err := s.properties.Insert(ctx, s.db, property); err != nil {
				return nil, err
			}
			s.appendImportLog(ctx, property, listing)
			result.Imported = append(result.Imported, property)
		}
		imported = append(imported, listing.PMSID)
	}

	if len(imported) > 0 {
		if err := s.trial.Record(ctx, integration.OwnerID, trialdomain.SourceImport, integration.PMSType, imported); err != nil {
			s.log.Warn("integration.fingerprint_failed",
				zap.String("owner_id", integration.OwnerID.String()),
				zap.Error(err),
			)
		}
	}
	if len(result.Imported) > 0 {
		s.billing.InventoryChanged(ctx, integration.OwnerID)
	}

	if err := s.repo.UpdateLastSync(ctx, s.db, integration.ID, s.clock.Now()); err != nil {
		s.log.Warn("integration.last_sync_update_failed", zap.Error(err))
	}
	return result, nil
}

func (s *Service) AdapterFor(ctx context.Context, integration *domain.Integration) (pmsdomain.Adapter, error) {
	credentials, err := s.sealer.Open(integration.Credentials)
	if err != nil {
		return nil, fmt.Errorf("unseal credentials: %w", err)
	}
	return s.registry.New(integration.PMSType, pmsdomain.AdapterConfig{Credentials: credentials})
}

func (s *Service) newProperty(integration *domain.Integration, listing pmsdomain.NormalizedProperty) (*propertydomain.Property, error) {
	now := s.clock.Now()
	pmsID := listing.PMSID
	property := &propertydomain.Property{
		ID:        s.genID.Generate(),
		OwnerID:   integration.OwnerID,
		PMSType:   integration.PMSType,
		PMSID:     &pmsID,
		Status:    propertydomain.StatusActive,
		Tier:      propertydomain.TierBalanced,
		MinStay:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyListing(property, listing)

	strategyJSON, err := json.Marshal(property.StrategyView())
	if err != nil {
		return nil, err
	}
	rulesJSON, err := json.Marshal(property.RulesView())
	if err != nil {
		return nil, err
	}
	property.StrategyJSON = strategyJSON
	property.RulesJSON = rulesJSON
	return property, nil
}

func (s *Service) appendImportLog(ctx context.Context, property *propertydomain.Property, listing pmsdomain.NormalizedProperty) {
	entry := &propertydomain.PropertyLog{
		ID:         ulid.Make().String(),
		PropertyID: property.ID,
		ActorType:  propertydomain.ActorSystem,
		Action:     "integration.import",
		Diff: datatypes.JSONMap{
			"pms_type": property.PMSType,
			"pms_id":   listing.PMSID,
			"name":     listing.Name,
		},
		CreatedAt: s.clock.Now(),
	}
	if err := s.logs.Append(ctx, s.db, entry); err != nil {
		s.log.Warn("integration.log_append_failed", zap.Error(err))
	}
}

func applyListing(property *propertydomain.Property, listing pmsdomain.NormalizedProperty) {
	if listing.Name != "" {
		property.Name = listing.Name
	}
	property.Address = listing.Address
	property.Location = listing.Location
	if listing.Currency != "" {
		property.Currency = listing.Currency
	}
	if listing.Timezone != "" {
		property.Timezone = listing.Timezone
	}
	if listing.BasePrice > 0 {
		property.BasePrice = listing.BasePrice
	}
	if listing.PropertyType != "" {
		property.PropertyType = listing.PropertyType
	}
	if listing.Capacity > 0 {
		property.Capacity = listing.Capacity
	}
	if listing.Bedrooms > 0 {
		property.Bedrooms = listing.Bedrooms
	}
}
