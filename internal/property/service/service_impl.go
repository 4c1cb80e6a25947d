package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/hostwise/nightly/internal/billing/domain"
	obscontext "github.com/hostwise/nightly/internal/observability/context"
	"github.com/hostwise/nightly/internal/ownerctx"
	"github.com/hostwise/nightly/internal/property/domain"
	"github.com/hostwise/nightly/pkg/db/pagination"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var propertyTypes = map[string]struct{}{
	"apartment": {}, "house": {}, "villa": {}, "studio": {}, "room": {}, "other": {},
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Logs    domain.LogRepository
	Billing billingdomain.Reconciler
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	logs    domain.LogRepository
	billing billingdomain.Reconciler
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("property.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		logs:    p.Logs,
		billing: p.Billing,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePropertyRequest) (domain.Property, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.Property{}, domain.ErrInvalidOwner
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Property{}, domain.ErrInvalidName
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return domain.Property{}, domain.ErrInvalidTimezone
	}

	strategy := domain.Strategy{Tier: domain.TierBalanced}
	if req.Strategy != nil {
		strategy = *req.Strategy
	}
	if err := validateStrategy(strategy); err != nil {
		return domain.Property{}, err
	}

	rules := domain.Rules{MinStay: 1}
	if req.Rules != nil {
		rules = *req.Rules
	}
	if err := validateRules(rules); err != nil {
		return domain.Property{}, err
	}

	now := time.Now().UTC()
	property := domain.Property{
		ID:           s.genID.Generate(),
		OwnerID:      ownerID,
		Name:         name,
		Address:      strings.TrimSpace(req.Address),
		Location:     strings.TrimSpace(req.Location),
		Status:       domain.StatusActive,
		Currency:     normalizeCurrency(req.Currency),
		Timezone:     timezone,
		PropertyType: normalizePropertyType(req.PropertyType),
		Capacity:     max(req.Capacity, 0),
		Bedrooms:     max(req.Bedrooms, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyStrategy(&property, strategy)
	applyRules(&property, rules)

	if err := s.repo.Insert(ctx, s.db, &property); err != nil {
		return domain.Property{}, err
	}

	s.appendLog(ctx, property.ID, "property.created", map[string]interface{}{
		"name": property.Name,
	})
	s.billing.InventoryChanged(ctx, ownerID)
	return property, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Property, error) {
	ownerID, propertyID, err := s.resolve(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}

	property, err := s.repo.FindByID(ctx, s.db, ownerID, propertyID)
	if err != nil {
		return domain.Property{}, err
	}
	if property == nil {
		return domain.Property{}, domain.ErrNotFound
	}
	return *property, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPropertiesRequest) (domain.ListPropertiesResponse, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.ListPropertiesResponse{}, domain.ErrInvalidOwner
	}

	status := domain.Status(strings.TrimSpace(req.Status))
	if status != "" && status != domain.StatusActive && status != domain.StatusArchived && status != domain.StatusError {
		return domain.ListPropertiesResponse{}, domain.ErrInvalidStatus
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}

	items, err := s.repo.List(ctx, s.db, ownerID, domain.ListFilter{
		Status:   status,
		Location: strings.TrimSpace(req.Location),
		PMSType:  strings.TrimSpace(req.PMSType),
	}, pagination.Pagination{PageToken: req.PageToken, PageSize: int(pageSize)})
	if err != nil {
		return domain.ListPropertiesResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(property *domain.Property) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        property.ID.String(),
			CreatedAt: property.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	properties := make([]domain.Property, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		properties = append(properties, *item)
	}

	resp := domain.ListPropertiesResponse{Properties: properties}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePropertyRequest) (domain.Property, error) {
	ownerID, propertyID, err := s.resolve(ctx, req.ID)
	if err != nil {
		return domain.Property{}, err
	}

	property, err := s.repo.FindByID(ctx, s.db, ownerID, propertyID)
	if err != nil {
		return domain.Property{}, err
	}
	if property == nil {
		return domain.Property{}, domain.ErrNotFound
	}

	diff := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Property{}, domain.ErrInvalidName
		}
		diff["name"] = name
		property.Name = name
	}
	if req.Address != nil {
		property.Address = strings.TrimSpace(*req.Address)
		diff["address"] = property.Address
	}
	if req.Location != nil {
		property.Location = strings.TrimSpace(*req.Location)
		diff["location"] = property.Location
	}
	if req.Currency != nil {
		property.Currency = normalizeCurrency(*req.Currency)
		diff["currency"] = property.Currency
	}
	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if _, err := time.LoadLocation(tz); err != nil {
			return domain.Property{}, domain.ErrInvalidTimezone
		}
		property.Timezone = tz
		diff["timezone"] = tz
	}
	if req.PropertyType != nil {
		property.PropertyType = normalizePropertyType(*req.PropertyType)
		diff["property_type"] = property.PropertyType
	}
	if req.Capacity != nil {
		property.Capacity = max(*req.Capacity, 0)
		diff["capacity"] = property.Capacity
	}
	if req.Bedrooms != nil {
		property.Bedrooms = max(*req.Bedrooms, 0)
		diff["bedrooms"] = property.Bedrooms
	}

	property.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, property); err != nil {
		return domain.Property{}, err
	}

	s.appendLog(ctx, property.ID, "property.updated", diff)
	return *property, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ownerID, propertyID, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}

	property, err := s.repo.FindByID(ctx, s.db, ownerID, propertyID)
	if err != nil {
		return err
	}
	if property == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.Delete(ctx, s.db, ownerID, propertyID); err != nil {
		return err
	}

	s.billing.InventoryChanged(ctx, ownerID)
	return nil
}

func (s *Service) UpdateStrategy(ctx context.Context, id string, strategy domain.Strategy) (domain.Property, error) {
	ownerID, propertyID, err := s.resolve(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	if err := validateStrategy(strategy); err != nil {
		return domain.Property{}, err
	}

	property, err := s.repo.FindByID(ctx, s.db, ownerID, propertyID)
	if err != nil {
		return domain.Property{}, err
	}
	if property == nil {
		return domain.Property{}, domain.ErrNotFound
	}

	applyStrategy(property, strategy)
	property.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, property); err != nil {
		return domain.Property{}, err
	}

	s.appendLog(ctx, property.ID, "property.strategy_updated", map[string]interface{}{
		"tier":          string(strategy.Tier),
		"floor_price":   strategy.FloorPrice,
		"base_price":    strategy.BasePrice,
		"ceiling_price": strategy.CeilingPrice,
	})
	return *property, nil
}

func (s *Service) UpdateRules(ctx context.Context, id string, rules domain.Rules) (domain.Property, error) {
	ownerID, propertyID, err := s.resolve(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	if err := validateRules(rules); err != nil {
		return domain.Property{}, err
	}

	property, err := s.repo.FindByID(ctx, s.db, ownerID, propertyID)
	if err != nil {
		return domain.Property{}, err
	}
	if property == nil {
		return domain.Property{}, domain.ErrNotFound
	}

	applyRules(property, rules)
	property.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, property); err != nil {
		return domain.Property{}, err
	}

	s.appendLog(ctx, property.ID, "property.rules_updated", map[string]interface{}{
		"min_stay":             rules.MinStay,
		"max_stay":             rules.MaxStay,
		"weekly_discount_pct":  rules.WeeklyDiscountPct,
		"monthly_discount_pct": rules.MonthlyDiscountPct,
		"weekend_markup_pct":   rules.WeekendMarkupPct,
	})
	return *property, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Property, error) {
	ownerID, propertyID, err := s.resolve(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	switch status {
	case domain.StatusActive, domain.StatusArchived, domain.StatusError:
	default:
		return domain.Property{}, domain.ErrInvalidStatus
	}

	property, err := s.repo.FindByID(ctx, s.db, ownerID, propertyID)
	if err != nil {
		return domain.Property{}, err
	}
	if property == nil {
		return domain.Property{}, domain.ErrNotFound
	}

	previous := property.Status
	if err := s.repo.UpdateStatus(ctx, s.db, ownerID, propertyID, status); err != nil {
		return domain.Property{}, err
	}
	property.Status = status

	s.appendLog(ctx, property.ID, "property.status_changed", map[string]interface{}{
		"from": string(previous),
		"to":   string(status),
	})
	if previous != status {
		s.billing.InventoryChanged(ctx, ownerID)
	}
	return *property, nil
}

func (s *Service) AppendLog(ctx context.Context, entry domain.LogEntry) error {
	if entry.PropertyID == 0 || entry.Action == "" {
		return domain.ErrInvalidID
	}

	actorType := entry.ActorType
	if actorType != domain.ActorSystem {
		actorType = domain.ActorOwner
	}

	diff := datatypes.JSONMap{}
	for k, v := range entry.Diff {
		diff[k] = v
	}

	record := domain.PropertyLog{
		ID:         ulid.Make().String(),
		PropertyID: entry.PropertyID,
		ActorType:  actorType,
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		Diff:       diff,
		CreatedAt:  time.Now().UTC(),
	}
	return s.logs.Append(ctx, s.db, &record)
}

func (s *Service) ListLogs(ctx context.Context, req domain.ListLogsRequest) ([]domain.PropertyLog, error) {
	ownerID, propertyID, err := s.resolve(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	property, err := s.repo.FindByID(ctx, s.db, ownerID, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, domain.ErrNotFound
	}

	items, err := s.logs.ListByProperty(ctx, s.db, propertyID, req.Limit)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.PropertyLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return entries, nil
}

func (s *Service) resolve(ctx context.Context, raw string) (snowflake.ID, snowflake.ID, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return 0, 0, domain.ErrInvalidOwner
	}
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, 0, domain.ErrInvalidID
	}
	return ownerID, id, nil
}

// appendLog records a mutation on the audit trail with the acting principal
// taken from the request context. Failures are logged, never surfaced.
func (s *Service) appendLog(ctx context.Context, propertyID snowflake.ID, action string, diff map[string]interface{}) {
	entry := domain.LogEntry{
		PropertyID: propertyID,
		Action:     action,
		Diff:       diff,
	}

	actorType, actorID := obscontext.ActorFromContext(ctx)
	if actorType == domain.ActorSystem {
		entry.ActorType = domain.ActorSystem
	} else {
		entry.ActorType = domain.ActorOwner
		if parsed, err := snowflake.ParseString(actorID); err == nil && parsed != 0 {
			entry.ActorID = &parsed
		} else if ownerID, ok := ownerctx.OwnerIDFromContext(ctx); ok && ownerID != 0 {
			entry.ActorID = &ownerID
		}
	}

	if err := s.AppendLog(ctx, entry); err != nil {
		s.log.Warn("property.log_append_failed",
			zap.String("property_id", propertyID.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func validateStrategy(strategy domain.Strategy) error {
	switch strategy.Tier {
	case domain.TierCautious, domain.TierBalanced, domain.TierAggressive:
	default:
		return domain.ErrInvalidStrategy
	}
	if strategy.FloorPrice < 0 || strategy.BasePrice < 0 || strategy.CeilingPrice < 0 {
		return domain.ErrInvalidStrategy
	}
	if strategy.CeilingPrice > 0 && strategy.FloorPrice > strategy.CeilingPrice {
		return domain.ErrInvalidStrategy
	}
	return nil
}

func validateRules(rules domain.Rules) error {
	if rules.MinStay < 0 || rules.MaxStay < 0 {
		return domain.ErrInvalidRules
	}
	if rules.MaxStay > 0 && rules.MinStay > rules.MaxStay {
		return domain.ErrInvalidRules
	}
	if rules.WeeklyDiscountPct < 0 || rules.WeeklyDiscountPct > 100 {
		return domain.ErrInvalidRules
	}
	if rules.MonthlyDiscountPct < 0 || rules.MonthlyDiscountPct > 100 {
		return domain.ErrInvalidRules
	}
	if rules.WeekendMarkupPct < 0 {
		return domain.ErrInvalidRules
	}
	return nil
}

func applyStrategy(property *domain.Property, strategy domain.Strategy) {
	property.Tier = strategy.Tier
	property.FloorPrice = strategy.FloorPrice
	property.BasePrice = strategy.BasePrice
	property.CeilingPrice = strategy.CeilingPrice
	property.AllowOverride = strategy.AllowOverride
	property.StrategyJSON = mustJSON(strategy)
}

func applyRules(property *domain.Property, rules domain.Rules) {
	property.MinStay = rules.MinStay
	property.MaxStay = rules.MaxStay
	property.WeeklyDiscountPct = rules.WeeklyDiscountPct
	property.MonthlyDiscountPct = rules.MonthlyDiscountPct
	property.WeekendMarkupPct = rules.WeekendMarkupPct
	property.RulesJSON = mustJSON(rules)
}

func mustJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}

func normalizeCurrency(raw string) string {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if len(currency) != 3 {
		return "EUR"
	}
	return currency
}

func normalizePropertyType(raw string) string {
	propertyType := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := propertyTypes[propertyType]; !ok {
		return "other"
	}
	return propertyType
}
