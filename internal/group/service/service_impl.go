package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/hostwise/nightly/internal/billing/domain"
	"github.com/hostwise/nightly/internal/group/domain"
	"github.com/hostwise/nightly/internal/ownerctx"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	"github.com/hostwise/nightly/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Properties propertydomain.Repository
	Billing    billingdomain.Reconciler
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	properties propertydomain.Repository
	billing    billingdomain.Reconciler
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("group.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		properties: p.Properties,
		billing:    p.Billing,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateGroupRequest) (domain.GroupWithMembers, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.GroupWithMembers{}, domain.ErrInvalidOwner
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.GroupWithMembers{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	group := domain.Group{
		ID:         s.genID.Generate(),
		OwnerID:    ownerID,
		Name:       name,
		SyncPrices: req.SyncPrices,
		Tier:       propertydomain.TierBalanced,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Strategy != nil {
		applyStrategy(&group, *req.Strategy)
	}

	memberIDs := make([]snowflake.ID, 0, len(req.PropertyIDs))
	for _, raw := range req.PropertyIDs {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil || id == 0 {
			return domain.GroupWithMembers{}, domain.ErrInvalidID
		}
		memberIDs = append(memberIDs, id)
	}

	if req.MainPropertyID != "" {
		mainID, err := snowflake.ParseString(strings.TrimSpace(req.MainPropertyID))
		if err != nil || mainID == 0 {
			return domain.GroupWithMembers{}, domain.ErrInvalidID
		}
		member := false
		for _, id := range memberIDs {
			if id == mainID {
				member = true
				break
			}
		}
		if !member {
			return domain.GroupWithMembers{}, domain.ErrNotMember
		}
		group.MainPropertyID = &mainID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &group); err != nil {
			return err
		}
		for position, propertyID := range memberIDs {
			if err := s.addMember(ctx, tx, ownerID, group.ID, propertyID, position+1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.GroupWithMembers{}, err
	}

	s.billing.InventoryChanged(ctx, ownerID)
	return s.withMembers(ctx, group)
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.GroupWithMembers, error) {
	ownerID, groupID, err := s.resolve(ctx, id)
	if err != nil {
		return domain.GroupWithMembers{}, err
	}

	group, err := s.repo.FindByID(ctx, s.db, ownerID, groupID)
	if err != nil {
		return domain.GroupWithMembers{}, err
	}
	if group == nil {
		return domain.GroupWithMembers{}, domain.ErrNotFound
	}
	return s.withMembers(ctx, *group)
}

func (s *Service) List(ctx context.Context) ([]domain.GroupWithMembers, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}

	groups, err := s.repo.List(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}

	result := make([]domain.GroupWithMembers, 0, len(groups))
	for _, group := range groups {
		if group == nil {
			continue
		}
		withMembers, err := s.withMembers(ctx, *group)
		if err != nil {
			return nil, err
		}
		result = append(result, withMembers)
	}
	return result, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateGroupRequest) (domain.GroupWithMembers, error) {
	ownerID, groupID, err := s.resolve(ctx, req.ID)
	if err != nil {
		return domain.GroupWithMembers{}, err
	}

	group, err := s.repo.FindByID(ctx, s.db, ownerID, groupID)
	if err != nil {
		return domain.GroupWithMembers{}, err
	}
	if group == nil {
		return domain.GroupWithMembers{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.GroupWithMembers{}, domain.ErrInvalidName
		}
		group.Name = name
	}
	if req.SyncPrices != nil {
		group.SyncPrices = *req.SyncPrices
	}
	if req.MainPropertyID != nil {
		raw := strings.TrimSpace(*req.MainPropertyID)
		if raw == "" {
			group.MainPropertyID = nil
		} else {
			mainID, err := snowflake.ParseString(raw)
			if err != nil || mainID == 0 {
				return domain.GroupWithMembers{}, domain.ErrInvalidID
			}
			memberGroup, err := s.repo.MemberGroup(ctx, s.db, mainID)
			if err != nil {
				return domain.GroupWithMembers{}, err
			}
			if memberGroup != groupID {
				return domain.GroupWithMembers{}, domain.ErrNotMember
			}
			group.MainPropertyID = &mainID
		}
	}
	if req.Strategy != nil {
		applyStrategy(group, *req.Strategy)
	}

	group.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, group); err != nil {
		return domain.GroupWithMembers{}, err
	}
	return s.withMembers(ctx, *group)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ownerID, groupID, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}

	group, err := s.repo.FindByID(ctx, s.db, ownerID, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return domain.ErrNotFound
	}

	// Members survive group deletion.
	if err := s.repo.Delete(ctx, s.db, ownerID, groupID); err != nil {
		return err
	}

	s.billing.InventoryChanged(ctx, ownerID)
	return nil
}

func (s *Service) AddProperties(ctx context.Context, req domain.MembershipRequest) (domain.GroupWithMembers, error) {
	ownerID, groupID, err := s.resolve(ctx, req.GroupID)
	if err != nil {
		return domain.GroupWithMembers{}, err
	}

	group, err := s.repo.FindByID(ctx, s.db, ownerID, groupID)
	if err != nil {
		return domain.GroupWithMembers{}, err
	}
	if group == nil {
		return domain.GroupWithMembers{}, domain.ErrNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, raw := range req.PropertyIDs {
			propertyID, err := snowflake.ParseString(strings.TrimSpace(raw))
			if err != nil || propertyID == 0 {
				return domain.ErrInvalidID
			}
			position, err := s.repo.NextPosition(ctx, tx, groupID)
			if err != nil {
				return err
			}
			if err := s.addMember(ctx, tx, ownerID, groupID, propertyID, position); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.GroupWithMembers{}, err
	}

	s.billing.InventoryChanged(ctx, ownerID)
	return s.withMembers(ctx, *group)
}

func (s *Service) RemoveProperties(ctx context.Context, req domain.MembershipRequest) (domain.GroupWithMembers, error) {
	ownerID, groupID, err := s.resolve(ctx, req.GroupID)
	if err != nil {
		return domain.GroupWithMembers{}, err
	}

	group, err := s.repo.FindByID(ctx, s.db, ownerID, groupID)
	if err != nil {
		return domain.GroupWithMembers{}, err
	}
	if group == nil {
		return domain.GroupWithMembers{}, domain.ErrNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, raw := range req.PropertyIDs {
			propertyID, err := snowflake.ParseString(strings.TrimSpace(raw))
			if err != nil || propertyID == 0 {
				return domain.ErrInvalidID
			}
			memberGroup, err := s.repo.MemberGroup(ctx, tx, propertyID)
			if err != nil {
				return err
			}
			if memberGroup != groupID {
				return domain.ErrNotMember
			}
			if err := s.repo.RemoveMember(ctx, tx, groupID, propertyID); err != nil {
				return err
			}
			if group.MainPropertyID != nil && *group.MainPropertyID == propertyID {
				group.MainPropertyID = nil
				group.UpdatedAt = time.Now().UTC()
				if err := s.repo.Update(ctx, tx, group); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return domain.GroupWithMembers{}, err
	}

	s.billing.InventoryChanged(ctx, ownerID)
	return s.withMembers(ctx, *group)
}

func (s *Service) addMember(ctx context.Context, tx *gorm.DB, ownerID, groupID, propertyID snowflake.ID, position int) error {
	property, err := s.properties.FindByID(ctx, tx, ownerID, propertyID)
	if err != nil {
		return err
	}
	if property == nil {
		return domain.ErrNotFound
	}

	member := domain.Membership{
		GroupID:    groupID,
		PropertyID: propertyID,
		Position:   position,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.AddMember(ctx, tx, &member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrPropertyGrouped
		}
		return err
	}
	return nil
}

func (s *Service) withMembers(ctx context.Context, group domain.Group) (domain.GroupWithMembers, error) {
	members, err := s.repo.ListMembers(ctx, s.db, group.ID)
	if err != nil {
		return domain.GroupWithMembers{}, err
	}

	result := domain.GroupWithMembers{Group: group, Members: make([]domain.Membership, 0, len(members))}
	for _, member := range members {
		if member == nil {
			continue
		}
		result.Members = append(result.Members, *member)
	}
	return result, nil
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

func applyStrategy(group *domain.Group, strategy propertydomain.Strategy) {
	switch strategy.Tier {
	case propertydomain.TierCautious, propertydomain.TierBalanced, propertydomain.TierAggressive:
		group.Tier = strategy.Tier
	default:
		group.Tier = propertydomain.TierBalanced
	}
	group.FloorPrice = strategy.FloorPrice
	group.BasePrice = strategy.BasePrice
	group.CeilingPrice = strategy.CeilingPrice
	group.AllowOverride = strategy.AllowOverride

	raw, err := json.Marshal(group.StrategyView())
	if err == nil {
		group.StrategyJSON = datatypes.JSON(raw)
	}
}
