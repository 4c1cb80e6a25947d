package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	"github.com/hostwise/nightly/internal/grouprec/domain"
	"github.com/hostwise/nightly/internal/ownerctx"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// A cluster below this size is not worth proposing.
const minClusterSize = 2

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Properties propertydomain.Repository
	GroupRepo  groupdomain.Repository
	Groups     groupdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	properties propertydomain.Repository
	groupRepo  groupdomain.Repository
	groups     groupdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("grouprec.service"),
		properties: p.Properties,
		groupRepo:  p.GroupRepo,
		groups:     p.Groups,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Recommendation, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}
	return s.ScanOwner(ctx, ownerID)
}

// ScanOwner clusters the owner's active ungrouped properties by equivalence
// of location, property type, capacity and bedroom count.
func (s *Service) ScanOwner(ctx context.Context, ownerID snowflake.ID) ([]domain.Recommendation, error) {
	if ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}

	properties, err := s.properties.ListAll(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}

	grouped, err := s.groupedPropertyIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	clusters := make(map[string]*domain.Recommendation)
	for _, property := range properties {
		if property == nil || property.Status != propertydomain.StatusActive {
			continue
		}
		if _, member := grouped[property.ID]; member {
			continue
		}
		if strings.TrimSpace(property.Location) == "" {
			continue
		}

		key := clusterKey(property)
		cluster, ok := clusters[key]
		if !ok {
			cluster = &domain.Recommendation{
				Key:          key,
				Location:     property.Location,
				PropertyType: property.PropertyType,
				Capacity:     property.Capacity,
				Bedrooms:     property.Bedrooms,
			}
			clusters[key] = cluster
		}
		cluster.PropertyIDs = append(cluster.PropertyIDs, property.ID)
	}

	recommendations := make([]domain.Recommendation, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster.PropertyIDs) < minClusterSize {
			continue
		}
		sort.Slice(cluster.PropertyIDs, func(i, j int) bool {
			return cluster.PropertyIDs[i] < cluster.PropertyIDs[j]
		})
		recommendations = append(recommendations, *cluster)
	}
	sort.Slice(recommendations, func(i, j int) bool {
		return recommendations[i].Key < recommendations[j].Key
	})

	s.log.Debug("grouprec.scanned",
		zap.String("owner_id", ownerID.String()),
		zap.Int("recommendations", len(recommendations)),
	)
	return recommendations, nil
}

func (s *Service) Accept(ctx context.Context, req domain.AcceptRequest) (groupdomain.GroupWithMembers, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return groupdomain.GroupWithMembers{}, domain.ErrInvalidOwner
	}
	if len(req.PropertyIDs) < minClusterSize {
		return groupdomain.GroupWithMembers{}, domain.ErrTooFewMembers
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		derived, err := s.deriveName(ctx, ownerID, req.PropertyIDs[0])
		if err != nil {
			return groupdomain.GroupWithMembers{}, err
		}
		name = derived
	}

	group, err := s.groups.Create(ctx, groupdomain.CreateGroupRequest{
		Name:        name,
		PropertyIDs: req.PropertyIDs,
	})
	if err != nil {
		return groupdomain.GroupWithMembers{}, err
	}

	s.log.Info("grouprec.accepted",
		zap.String("owner_id", ownerID.String()),
		zap.String("group_id", group.ID.String()),
		zap.Int("members", len(group.Members)),
	)
	return group, nil
}

func (s *Service) groupedPropertyIDs(ctx context.Context, ownerID snowflake.ID) (map[snowflake.ID]struct{}, error) {
	groups, err := s.groupRepo.List(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}

	grouped := make(map[snowflake.ID]struct{})
	for _, group := range groups {
		members, err := s.groupRepo.ListMembers(ctx, s.db, group.ID)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			grouped[member.PropertyID] = struct{}{}
		}
	}
	return grouped, nil
}

func (s *Service) deriveName(ctx context.Context, ownerID snowflake.ID, raw string) (string, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return "", groupdomain.ErrInvalidID
	}
	property, err := s.properties.FindByID(ctx, s.db, ownerID, id)
	if err != nil {
		return "", err
	}
	if property == nil {
		return "", groupdomain.ErrNotFound
	}
	return fmt.Sprintf("%s %s x%d", property.Location, property.PropertyType, property.Capacity), nil
}

func clusterKey(property *propertydomain.Property) string {
	return slug.Make(fmt.Sprintf("%s %s %dp %dbr",
		property.Location, property.PropertyType, property.Capacity, property.Bedrooms))
}
