package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/ownerctx"
	"github.com/hostwise/nightly/internal/pricing/rules"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	"github.com/hostwise/nightly/internal/reservation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Properties propertydomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	properties propertydomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("reservation.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		properties: p.Properties,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateReservationRequest) (domain.Reservation, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.Reservation{}, domain.ErrInvalidOwner
	}

	propertyID, err := snowflake.ParseString(strings.TrimSpace(req.PropertyID))
	if err != nil || propertyID == 0 {
		return domain.Reservation{}, domain.ErrInvalidID
	}

	property, err := s.properties.FindByID(ctx, s.db, ownerID, propertyID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if property == nil {
		return domain.Reservation{}, domain.ErrNotFound
	}

	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return domain.Reservation{}, err
	}

	status, err := parseStatus(req.Status, domain.StatusConfirmed)
	if err != nil {
		return domain.Reservation{}, err
	}

	if status != domain.StatusCancelled {
		if err := ensureStayLength(property, start, end); err != nil {
			return domain.Reservation{}, err
		}
		if err := s.ensureNoOverlap(ctx, propertyID, start, end, 0); err != nil {
			return domain.Reservation{}, err
		}
	}

	method := domain.PricingManual
	if strings.EqualFold(strings.TrimSpace(req.PricingMethod), string(domain.PricingAI)) {
		method = domain.PricingAI
	}

	now := time.Now().UTC()
	reservation := domain.Reservation{
		ID:            s.genID.Generate(),
		OwnerID:       ownerID,
		PropertyID:    propertyID,
		StartDate:     start,
		EndDate:       end,
		TotalPrice:    req.TotalPrice,
		Channel:       strings.TrimSpace(req.Channel),
		Status:        status,
		PricingMethod: method,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, &reservation); err != nil {
		return domain.Reservation{}, err
	}
	return reservation, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Reservation, error) {
	ownerID, reservationID, err := s.resolve(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}

	reservation, err := s.repo.FindByID(ctx, s.db, ownerID, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if reservation == nil {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return *reservation, nil
}

func (s *Service) ListRange(ctx context.Context, req domain.ListReservationsRequest) ([]domain.Reservation, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}

	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByOwnerRange(ctx, s.db, ownerID, start, end)
	if err != nil {
		return nil, err
	}

	reservations := make([]domain.Reservation, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		reservations = append(reservations, *item)
	}
	return reservations, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateReservationRequest) (domain.Reservation, error) {
	ownerID, reservationID, err := s.resolve(ctx, req.ID)
	if err != nil {
		return domain.Reservation{}, err
	}

	reservation, err := s.repo.FindByID(ctx, s.db, ownerID, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if reservation == nil {
		return domain.Reservation{}, domain.ErrNotFound
	}

	if req.StartDate != nil {
		start, err := time.Parse(dateLayout, strings.TrimSpace(*req.StartDate))
		if err != nil {
			return domain.Reservation{}, domain.ErrInvalidDates
		}
		reservation.StartDate = start
	}
	if req.EndDate != nil {
		end, err := time.Parse(dateLayout, strings.TrimSpace(*req.EndDate))
		if err != nil {
			return domain.Reservation{}, domain.ErrInvalidDates
		}
		reservation.EndDate = end
	}
	if reservation.EndDate.Before(reservation.StartDate) {
		return domain.Reservation{}, domain.ErrInvalidDates
	}
	if req.TotalPrice != nil {
		reservation.TotalPrice = *req.TotalPrice
	}
	if req.Status != nil {
		status, err := parseStatus(*req.Status, "")
		if err != nil {
			return domain.Reservation{}, err
		}
		reservation.Status = status
	}

	if reservation.Status != domain.StatusCancelled {
		property, err := s.properties.FindByID(ctx, s.db, ownerID, reservation.PropertyID)
		if err != nil {
			return domain.Reservation{}, err
		}
		if err := ensureStayLength(property, reservation.StartDate, reservation.EndDate); err != nil {
			return domain.Reservation{}, err
		}
		if err := s.ensureNoOverlap(ctx, reservation.PropertyID, reservation.StartDate, reservation.EndDate, reservation.ID); err != nil {
			return domain.Reservation{}, err
		}
	}

	reservation.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, reservation); err != nil {
		return domain.Reservation{}, err
	}
	return *reservation, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ownerID, reservationID, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}

	reservation, err := s.repo.FindByID(ctx, s.db, ownerID, reservationID)
	if err != nil {
		return err
	}
	if reservation == nil {
		return domain.ErrNotFound
	}
	return s.repo.Delete(ctx, s.db, ownerID, reservationID)
}

// ensureStayLength enforces the property's min/max stay on manual bookings.
func ensureStayLength(property *propertydomain.Property, start, end time.Time) error {
	if property == nil {
		return nil
	}
	nights := int(end.Sub(start).Hours() / 24)
	allowed := rules.StayAllowed(nights, rules.RuleSet{
		MinStay: property.MinStay,
		MaxStay: property.MaxStay,
	})
	if !allowed {
		return domain.ErrStayLength
	}
	return nil
}

func (s *Service) ensureNoOverlap(ctx context.Context, propertyID snowflake.ID, start, end time.Time, excludeID snowflake.ID) error {
	if !end.After(start) {
		// Zero-night stays never occupy a night.
		return nil
	}
	count, err := s.repo.CountOverlapping(ctx, s.db, propertyID, start, end, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrOverlap
	}
	return nil
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

func parseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, strings.TrimSpace(startRaw))
	if err != nil {
		return time.Time{}, time.Time{}, domain.ErrInvalidDates
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(endRaw))
	if err != nil {
		return time.Time{}, time.Time{}, domain.ErrInvalidDates
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, domain.ErrInvalidDates
	}
	return start, end, nil
}

func parseStatus(raw string, fallback domain.Status) (domain.Status, error) {
	status := domain.Status(strings.ToLower(strings.TrimSpace(raw)))
	if status == "" {
		if fallback != "" {
			return fallback, nil
		}
		return "", domain.ErrInvalidStatus
	}
	switch status {
	case domain.StatusConfirmed, domain.StatusPending, domain.StatusCancelled:
		return status, nil
	default:
		return "", domain.ErrInvalidStatus
	}
}
