package domain

import (
	"context"
	"errors"
)

type CreateReservationRequest struct {
	PropertyID    string  `json:"property_id"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	TotalPrice    float64 `json:"total_price"`
	Channel       string  `json:"channel"`
	Status        string  `json:"status"`
	PricingMethod string  `json:"pricing_method"`
}

type UpdateReservationRequest struct {
	ID         string
	StartDate  *string  `json:"start_date"`
	EndDate    *string  `json:"end_date"`
	TotalPrice *float64 `json:"total_price"`
	Status     *string  `json:"status"`
}

type ListReservationsRequest struct {
	Start string
	End   string
}

type Service interface {
	Create(ctx context.Context, req CreateReservationRequest) (Reservation, error)
	GetByID(ctx context.Context, id string) (Reservation, error)
	ListRange(ctx context.Context, req ListReservationsRequest) ([]Reservation, error)
	Update(ctx context.Context, req UpdateReservationRequest) (Reservation, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOwner  = errors.New("invalid_owner")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidDates  = errors.New("invalid_dates")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrStayLength    = errors.New("stay_length_not_allowed")
	ErrOverlap       = errors.New("reservation_overlap")
	ErrNotFound      = errors.New("not_found")
)
