package domain

import (
	"context"
	"errors"
	"time"
)

// RequestTimeout is the hard deadline for one PMS round-trip.
const RequestTimeout = 30 * time.Second

// NormalizedProperty is the provider-neutral listing shape.
type NormalizedProperty struct {
	PMSID        string  `json:"pms_id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Location     string  `json:"location"`
	Currency     string  `json:"currency"`
	Timezone     string  `json:"timezone"`
	BasePrice    float64 `json:"base_price"`
	PropertyType string  `json:"property_type"`
	Capacity     int     `json:"capacity"`
	Bedrooms     int     `json:"bedrooms"`
}

// NormalizedReservation is the provider-neutral booking shape. Status is one
// of confirmed, pending, cancelled.
type NormalizedReservation struct {
	PMSID         string    `json:"pms_id"`
	PropertyPMSID string    `json:"property_pms_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	TotalPrice    float64   `json:"total_price"`
	Channel       string    `json:"channel"`
	Status        string    `json:"status"`
}

// RateUpdate is one (date, price) pair of a batch push.
type RateUpdate struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PropertySettings carries the optional fields a settings push may change.
type PropertySettings struct {
	BasePrice          *float64 `json:"base_price,omitempty"`
	MinStay            *int     `json:"min_stay,omitempty"`
	MaxStay            *int     `json:"max_stay,omitempty"`
	WeeklyDiscountPct  *int     `json:"weekly_discount_pct,omitempty"`
	MonthlyDiscountPct *int     `json:"monthly_discount_pct,omitempty"`
}

// Adapter is the uniform PMS contract. Implementations are stateless across
// calls; credentials are supplied at construction. Rate pushes must be
// idempotent on (property, date, price).
type Adapter interface {
	TestConnection(ctx context.Context) error
	ListProperties(ctx context.Context) ([]NormalizedProperty, error)
	ListReservations(ctx context.Context, start, end time.Time) ([]NormalizedReservation, error)
	UpdateRate(ctx context.Context, propertyPMSID string, date time.Time, price float64) error
	UpdateRatesBatch(ctx context.Context, propertyPMSID string, rates []RateUpdate) error
	UpdatePropertySettings(ctx context.Context, propertyPMSID string, settings PropertySettings) error
	CreateReservation(ctx context.Context, reservation NormalizedReservation) (string, error)
	UpdateReservation(ctx context.Context, pmsID string, reservation NormalizedReservation) error
	DeleteReservation(ctx context.Context, pmsID string) error
}

// AdapterConfig carries decrypted credentials and an optional endpoint
// override for tests.
type AdapterConfig struct {
	Credentials map[string]string
	BaseURL     string
}

// Factory builds an adapter from credentials.
type Factory func(cfg AdapterConfig) (Adapter, error)

var (
	ErrUnknownProvider    = errors.New("unknown_pms_provider")
	ErrInvalidCredentials = errors.New("invalid_pms_credentials")
	ErrRateLimited        = errors.New("pms_rate_limited")
	ErrUnavailable        = errors.New("pms_unavailable")
	ErrMalformedResponse  = errors.New("pms_malformed_response")
)
