package domain

import (
	"context"
	"errors"
)

type OverrideEntry struct {
	Date     string  `json:"date"`
	Price    float64 `json:"price"`
	IsLocked bool    `json:"is_locked"`
	Reason   string  `json:"reason,omitempty"`
}

type PutOverridesRequest struct {
	PropertyID string
	Entries    []OverrideEntry `json:"overrides"`
}

type ListOverridesRequest struct {
	PropertyID string
	Start      string
	End        string
}

type Service interface {
	ListRange(ctx context.Context, req ListOverridesRequest) ([]PriceOverride, error)
	Put(ctx context.Context, req PutOverridesRequest) ([]PriceOverride, error)
	Delete(ctx context.Context, propertyID, date string) error
}

var (
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidDates = errors.New("invalid_dates")
	ErrInvalidPrice = errors.New("invalid_price")
	ErrNotFound     = errors.New("not_found")
)
