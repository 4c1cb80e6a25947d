package domain

import (
	"context"
	"errors"
)

type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Currency *string `json:"currency"`
	Language *string `json:"language"`
	Timezone *string `json:"timezone"`
}

type Service interface {
	GetProfile(ctx context.Context) (Owner, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (Owner, error)
	SetAccessStatus(ctx context.Context, id int64, status AccessStatus) error
}

var (
	ErrInvalidOwner    = errors.New("invalid_owner")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidLanguage = errors.New("invalid_language")
	ErrInvalidTimezone = errors.New("invalid_timezone")
)
