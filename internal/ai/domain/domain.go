package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// AIUsageCounter tracks per-owner daily LLM usage. Day is the calendar date
// in the owner's timezone; the counter resets at local midnight.
type AIUsageCounter struct {
	OwnerID    snowflake.ID `gorm:"primaryKey" json:"owner_id"`
	Day        string       `gorm:"primaryKey;size:10" json:"day"`
	CallsToday int          `gorm:"not null;default:0" json:"calls_today"`
	MaxCalls   int          `gorm:"not null" json:"max_calls"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AIUsageCounter) TableName() string { return "ai_usage_counters" }

// QuotaStatus is the owner-facing view of the daily cap.
type QuotaStatus struct {
	CallsToday int       `json:"calls_today"`
	MaxCalls   int       `json:"max_calls"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// SuggestPriceRequest seeds a price suggestion call. Free-text fields are
// sanitized before prompt assembly.
type SuggestPriceRequest struct {
	PropertyID     snowflake.ID
	PropertyType   string
	Location       string
	Description    string
	Capacity       int
	Bedrooms       int
	Currency       string
	Date           time.Time
	BasePrice      float64
	HeuristicPrice float64
	Signals        []byte
}

// Suggestion is the structured provider output for a price call.
type Suggestion struct {
	Price     float64 `json:"price"`
	Rationale string  `json:"rationale,omitempty"`
}

type AnalyzeDateRequest struct {
	PropertyID snowflake.ID
	Date       time.Time
	Language   string
}

type Service interface {
	// SuggestPrice asks the provider for a nightly price. It consumes one
	// quota unit before any network I/O.
	SuggestPrice(ctx context.Context, req SuggestPriceRequest) (Suggestion, error)
	// AnalyzeDate produces a structured market analysis for one date.
	AnalyzeDate(ctx context.Context, req AnalyzeDateRequest) ([]byte, error)
	// Quota reports the owner's usage for today without consuming it.
	Quota(ctx context.Context) (QuotaStatus, error)
}

var (
	ErrInvalidOwner        = errors.New("invalid_owner")
	ErrInvalidInput        = errors.New("invalid_input")
	ErrQuotaExceeded       = errors.New("quota_exceeded")
	ErrProviderMalformed   = errors.New("provider_malformed_response")
	ErrProviderUnavailable = errors.New("provider_unavailable")
)
