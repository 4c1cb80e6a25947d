package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, key string) (*MarketSignal, error)
	Upsert(ctx context.Context, db *gorm.DB, signal *MarketSignal) error
}

// Fetcher produces fresh payloads for cache refills. Implemented by the AI
// module.
type Fetcher interface {
	FetchNews(ctx context.Context, language string) (json.RawMessage, error)
	FetchAnalysis(ctx context.Context, propertyID snowflake.ID, date time.Time, language string) (json.RawMessage, error)
}

type Service interface {
	// GetNews returns the last-good market news for a language. A stale or
	// missing entry triggers an asynchronous, coalesced refill; the call
	// never blocks on the provider.
	GetNews(ctx context.Context, language string) (Signal, error)
	// GetAnalysis behaves like GetNews for a per-(property, date) analysis.
	GetAnalysis(ctx context.Context, propertyID snowflake.ID, date time.Time, language string) (Signal, error)
	// RefreshAnalysis fetches synchronously, persists the result and primes
	// the cache. Used by the on-demand analysis endpoint.
	RefreshAnalysis(ctx context.Context, propertyID snowflake.ID, date time.Time, language string) (Signal, error)
}

var (
	ErrNotReady        = errors.New("signal_not_ready")
	ErrInvalidLanguage = errors.New("invalid_language")
)
