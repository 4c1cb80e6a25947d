package engine

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/pricing/guardrail"
)

// Decision sources, most specific first.
const (
	SourceOverride  = "override"
	SourceAI        = "ai"
	SourceHeuristic = "heuristic"
)

// Decision is the priced outcome for one calendar date.
type Decision struct {
	Date   time.Time        `json:"date"`
	Price  float64          `json:"price"`
	Source string           `json:"source"`
	Reason guardrail.Reason `json:"reason"`
	Locked bool             `json:"locked,omitempty"`
}

// RunRequest prices one property over an inclusive date range.
type RunRequest struct {
	PropertyID snowflake.ID `json:"property_id"`
	StartDate  time.Time    `json:"start_date"`
	EndDate    time.Time    `json:"end_date"`
	UseAI      bool         `json:"use_ai"`
}

// RunSummary tallies one pricing run. A date lands in exactly one bucket.
type RunSummary struct {
	PropertyID    snowflake.ID `json:"property_id"`
	Decisions     []Decision   `json:"decisions"`
	Decided       int          `json:"decided"`
	SkippedLocked int          `json:"skipped_locked"`
	Failed        int          `json:"failed"`
}

type Service interface {
	// Run prices every date of the range in ascending order. Failures on one
	// date never abort the remaining dates.
	Run(ctx context.Context, req RunRequest) (RunSummary, error)
	// RunOwner prices every active property of the calling owner.
	RunOwner(ctx context.Context, start, end time.Time, useAI bool) ([]RunSummary, error)
}

var (
	ErrInvalidRange     = errors.New("invalid_date_range")
	ErrPropertyInactive = errors.New("property_inactive")
)
