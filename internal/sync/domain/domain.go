package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	integrationdomain "github.com/hostwise/nightly/internal/integration/domain"
)

// Pull window relative to today, in days.
const (
	PullWindowPastDays   = 30
	PullWindowFutureDays = 90
)

// PullSummary tallies one reservation pull.
type PullSummary struct {
	IntegrationID snowflake.ID `json:"integration_id"`
	Created       int          `json:"created"`
	Updated       int          `json:"updated"`
	Cancelled     int          `json:"cancelled"`
	Unmatched     int          `json:"unmatched"`
}

// PushSummary tallies one rate push.
type PushSummary struct {
	IntegrationID snowflake.ID `json:"integration_id"`
	Properties    int          `json:"properties"`
	RatesPushed   int          `json:"rates_pushed"`
	Failed        int          `json:"failed"`
}

type Service interface {
	// Pull imports the owner's reservations for one integration over the
	// sliding window. At most one pull runs per (owner, pms_type).
	Pull(ctx context.Context, integrationID snowflake.ID) (PullSummary, error)
	// Push sends changed nightly rates to the PMS, batched per property.
	Push(ctx context.Context, integrationID snowflake.ID) (PushSummary, error)
	// PullIntegration is the scheduler entry point; it needs no owner
	// context.
	PullIntegration(ctx context.Context, integration *integrationdomain.Integration) (PullSummary, error)
	// PushIntegration is the scheduler entry point for pushes.
	PushIntegration(ctx context.Context, integration *integrationdomain.Integration) (PushSummary, error)
	// PullAll walks every enabled integration.
	PullAll(ctx context.Context) ([]PullSummary, error)
	// PushSettings mirrors the property's stay rules and base price to its
	// PMS listing. A property without a PMS link is a no-op.
	PushSettings(ctx context.Context, propertyID snowflake.ID) error
}

var ErrSyncInProgress = errors.New("sync_in_progress")
