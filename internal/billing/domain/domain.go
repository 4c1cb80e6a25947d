package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type SubscriptionStatus string

const (
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription mirrors the provider-side subscription for one owner.
type Subscription struct {
	ID           snowflake.ID       `gorm:"primaryKey" json:"id"`
	OwnerID      snowflake.ID       `gorm:"not null;uniqueIndex" json:"owner_id"`
	ProviderID   string             `gorm:"not null" json:"provider_id"`
	CustomerID   string             `gorm:"not null" json:"customer_id"`
	Status       SubscriptionStatus `gorm:"not null;default:trialing" json:"status"`
	ParentItemID string             `json:"parent_item_id,omitempty"`
	ChildItemID  string             `json:"child_item_id,omitempty"`
	ParentQty    int                `gorm:"not null;default:0" json:"parent_qty"`
	ChildQty     int                `gorm:"not null;default:0" json:"child_qty"`
	TrialEndsAt  *time.Time         `json:"trial_ends_at,omitempty"`
	CreatedAt    time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// BillingEvent deduplicates webhook deliveries on (provider, event id).
type BillingEvent struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	Provider        string       `gorm:"not null;uniqueIndex:idx_billing_events_provider_event" json:"provider"`
	ProviderEventID string       `gorm:"not null;uniqueIndex:idx_billing_events_provider_event" json:"provider_event_id"`
	Type            string       `gorm:"not null" json:"type"`
	ReceivedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"received_at"`
}

func (BillingEvent) TableName() string { return "billing_events" }

// Quantities is the billable inventory split of one owner.
type Quantities struct {
	Parent int `json:"parent"`
	Child  int `json:"child"`
}

// CheckoutSession is the provider redirect handle for a new subscription.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	TrialDays int    `json:"trial_days"`
}

// WebhookResult reports how one delivery was handled.
type WebhookResult struct {
	Duplicate bool   `json:"duplicate"`
	Type      string `json:"type"`
}

// CheckoutRequest seeds a provider checkout session.
type CheckoutRequest struct {
	CustomerEmail     string
	ClientReferenceID string
	ParentPriceID     string
	ChildPriceID      string
	ParentQty         int
	ChildQty          int
	TrialDays         int
	SuccessURL        string
	CancelURL         string
}

// Provider is the external billing API surface. Quantity changes never
// prorate.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error
	CreateItem(ctx context.Context, subscriptionID, priceID string, quantity int) (string, error)
	DeleteItem(ctx context.Context, itemID string) error
}

type Repository interface {
	FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*Subscription, error)
	FindByProviderID(ctx context.Context, db *gorm.DB, providerID string) (*Subscription, error)
	Upsert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	// RecordEvent returns false when the event was already processed.
	RecordEvent(ctx context.Context, db *gorm.DB, event *BillingEvent) (bool, error)
}

type Service interface {
	// Reconcile recomputes quantities and converges the provider
	// subscription items synchronously.
	Reconcile(ctx context.Context, ownerID snowflake.ID) (Quantities, error)
	// CreateCheckoutSession starts provider checkout, applying the trial
	// policy.
	CreateCheckoutSession(ctx context.Context, successURL, cancelURL string) (CheckoutSession, error)
	// HandleWebhook applies one provider event exactly once.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error)
	// Subscription returns the owner's subscription, nil when absent.
	Subscription(ctx context.Context) (*Subscription, error)
}

var (
	ErrInvalidOwner     = errors.New("invalid_owner")
	ErrInvalidSignature = errors.New("invalid_webhook_signature")
	ErrNoSubscription   = errors.New("no_subscription")
	ErrProvider         = errors.New("billing_provider_error")
)
