package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	pmsdomain "github.com/hostwise/nightly/internal/pms/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	"gorm.io/gorm"
)

type Status string

const (
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

// Integration is one owner's connection to a PMS account. Credentials are
// sealed at rest; an owner holds at most one integration per provider.
type Integration struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID     snowflake.ID `gorm:"not null;uniqueIndex:idx_integrations_owner_pms" json:"owner_id"`
	PMSType     string       `gorm:"not null;uniqueIndex:idx_integrations_owner_pms" json:"pms_type"`
	Credentials []byte       `gorm:"not null" json:"-"`
	Status      Status       `gorm:"not null;default:connected" json:"status"`
	Enabled     bool         `gorm:"not null;default:true" json:"enabled"`
	LastSyncAt  *time.Time   `json:"last_sync_at,omitempty"`
	LastPushAt  *time.Time   `json:"last_push_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Integration) TableName() string { return "integrations" }

// PropertyPreview is one remote listing in a sync-properties preview.
type PropertyPreview struct {
	pmsdomain.NormalizedProperty
	AlreadyImported bool `json:"already_imported"`
}

// ImportResult reports one committed import.
type ImportResult struct {
	Imported []*propertydomain.Property `json:"imported"`
	Updated  []*propertydomain.Property `json:"updated"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, integration *Integration) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Integration, error)
	FindByType(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, pmsType string) (*Integration, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]*Integration, error)
	// ListEnabled spans all owners; the scheduler drives pulls from it.
	ListEnabled(ctx context.Context, db *gorm.DB) ([]*Integration, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error
	UpdateLastSync(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	UpdateLastPush(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error
}

type Service interface {
	// TestConnection probes the provider with the supplied credentials
	// without persisting anything.
	TestConnection(ctx context.Context, pmsType string, credentials map[string]string) error
	// Connect verifies credentials, seals them and stores the integration.
	Connect(ctx context.Context, pmsType string, credentials map[string]string) (*Integration, error)
	List(ctx context.Context) ([]*Integration, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Integration, error)
	Disconnect(ctx context.Context, id snowflake.ID) error
	// SyncProperties previews the remote listings without committing.
	SyncProperties(ctx context.Context, id snowflake.ID) ([]PropertyPreview, error)
	// ImportProperties commits selected listings (all when pmsIDs is empty).
	// Re-importing a listing updates it in place.
	ImportProperties(ctx context.Context, id snowflake.ID, pmsIDs []string) (*ImportResult, error)
	// AdapterFor unseals credentials and builds the provider adapter.
	AdapterFor(ctx context.Context, integration *Integration) (pmsdomain.Adapter, error)
}

var (
	ErrInvalidOwner     = errors.New("invalid_owner")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("not_found")
	ErrAlreadyConnected = errors.New("provider_already_connected")
	ErrDisabled         = errors.New("integration_disabled")
)
