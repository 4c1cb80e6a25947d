package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/pkg/db/pagination"
)

type CreatePropertyRequest struct {
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Location     string    `json:"location"`
	Currency     string    `json:"currency"`
	Timezone     string    `json:"timezone"`
	PropertyType string    `json:"property_type"`
	Capacity     int       `json:"capacity"`
	Bedrooms     int       `json:"bedrooms"`
	Strategy     *Strategy `json:"strategy"`
	Rules        *Rules    `json:"rules"`
}

type UpdatePropertyRequest struct {
	ID           string
	Name         *string `json:"name"`
	Address      *string `json:"address"`
	Location     *string `json:"location"`
	Currency     *string `json:"currency"`
	Timezone     *string `json:"timezone"`
	PropertyType *string `json:"property_type"`
	Capacity     *int    `json:"capacity"`
	Bedrooms     *int    `json:"bedrooms"`
}

type ListPropertiesRequest struct {
	PageToken string
	PageSize  int32
	Status    string
	Location  string
	PMSType   string
}

type ListPropertiesResponse struct {
	pagination.PageInfo
	Properties []Property `json:"properties"`
}

type ListLogsRequest struct {
	PropertyID string
	Limit      int
}

// LogEntry describes one append to the property audit trail. ActorID is nil
// for system actors.
type LogEntry struct {
	PropertyID snowflake.ID
	ActorType  string
	ActorID    *snowflake.ID
	Action     string
	Diff       map[string]interface{}
}

type Service interface {
	Create(ctx context.Context, req CreatePropertyRequest) (Property, error)
	GetByID(ctx context.Context, id string) (Property, error)
	List(ctx context.Context, req ListPropertiesRequest) (ListPropertiesResponse, error)
	Update(ctx context.Context, req UpdatePropertyRequest) (Property, error)
	Delete(ctx context.Context, id string) error
	UpdateStrategy(ctx context.Context, id string, strategy Strategy) (Property, error)
	UpdateRules(ctx context.Context, id string, rules Rules) (Property, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Property, error)
	AppendLog(ctx context.Context, entry LogEntry) error
	ListLogs(ctx context.Context, req ListLogsRequest) ([]PropertyLog, error)
}

var (
	ErrInvalidOwner    = errors.New("invalid_owner")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidStrategy = errors.New("invalid_strategy")
	ErrInvalidRules    = errors.New("invalid_rules")
	ErrInvalidTimezone = errors.New("invalid_timezone")
	ErrNotFound        = errors.New("not_found")
)
