package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
)

// Recommendation proposes grouping interchangeable listings. Advisory only;
// nothing is written until the owner accepts it.
type Recommendation struct {
	Key          string         `json:"key"`
	Location     string         `json:"location"`
	PropertyType string         `json:"property_type"`
	Capacity     int            `json:"capacity"`
	Bedrooms     int            `json:"bedrooms"`
	PropertyIDs  []snowflake.ID `json:"property_ids"`
}

type AcceptRequest struct {
	Name        string   `json:"name"`
	PropertyIDs []string `json:"property_ids"`
}

type Service interface {
	List(ctx context.Context) ([]Recommendation, error)
	Accept(ctx context.Context, req AcceptRequest) (groupdomain.GroupWithMembers, error)

	// ScanOwner recomputes recommendations for one owner outside of a
	// request context. Used by the scheduler.
	ScanOwner(ctx context.Context, ownerID snowflake.ID) ([]Recommendation, error)
}

var (
	ErrInvalidOwner  = errors.New("invalid_owner")
	ErrTooFewMembers = errors.New("too_few_members")
)
