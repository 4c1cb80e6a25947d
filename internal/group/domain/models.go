package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	"gorm.io/datatypes"
)

type Group struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	OwnerID        snowflake.ID  `gorm:"not null;index" json:"owner_id"`
	Name           string        `gorm:"not null" json:"name"`
	MainPropertyID *snowflake.ID `json:"main_property_id,omitempty"`
	SyncPrices     bool          `gorm:"not null;default:false" json:"sync_prices"`

	// Flattened strategy, same shape as a property's. Used by members when
	// sync_prices is set.
	Tier          propertydomain.Tier `gorm:"not null;default:balanced" json:"tier"`
	BasePrice     float64             `gorm:"not null;default:0" json:"base_price"`
	FloorPrice    float64             `gorm:"not null;default:0" json:"floor_price"`
	CeilingPrice  float64             `gorm:"not null;default:0" json:"ceiling_price"`
	AllowOverride bool                `gorm:"not null;default:false" json:"allow_override"`

	StrategyJSON datatypes.JSON `gorm:"column:strategy;type:jsonb" json:"-"`
	RulesJSON    datatypes.JSON `gorm:"column:rules;type:jsonb" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Group) TableName() string { return "groups" }

// StrategyView returns the group's flattened strategy.
func (g Group) StrategyView() propertydomain.Strategy {
	return propertydomain.Strategy{
		Tier:          g.Tier,
		FloorPrice:    g.FloorPrice,
		BasePrice:     g.BasePrice,
		CeilingPrice:  g.CeilingPrice,
		AllowOverride: g.AllowOverride,
	}
}

// Membership orders properties within a group. Position decides the billing
// parent when no main property is set; a property belongs to at most one
// group.
type Membership struct {
	GroupID    snowflake.ID `gorm:"primaryKey" json:"group_id"`
	PropertyID snowflake.ID `gorm:"primaryKey;uniqueIndex" json:"property_id"`
	Position   int          `gorm:"not null" json:"position"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Membership) TableName() string { return "group_memberships" }
