package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusError    Status = "error"
)

type Tier string

const (
	TierCautious   Tier = "cautious"
	TierBalanced   Tier = "balanced"
	TierAggressive Tier = "aggressive"
)

// Strategy is the pricing envelope of a property: the operative price triple
// and the aggressiveness tier. Persisted both as raw JSON and as flattened
// columns.
type Strategy struct {
	Tier          Tier    `json:"tier"`
	FloorPrice    float64 `json:"floor_price"`
	BasePrice     float64 `json:"base_price"`
	CeilingPrice  float64 `json:"ceiling_price"`
	AllowOverride bool    `json:"allow_override"`
}

// Rules hold stay constraints and calendar adjustments. Discounts are whole
// percentages in [0, 100]; the weekend markup has no upper bound.
type Rules struct {
	MinStay            int     `json:"min_stay"`
	MaxStay            int     `json:"max_stay"`
	WeeklyDiscountPct  int     `json:"weekly_discount_pct"`
	MonthlyDiscountPct int     `json:"monthly_discount_pct"`
	WeekendMarkupPct   float64 `json:"weekend_markup_pct"`
}

type Property struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID snowflake.ID `gorm:"not null;index" json:"owner_id"`

	Name     string  `gorm:"not null" json:"name"`
	Address  string  `json:"address"`
	Location string  `gorm:"index" json:"location"`
	PMSType  string  `gorm:"column:pms_type" json:"pms_type,omitempty"`
	PMSID    *string `gorm:"column:pms_id;index" json:"pms_id,omitempty"`
	Status   Status  `gorm:"not null;default:active;index" json:"status"`
	Currency string  `gorm:"not null;default:EUR" json:"currency"`
	Timezone string  `gorm:"not null;default:UTC" json:"timezone"`

	// Flattened strategy and rules, kept in lockstep with the JSON columns.
	Tier               Tier    `gorm:"not null;default:balanced" json:"tier"`
	BasePrice          float64 `gorm:"not null;default:0" json:"base_price"`
	FloorPrice         float64 `gorm:"not null;default:0" json:"floor_price"`
	CeilingPrice       float64 `gorm:"not null;default:0" json:"ceiling_price"`
	AllowOverride      bool    `gorm:"not null;default:false" json:"allow_override"`
	MinStay            int     `gorm:"not null;default:1" json:"min_stay"`
	MaxStay            int     `gorm:"not null;default:0" json:"max_stay"`
	WeeklyDiscountPct  int     `gorm:"not null;default:0" json:"weekly_discount_pct"`
	MonthlyDiscountPct int     `gorm:"not null;default:0" json:"monthly_discount_pct"`
	WeekendMarkupPct   float64 `gorm:"not null;default:0" json:"weekend_markup_pct"`

	// Attributes the group recommender clusters on.
	PropertyType string `gorm:"not null;default:other" json:"property_type"`
	Capacity     int    `gorm:"not null;default:0" json:"capacity"`
	Bedrooms     int    `gorm:"not null;default:0" json:"bedrooms"`

	StrategyJSON datatypes.JSON `gorm:"column:strategy;type:jsonb" json:"-"`
	RulesJSON    datatypes.JSON `gorm:"column:rules;type:jsonb" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Property) TableName() string { return "properties" }

// StrategyView returns the flattened strategy of the property.
func (p Property) StrategyView() Strategy {
	return Strategy{
		Tier:          p.Tier,
		FloorPrice:    p.FloorPrice,
		BasePrice:     p.BasePrice,
		CeilingPrice:  p.CeilingPrice,
		AllowOverride: p.AllowOverride,
	}
}

// RulesView returns the flattened rules of the property.
func (p Property) RulesView() Rules {
	return Rules{
		MinStay:            p.MinStay,
		MaxStay:            p.MaxStay,
		WeeklyDiscountPct:  p.WeeklyDiscountPct,
		MonthlyDiscountPct: p.MonthlyDiscountPct,
		WeekendMarkupPct:   p.WeekendMarkupPct,
	}
}

// Location resolves the property timezone, falling back to UTC.
func (p Property) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

// Actor types for property audit entries. A system actor never carries an
// owner id.
const (
	ActorOwner  = "owner"
	ActorSystem = "system"
)

// PropertyLog is an append-only audit trail entry. IDs are ULIDs so entries
// sort lexicographically by creation time.
type PropertyLog struct {
	ID         string            `gorm:"primaryKey" json:"id"`
	PropertyID snowflake.ID      `gorm:"not null;index" json:"property_id"`
	ActorType  string            `gorm:"not null" json:"actor_type"`
	ActorID    *snowflake.ID     `json:"actor_id,omitempty"`
	Action     string            `gorm:"not null" json:"action"`
	Diff       datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"diff"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PropertyLog) TableName() string { return "property_logs" }
