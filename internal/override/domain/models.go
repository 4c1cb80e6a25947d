package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PriceOverride pins a nightly rate for a (property, date). Locked entries
// are never overwritten by the pricing engine.
type PriceOverride struct {
	PropertyID snowflake.ID `gorm:"primaryKey" json:"property_id"`
	Date       time.Time    `gorm:"primaryKey;type:date" json:"date"`
	Price      float64      `gorm:"not null" json:"price"`
	IsLocked   bool         `gorm:"not null;default:false" json:"is_locked"`
	Reason     string       `json:"reason,omitempty"`
	UpdatedBy  string       `gorm:"not null;default:system" json:"updated_by"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PriceOverride) TableName() string { return "price_overrides" }
