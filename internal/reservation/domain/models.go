package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

type PricingMethod string

const (
	PricingAI     PricingMethod = "ai"
	PricingManual PricingMethod = "manual"
)

// Reservation occupies the nights [StartDate, EndDate). Non-cancelled
// reservations for the same property never overlap on a night.
type Reservation struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	OwnerID       snowflake.ID  `gorm:"not null;index" json:"owner_id"`
	PropertyID    snowflake.ID  `gorm:"not null;index" json:"property_id"`
	PMSID         *string       `gorm:"column:pms_id" json:"pms_id,omitempty"`
	StartDate     time.Time     `gorm:"not null;type:date;index" json:"start_date"`
	EndDate       time.Time     `gorm:"not null;type:date" json:"end_date"`
	TotalPrice    float64       `gorm:"not null;default:0" json:"total_price"`
	Channel       string        `json:"channel"`
	Status        Status        `gorm:"not null;default:pending;index" json:"status"`
	PricingMethod PricingMethod `gorm:"not null;default:manual" json:"pricing_method"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Reservation) TableName() string { return "reservations" }

// Nights returns the number of occupied nights.
func (r Reservation) Nights() int {
	return int(r.EndDate.Sub(r.StartDate).Hours() / 24)
}

// Overlaps reports whether two reservations share a night.
func (r Reservation) Overlaps(other Reservation) bool {
	return r.StartDate.Before(other.EndDate) && other.StartDate.Before(r.EndDate)
}
