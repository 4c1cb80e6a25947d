package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type AccessStatus string

const (
	AccessActive               AccessStatus = "active"
	AccessPaymentFailed        AccessStatus = "payment_failed"
	AccessSubscriptionCanceled AccessStatus = "subscription_canceled"
)

// Revoked reports whether the owner's access to paid surfaces is suspended.
func (s AccessStatus) Revoked() bool {
	return s == AccessPaymentFailed || s == AccessSubscriptionCanceled
}

type Owner struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Email        string       `gorm:"not null;uniqueIndex" json:"email"`
	Name         string       `gorm:"not null" json:"name"`
	Currency     string       `gorm:"not null;default:EUR" json:"currency"`
	Language     string       `gorm:"not null;default:en" json:"language"`
	Timezone     string       `gorm:"not null;default:UTC" json:"timezone"`
	AccessStatus AccessStatus `gorm:"not null;default:active" json:"access_status"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Owner) TableName() string { return "owners" }

// Location resolves the owner's timezone, falling back to UTC.
func (o Owner) Location() *time.Location {
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}
