package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// MarketSignal is the persisted last-good payload for a cache key. Keys span
// two namespaces: "news:<lang>" and "analysis:<property_id>:<date>:<lang>".
type MarketSignal struct {
	Key       string         `gorm:"primaryKey" json:"key"`
	Language  string         `gorm:"not null;index" json:"language"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (MarketSignal) TableName() string { return "market_signals" }

// Signal is the in-memory view handed to callers.
type Signal struct {
	Key       string          `json:"key"`
	Language  string          `json:"language"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}
