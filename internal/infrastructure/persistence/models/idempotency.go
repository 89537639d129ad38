package models

import "time"

// ProcessedKeyModel records an idempotency key that has already been applied.
type ProcessedKeyModel struct {
	Key         string     `gorm:"column:idempotency_key;primaryKey;type:varchar(255)"`
	ProcessedAt time.Time  `gorm:"not null"`
	ExpiresAt   *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (ProcessedKeyModel) TableName() string {
	return "processed_keys"
}

// Expired reports whether the key has passed its expiry at now
func (m *ProcessedKeyModel) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}
