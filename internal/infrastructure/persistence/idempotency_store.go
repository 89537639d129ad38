package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormIdempotencyStore keeps processed keys in the processed_keys table, so
// receipt deduplication survives restarts without a Redis server.
type GormIdempotencyStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormIdempotencyStore creates a new GormIdempotencyStore
func NewGormIdempotencyStore(db *gorm.DB) *GormIdempotencyStore {
	return &GormIdempotencyStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// MarkProcessed records key. It returns false when the key is already held.
// An expired row is replaced.
func (s *GormIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := s.now()
	db := s.db.WithContext(ctx)

	if err := db.Where("idempotency_key = ? AND expires_at IS NOT NULL AND expires_at <= ?", key, now).
		Delete(&models.ProcessedKeyModel{}).Error; err != nil {
		return false, err
	}

	record := models.ProcessedKeyModel{Key: key, ProcessedAt: now}
	if ttl > 0 {
		expires := now.Add(ttl)
		record.ExpiresAt = &expires
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IsProcessed reports whether key is held and not expired
func (s *GormIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	var record models.ProcessedKeyModel
	err := s.db.WithContext(ctx).First(&record, "idempotency_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !record.Expired(s.now()), nil
}

// Forget releases key
func (s *GormIdempotencyStore) Forget(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&models.ProcessedKeyModel{}, "idempotency_key = ?", key).Error
}

// PurgeExpired removes expired keys and returns how many were deleted
func (s *GormIdempotencyStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&models.ProcessedKeyModel{})
	return result.RowsAffected, result.Error
}

// Close is a no-op; the database connection is owned by Database
func (s *GormIdempotencyStore) Close() error {
	return nil
}

// Ensure GormIdempotencyStore implements IdempotencyStore
var _ shared.IdempotencyStore = (*GormIdempotencyStore)(nil)
