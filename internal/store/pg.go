package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-transfer-alert/internal/adapter"
	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/store/schema"
)

type pgStore struct {
	db    *gorm.DB
	clock adapter.Clock
}

// NewPGStore creates a new PostgreSQL store instance backed by the key_value_store table
func NewPGStore(db *gorm.DB, clock adapter.Clock) Store {
	return &pgStore{db: db, clock: clock}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values fall back to 5 open connections, 2 idle connections and a 30 minute lifetime.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 5
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 2
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 30 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return nil
}

func (s *pgStore) Seen(ctx context.Context, key domain.DedupKey) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.KeyValueStore{}).
		Where("key = ? AND (expires_at IS NULL OR expires_at > ?)", key.String(), s.clock.Now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return count > 0, nil
}

func (s *pgStore) Mark(ctx context.Context, key domain.DedupKey, ttl time.Duration) error {
	now := s.clock.Now()
	expiresAt := now.Add(ttl)

	kv := schema.KeyValueStore{
		Key:       key.String(),
		Value:     domain.DEDUP_MARKER_VALUE,
		ExpiresAt: &expiresAt,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":      domain.DEDUP_MARKER_VALUE,
				"expires_at": expiresAt,
				"updated_at": now,
			}),
		}).
		Create(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set dedup key: %w", err)
	}
	return nil
}

// MarkIfAbsent inserts the marker, or takes over a row whose expiry has passed.
// A live row makes the conditional update a no-op, which shows up as zero affected rows.
func (s *pgStore) MarkIfAbsent(ctx context.Context, key domain.DedupKey, ttl time.Duration) (bool, error) {
	now := s.clock.Now()
	expiresAt := now.Add(ttl)

	kv := schema.KeyValueStore{
		Key:       key.String(),
		Value:     domain.DEDUP_MARKER_VALUE,
		ExpiresAt: &expiresAt,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":      domain.DEDUP_MARKER_VALUE,
				"expires_at": expiresAt,
				"updated_at": now,
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{
					SQL:  "key_value_store.expires_at IS NOT NULL AND key_value_store.expires_at <= ?",
					Vars: []interface{}{now},
				},
			}},
		}).
		Create(&kv)
	if result.Error != nil {
		return false, fmt.Errorf("failed to set dedup key: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("SELECT 1").Error
}

func (s *pgStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.clock.Now()).
		Delete(&schema.KeyValueStore{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired dedup keys: %w", result.Error)
	}
	return result.RowsAffected, nil
}
