package store

import (
	"context"
	"time"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
)

// Store records which transfer events have already been notified.
// Every implementation treats an entry whose TTL has elapsed as absent.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Seen reports whether key is present and unexpired
	Seen(ctx context.Context, key domain.DedupKey) (bool, error)

	// Mark records key for ttl, replacing any existing entry
	Mark(ctx context.Context, key domain.DedupKey, ttl time.Duration) error

	// MarkIfAbsent records key for ttl only if it is absent or expired.
	// It returns true when this call created the entry.
	MarkIfAbsent(ctx context.Context, key domain.DedupKey, ttl time.Duration) (bool, error)

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
}

// Purger is implemented by stores whose expired entries are not removed automatically
type Purger interface {
	// PurgeExpired deletes expired entries and returns how many were removed
	PurgeExpired(ctx context.Context) (int64, error)
}
