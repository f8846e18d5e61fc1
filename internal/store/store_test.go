package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/mocks"
	"github.com/feral-file/ff-transfer-alert/internal/store"
)

// fakeNow is a controllable clock shared by the store under test
type fakeNow struct {
	now time.Time
}

func (f *fakeNow) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// newTestClock returns a mock clock whose Now reads from the returned fakeNow
func newTestClock(t *testing.T) (*mocks.MockClock, *fakeNow) {
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)

	// microsecond precision keeps values stable across a postgres round trip
	current := &fakeNow{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	clock.EXPECT().Now().DoAndReturn(func() time.Time { return current.now }).AnyTimes()

	return clock, current
}

// initStoreFunc creates a fresh store using the given clock
type initStoreFunc func(t *testing.T, clock *mocks.MockClock) store.Store

// RunStoreTests runs the behavioural suite shared by every backend that honours an injected clock
func RunStoreTests(t *testing.T, initStore initStoreFunc) {
	t.Run("MarkIfAbsent", func(t *testing.T) {
		clock, _ := newTestClock(t)
		testMarkIfAbsent(t, initStore(t, clock))
	})
	t.Run("Expiry", func(t *testing.T) {
		clock, now := newTestClock(t)
		testExpiry(t, initStore(t, clock), now)
	})
	t.Run("MarkOverwrites", func(t *testing.T) {
		clock, now := newTestClock(t)
		testMarkOverwrites(t, initStore(t, clock), now)
	})
	t.Run("KeysAreIndependent", func(t *testing.T) {
		clock, _ := newTestClock(t)
		testKeysAreIndependent(t, initStore(t, clock))
	})
	t.Run("PurgeExpired", func(t *testing.T) {
		clock, now := newTestClock(t)
		testPurgeExpired(t, initStore(t, clock), now)
	})
}

func testMarkIfAbsent(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := domain.NewDedupKey("0xaaa", 0)

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	created, err := s.MarkIfAbsent(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.MarkIfAbsent(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.False(t, created, "second claim of the same key must fail")

	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)

	assert.NoError(t, s.Ping(ctx))
}

func testExpiry(t *testing.T, s store.Store, now *fakeNow) {
	ctx := context.Background()
	key := domain.NewDedupKey("0xbbb", 1)

	created, err := s.MarkIfAbsent(ctx, key, time.Hour)
	require.NoError(t, err)
	require.True(t, created)

	now.advance(59 * time.Minute)
	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)

	created, err = s.MarkIfAbsent(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.False(t, created)

	now.advance(time.Minute)
	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen, "entry must be absent once its ttl has elapsed")

	created, err = s.MarkIfAbsent(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, created, "an expired entry can be claimed again")
}

func testMarkOverwrites(t *testing.T, s store.Store, now *fakeNow) {
	ctx := context.Background()
	key := domain.NewDedupKey("0xccc", 2)

	require.NoError(t, s.Mark(ctx, key, time.Hour))
	now.advance(2 * time.Hour)

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Mark(ctx, key, time.Hour))
	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)
}

func testKeysAreIndependent(t *testing.T, s store.Store) {
	ctx := context.Background()

	created, err := s.MarkIfAbsent(ctx, domain.NewDedupKey("0xddd", 0), time.Hour)
	require.NoError(t, err)
	require.True(t, created)

	created, err = s.MarkIfAbsent(ctx, domain.NewDedupKey("0xddd", 1), time.Hour)
	require.NoError(t, err)
	assert.True(t, created, "a different log index is a different event")

	seen, err := s.Seen(ctx, domain.NewDedupKey("0xeee", 0))
	require.NoError(t, err)
	assert.False(t, seen)
}

func testPurgeExpired(t *testing.T, s store.Store, now *fakeNow) {
	purger, ok := s.(store.Purger)
	if !ok {
		t.Skip("store does not need purging")
	}

	ctx := context.Background()
	short := domain.NewDedupKey("0xfff", 0)
	long := domain.NewDedupKey("0xfff", 1)

	require.NoError(t, s.Mark(ctx, short, time.Hour))
	require.NoError(t, s.Mark(ctx, long, 3*time.Hour))

	now.advance(2 * time.Hour)
	purged, err := purger.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	seen, err := s.Seen(ctx, long)
	require.NoError(t, err)
	assert.True(t, seen)
}
