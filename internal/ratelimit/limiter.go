package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-transfer-alert/internal/adapter"
	"github.com/feral-file/ff-transfer-alert/internal/config"
	"github.com/feral-file/ff-transfer-alert/internal/logger"
)

const (
	PROVIDER_ETHERSCAN = "etherscan"
	PROVIDER_TELEGRAM  = "telegram"
)

// redisRetryAfter is how long the limiter stays on the local fallback after a redis error
const redisRetryAfter = 30 * time.Second

// minRetryAfter bounds how long to sleep when redis reports a non-positive retry-after
const minRetryAfter = 10 * time.Millisecond

// Limiter blocks callers until the provider's request budget allows another call
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit_limiter.go -package=mocks -mock_names=Limiter=MockRateLimiter
type Limiter interface {
	// Wait blocks until a token for provider is available or ctx ends
	Wait(ctx context.Context, provider string) error
}

// providerLimiter holds the rate limiting state for a single provider
type providerLimiter struct {
	name       string
	redisLimit redis_rate.Limit
	local      *rate.Limiter
	redisKey   string
}

type limiter struct {
	providers   map[string]*providerLimiter
	distributed adapter.RedisRateLimiter
	clock       adapter.Clock
	maxWait     time.Duration

	// unix nanos until which redis is skipped
	redisDownUntil atomic.Int64
}

// NewLimiter creates a limiter for the etherscan and telegram providers.
// distributed may be nil, in which case only the in-process limiter is used.
func NewLimiter(cfg config.RateLimitConfig, distributed adapter.RedisRateLimiter, clock adapter.Clock) (Limiter, error) {
	limits := map[string]config.ProviderLimit{
		PROVIDER_ETHERSCAN: cfg.Etherscan,
		PROVIDER_TELEGRAM:  cfg.Telegram,
	}

	providers := make(map[string]*providerLimiter, len(limits))
	for name, l := range limits {
		if l.Rate <= 0 {
			return nil, fmt.Errorf("provider %s: rate must be positive", name)
		}
		if l.Period <= 0 {
			l.Period = time.Second
		}
		if l.Burst <= 0 {
			l.Burst = l.Rate
		}

		providers[name] = &providerLimiter{
			name: name,
			redisLimit: redis_rate.Limit{
				Rate:   l.Rate,
				Burst:  l.Burst,
				Period: l.Period,
			},
			local:    rate.NewLimiter(rate.Every(l.Period/time.Duration(l.Rate)), l.Burst),
			redisKey: cfg.KeyPrefix + name,
		}
	}

	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}

	return &limiter{
		providers:   providers,
		distributed: distributed,
		clock:       clock,
		maxWait:     maxWait,
	}, nil
}

func (l *limiter) Wait(ctx context.Context, provider string) error {
	pl, ok := l.providers[provider]
	if !ok {
		return fmt.Errorf("provider '%s' not configured", provider)
	}

	ctx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	for l.useRedis() {
		res, err := l.distributed.Allow(ctx, pl.redisKey, pl.redisLimit)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("rate limit wait for %s: %w", provider, ctx.Err())
			}
			l.redisDownUntil.Store(l.clock.Now().Add(redisRetryAfter).UnixNano())
			logger.WarnCtx(ctx, "Redis rate limiter error, falling back to local",
				zap.String("provider", provider),
				zap.Error(err),
			)
			break
		}

		if res.Allowed > 0 {
			return nil
		}

		retryAfter := max(res.RetryAfter, minRetryAfter)
		logger.DebugCtx(ctx, "Rate limit token unavailable, waiting",
			zap.String("provider", provider),
			zap.Duration("retry_after", retryAfter),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limit wait for %s: %w", provider, ctx.Err())
		case <-l.clock.After(retryAfter):
		}
	}

	if err := pl.local.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", provider, err)
	}
	return nil
}

func (l *limiter) useRedis() bool {
	if l.distributed == nil {
		return false
	}
	return l.clock.Now().UnixNano() >= l.redisDownUntil.Load()
}

// NoopLimiter never blocks
type NoopLimiter struct{}

func (NoopLimiter) Wait(context.Context, string) error {
	return nil
}
