package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-alert/internal/logger"
	"github.com/feral-file/ff-transfer-alert/internal/pipeline"
	"github.com/feral-file/ff-transfer-alert/internal/store"
)

// TransferSweeperConfig holds configuration for the transfer sweeper
type TransferSweeperConfig struct {
	Interval   time.Duration // time between ticks, must be positive
	RunOnStart bool          // tick once immediately instead of waiting a full interval
}

// ErrSweeperAlreadyStarted is returned by Start on a sweeper that was started before
var ErrSweeperAlreadyStarted = errors.New("sweeper already started")

// transferSweeper triggers a pipeline run on every tick and then purges expired dedup entries
type transferSweeper struct {
	config    TransferSweeperConfig
	runner    pipeline.Runner
	purger    store.Purger // nil when the dedup backend expires entries itself
	started   atomic.Bool  // Start may only be called once
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewTransferSweeper creates a new transfer sweeper. purger may be nil.
func NewTransferSweeper(config TransferSweeperConfig, runner pipeline.Runner, purger store.Purger) Sweeper {
	return &transferSweeper{
		config:    config,
		runner:    runner,
		purger:    purger,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *transferSweeper) Name() string {
	return "transfer-sweeper"
}

// Start schedules the ticks and blocks until the context is canceled or Stop is called.
// A sweeper is single-use: once started it cannot be started again, even after Stop.
func (s *transferSweeper) Start(ctx context.Context) error {
	if s.config.Interval <= 0 {
		return fmt.Errorf("invalid sweeper interval: %s", s.config.Interval)
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrSweeperAlreadyStarted
	}
	s.running.Store(true)
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	opts := []gocron.JobOption{
		gocron.WithName(s.Name()),
		// a slow run makes the next tick wait instead of overlapping it
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if s.config.RunOnStart {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(s.config.Interval),
		gocron.NewTask(s.tick, ctx),
		opts...,
	); err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule transfer sweep: %w", err)
	}

	logger.InfoCtx(ctx, "Starting transfer sweeper",
		zap.Duration("interval", s.config.Interval),
		zap.Bool("run_on_start", s.config.RunOnStart),
		zap.Bool("purge_expired", s.purger != nil),
	)
	scheduler.Start()

	select {
	case <-ctx.Done():
		logger.InfoCtx(ctx, "Transfer sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
	case <-s.stopChan:
		logger.InfoCtx(ctx, "Transfer sweeper stop requested")
	}

	// Shutdown waits for an in-flight tick
	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}

	return nil
}

// Stop gracefully stops the sweeper with timeout support
func (s *transferSweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping transfer sweeper")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Transfer sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Transfer sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// tick runs one pipeline run. Failures are logged; the next tick tries again.
func (s *transferSweeper) tick(ctx context.Context) {
	runCtx := logger.WithRun(ctx, logger.RunInfo{Trigger: pipeline.TRIGGER_SCHEDULER})

	if _, err := s.runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WarnCtx(runCtx, "Scheduled run failed", zap.Error(err))
	}

	if s.purger == nil {
		return
	}

	purged, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to purge expired dedup entries: %w", err))
		return
	}
	if purged > 0 {
		logger.InfoCtx(ctx, "Purged expired dedup entries", zap.Int64("count", purged))
	}
}
