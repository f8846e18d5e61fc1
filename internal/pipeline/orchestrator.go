package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-alert/internal/adapter"
	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/logger"
	"github.com/feral-file/ff-transfer-alert/internal/metadata"
	"github.com/feral-file/ff-transfer-alert/internal/metrics"
	"github.com/feral-file/ff-transfer-alert/internal/notifier"
	"github.com/feral-file/ff-transfer-alert/internal/providers/etherscan"
	"github.com/feral-file/ff-transfer-alert/internal/store"
)

// Trigger names recorded with every run
const (
	TRIGGER_HTTP      = "http"
	TRIGGER_SCHEDULER = "scheduler"
	TRIGGER_CLI       = "cli"
)

// ErrFetchTransfers wraps failures of the ledger API call that starts every run
var ErrFetchTransfers = errors.New("failed to fetch transfers")

// PendingAlert is a match a dry run would notify
type PendingAlert struct {
	DedupKey domain.DedupKey `json:"dedupKey"`
	Text     string          `json:"text"`
}

// DryRunResult reports what a run would do without marking or sending anything
type DryRunResult struct {
	domain.RunResult
	Pending []PendingAlert `json:"pending"`
}

// Config holds the orchestrator settings
type Config struct {
	WatchedAddress string
	Term           string
	DedupTTL       time.Duration

	// Preflight, when set, runs before every run and aborts it with its error.
	// It is where missing settings surface as a *domain.ConfigError.
	Preflight func() error
}

// Runner executes pipeline runs
//
//go:generate mockgen -source=orchestrator.go -destination=../mocks/pipeline_runner.go -package=mocks -mock_names=Runner=MockRunner
type Runner interface {
	// Run fetches, filters, deduplicates and notifies once.
	// On failure the counts reached so far are returned together with the error.
	Run(ctx context.Context) (domain.RunResult, error)

	// DryRun reports which matches are new without marking or sending them
	DryRun(ctx context.Context) (DryRunResult, error)
}

// Orchestrator implements Runner. Runs within one process never overlap.
type Orchestrator struct {
	source    etherscan.Client
	store     store.Store
	resolver  metadata.Resolver
	notifier  notifier.Notifier
	formatter *notifier.Formatter
	metrics   *metrics.Metrics
	clock     adapter.Clock
	cfg       Config

	sem chan struct{}
}

// NewOrchestrator creates a new orchestrator. m may be nil.
func NewOrchestrator(
	source etherscan.Client,
	dedup store.Store,
	resolver metadata.Resolver,
	n notifier.Notifier,
	formatter *notifier.Formatter,
	m *metrics.Metrics,
	clock adapter.Clock,
	cfg Config,
) *Orchestrator {
	if cfg.Term == "" {
		cfg.Term = domain.DEFAULT_WATCH_TERM
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = domain.DEFAULT_DEDUP_TTL
	}

	return &Orchestrator{
		source:    source,
		store:     dedup,
		resolver:  resolver,
		notifier:  n,
		formatter: formatter,
		metrics:   m,
		clock:     clock,
		cfg:       cfg,
		sem:       make(chan struct{}, 1),
	}
}

func (o *Orchestrator) Run(ctx context.Context) (result domain.RunResult, err error) {
	if err := o.acquire(ctx); err != nil {
		o.metrics.ObserveRun(result, 0, err)
		return result, err
	}
	defer o.release()

	ctx = withRunID(ctx)
	start := o.clock.Now()
	defer func() {
		o.metrics.ObserveRun(result, o.clock.Since(start), err)
		o.logRun(ctx, "Run finished", result, err)
	}()

	logger.InfoCtx(ctx, "Run started", zap.String("watched", o.cfg.WatchedAddress), zap.String("term", o.cfg.Term))

	matches, checked, err := o.fetchMatches(ctx)
	result.Checked = checked
	result.Matched = len(matches)
	if err != nil {
		return result, err
	}

	for _, record := range matches {
		key := record.DedupKey()

		// The key is claimed before sending: a failed send loses this alert rather than repeating it later
		created, err := o.store.MarkIfAbsent(ctx, key, o.cfg.DedupTTL)
		if err != nil {
			return result, fmt.Errorf("failed to mark transfer %s: %w", key, err)
		}
		if !created {
			result.SkippedDuplicate++
			logger.DebugCtx(ctx, "Transfer already notified", zap.String("dedup_key", key.String()))
			continue
		}

		text := o.formatter.FormatAlert(o.displayName(ctx, record), record.Timestamp)
		if err := o.notifier.Send(ctx, text); err != nil {
			logger.WarnCtx(ctx, "Failed to post alert, transfer stays marked",
				zap.String("dedup_key", key.String()),
				zap.Error(err))
			return result, fmt.Errorf("failed to post alert for %s: %w", key, err)
		}

		result.Posted++
		logger.InfoCtx(ctx, "Transfer alert posted",
			zap.String("dedup_key", key.String()),
			zap.String("token", record.ContractAddress),
			zap.Uint64("block", record.BlockNumber))
	}

	return result, nil
}

func (o *Orchestrator) DryRun(ctx context.Context) (DryRunResult, error) {
	var result DryRunResult

	if err := o.acquire(ctx); err != nil {
		return result, err
	}
	defer o.release()

	ctx = withRunID(ctx)

	matches, checked, err := o.fetchMatches(ctx)
	result.Checked = checked
	result.Matched = len(matches)
	if err != nil {
		o.logRun(ctx, "Dry run finished", result.RunResult, err)
		return result, err
	}

	result.Pending = make([]PendingAlert, 0, len(matches))
	for _, record := range matches {
		key := record.DedupKey()

		seen, err := o.store.Seen(ctx, key)
		if err != nil {
			err = fmt.Errorf("failed to check transfer %s: %w", key, err)
			o.logRun(ctx, "Dry run finished", result.RunResult, err)
			return result, err
		}
		if seen {
			result.SkippedDuplicate++
			continue
		}

		result.Pending = append(result.Pending, PendingAlert{
			DedupKey: key,
			Text:     o.formatter.FormatAlert(o.displayName(ctx, record), record.Timestamp),
		})
	}

	o.logRun(ctx, "Dry run finished", result.RunResult, nil)
	return result, nil
}

// fetchMatches loads the recent transfers and returns the matches plus the number of records checked
func (o *Orchestrator) fetchMatches(ctx context.Context) ([]domain.TransferRecord, int, error) {
	if o.cfg.Preflight != nil {
		if err := o.cfg.Preflight(); err != nil {
			return nil, 0, err
		}
	}

	records, err := o.source.FetchRecentTransfers(ctx, o.cfg.WatchedAddress)
	if err != nil {
		if domain.IsConfigError(err) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: %w", ErrFetchTransfers, err)
	}

	return FilterIncoming(records, o.cfg.WatchedAddress, o.cfg.Term), len(records), nil
}

// displayName picks the first available of: record name, resolved name, record symbol,
// resolved symbol, "Unknown <term>". The chain is only queried when the record has no name.
func (o *Orchestrator) displayName(ctx context.Context, record domain.TransferRecord) string {
	if name := strings.TrimSpace(record.TokenName); name != "" {
		return name
	}

	identity := o.resolver.ResolveIdentity(ctx, record.ContractAddress)
	if identity.Name != nil && *identity.Name != "" {
		return *identity.Name
	}
	if symbol := strings.TrimSpace(record.TokenSymbol); symbol != "" {
		return symbol
	}
	if identity.Symbol != nil && *identity.Symbol != "" {
		return *identity.Symbol
	}

	return "Unknown " + o.cfg.Term
}

// acquire takes the run slot when it is free, otherwise waits for it until ctx ends
func (o *Orchestrator) acquire(ctx context.Context) error {
	select {
	case o.sem <- struct{}{}:
		return nil
	default:
	}

	select {
	case o.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return domain.ErrRunInProgress
	}
}

func (o *Orchestrator) release() {
	<-o.sem
}

func (o *Orchestrator) logRun(ctx context.Context, msg string, result domain.RunResult, err error) {
	fields := []zap.Field{
		zap.Int("checked", result.Checked),
		zap.Int("matched", result.Matched),
		zap.Int("posted", result.Posted),
		zap.Int("skipped_duplicate", result.SkippedDuplicate),
	}
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("%s: %w", msg, err), fields...)
		return
	}
	logger.InfoCtx(ctx, msg, fields...)
}

// withRunID assigns a run id, keeping the trigger the caller may have set
func withRunID(ctx context.Context) context.Context {
	info, _ := logger.RunFromContext(ctx)
	if info.RunID == "" {
		info.RunID = uuid.NewString()
	}
	return logger.WithRun(ctx, info)
}
