package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-transfer-alert/internal/adapter"
	"github.com/feral-file/ff-transfer-alert/internal/api/server"
	"github.com/feral-file/ff-transfer-alert/internal/config"
	"github.com/feral-file/ff-transfer-alert/internal/logger"
	"github.com/feral-file/ff-transfer-alert/internal/metadata"
	"github.com/feral-file/ff-transfer-alert/internal/metrics"
	"github.com/feral-file/ff-transfer-alert/internal/notifier"
	"github.com/feral-file/ff-transfer-alert/internal/pipeline"
	"github.com/feral-file/ff-transfer-alert/internal/providers/ethereum"
	"github.com/feral-file/ff-transfer-alert/internal/providers/etherscan"
	"github.com/feral-file/ff-transfer-alert/internal/ratelimit"
	"github.com/feral-file/ff-transfer-alert/internal/store"
	"github.com/feral-file/ff-transfer-alert/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	once       = flag.Bool("once", false, "Run the pipeline once and exit")
	dryRun     = flag.Bool("dry-run", false, "Report new matches without marking or sending them, then exit")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadWatcherConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "key-watcher",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting key watcher",
		zap.String("watched", cfg.Watch.Address),
		zap.String("term", cfg.Watch.Term),
		zap.String("dedup_driver", cfg.Dedup.Driver),
	)

	clock := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()

	// Dedup store
	var redisClient adapter.RedisClient
	var dedup store.Store
	switch cfg.Dedup.Driver {
	case config.DedupDriverRedis:
		redisClient, err = newRedisClient(cfg.Redis)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create redis client", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("Failed to close redis client", zap.Error(err))
			}
		}()
		dedup = store.NewRedisStore(redisClient)
	case config.DedupDriverPostgres:
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
		}
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime); err != nil {
			logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Connected to database",
			zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
			zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
		)
		dedup = store.NewPGStore(db, clock)
	case config.DedupDriverMemory:
		logger.WarnCtx(ctx, "Using in-memory dedup store, alerts may repeat after a restart")
		dedup = store.NewMemoryStore(clock)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := dedup.Ping(pingCtx); err != nil {
		logger.WarnCtx(ctx, "Dedup store is not reachable yet", zap.Error(err))
	}
	pingCancel()

	// Outbound rate limiting, shared across replicas when redis is available
	var limiter ratelimit.Limiter = ratelimit.NoopLimiter{}
	if cfg.RateLimit.Enabled {
		var distributed adapter.RedisRateLimiter
		if redisClient != nil {
			distributed = redisClient.NewRateLimiter()
		}
		limiter, err = ratelimit.NewLimiter(cfg.RateLimit, distributed, clock)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create rate limiter", zap.Error(err))
		}
	}

	// On-chain reads for token identity
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial RPC endpoint", zap.Error(err))
	}
	erc20Reader := ethereum.NewERC20Reader(ethClient)
	defer erc20Reader.Close()
	checkChainID(ctx, erc20Reader, cfg)

	httpClient := adapter.NewHTTPClient(cfg.HTTP.Timeout)
	m := metrics.New()

	orchestrator := pipeline.NewOrchestrator(
		etherscan.NewClient(httpClient, limiter, jsonAdapter, etherscan.Config{
			APIURL:   cfg.Etherscan.APIURL,
			APIKey:   cfg.Etherscan.APIKey,
			ChainID:  cfg.Etherscan.ChainID,
			PageSize: cfg.Watch.PageSize,
		}),
		dedup,
		metadata.NewResolver(erc20Reader, cfg.Ethereum.CallTimeout),
		notifier.NewTelegramNotifier(httpClient, limiter, jsonAdapter, notifier.Config{
			APIURL:   cfg.Telegram.APIURL,
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
		}),
		notifier.NewFormatter(clock, cfg.Watch.Term, cfg.Telegram.ChannelRef, cfg.Telegram.Timezone),
		m,
		clock,
		pipeline.Config{
			WatchedAddress: cfg.Watch.Address,
			Term:           cfg.Watch.Term,
			DedupTTL:       cfg.Dedup.TTL,
			Preflight:      cfg.ValidateRun,
		},
	)

	if *dryRun || *once {
		if err := runOnce(ctx, orchestrator, *dryRun); err != nil {
			logger.ErrorCtx(ctx, err)
			logger.Flush(2 * time.Second)
			os.Exit(1)
		}
		return
	}

	if err := cfg.ValidateServe(); err != nil {
		logger.FatalCtx(ctx, "Invalid server configuration", zap.Error(err))
	}
	if err := cfg.ValidateRun(); err != nil {
		logger.WarnCtx(ctx, "Runs will fail until configuration is complete", zap.Error(err))
	}

	srv := server.New(server.Config{
		Debug:         cfg.Debug,
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ReadTimeout:   time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:  time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:   time.Duration(cfg.Server.IdleTimeout) * time.Second,
		TriggerSecret: cfg.Trigger.Secret,
	}, orchestrator, dedup, m.Handler())

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// In-process scheduler, disabled when the interval is zero
	var transferSweeper sweeper.Sweeper
	if cfg.Scheduler.Interval > 0 {
		var purger store.Purger
		if p, ok := dedup.(store.Purger); ok && cfg.Scheduler.PurgeExpired {
			purger = p
		}
		transferSweeper = sweeper.NewTransferSweeper(sweeper.TransferSweeperConfig{
			Interval:   cfg.Scheduler.Interval,
			RunOnStart: true,
		}, orchestrator, purger)

		go func() {
			if err := transferSweeper.Start(ctx); err != nil {
				errCh <- fmt.Errorf("%s: %w", transferSweeper.Name(), err)
			}
		}()
	} else {
		logger.InfoCtx(ctx, "Scheduler disabled, runs are triggered over HTTP only")
	}

	// Wait for interrupt signal to gracefully shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if transferSweeper != nil {
		if err := transferSweeper.Stop(shutdownCtx); err != nil {
			logger.ErrorCtx(shutdownCtx, err, zap.String("component", transferSweeper.Name()))
		}
	}
	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("Key watcher stopped")
}

// runOnce performs a single run (or dry run) and prints the result as JSON
func runOnce(ctx context.Context, runner pipeline.Runner, dry bool) error {
	ctx = logger.WithRun(ctx, logger.RunInfo{Trigger: pipeline.TRIGGER_CLI})

	var out interface{}
	if dry {
		result, err := runner.DryRun(ctx)
		if err != nil {
			return err
		}
		out = result
	} else {
		result, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		out = result
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newRedisClient(cfg config.RedisConfig) (adapter.RedisClient, error) {
	if cfg.URL != "" {
		return adapter.NewRedisClientFromURL(cfg.URL)
	}
	return adapter.NewRedisClient(cfg.Addr, cfg.Password, cfg.DB), nil
}

// checkChainID warns when the RPC endpoint serves a different chain than the ledger queries
func checkChainID(ctx context.Context, reader ethereum.ERC20Reader, cfg *config.WatcherConfig) {
	callCtx, cancel := context.WithTimeout(ctx, cfg.Ethereum.CallTimeout)
	defer cancel()

	chainID, err := reader.ChainID(callCtx)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to read chain id from RPC endpoint", zap.Error(err))
		return
	}
	if chainID != cfg.Etherscan.ChainID {
		logger.WarnCtx(ctx, "RPC endpoint chain differs from the ledger chain",
			zap.Uint64("rpc_chain_id", uint64(chainID)),
			zap.Uint64("ledger_chain_id", uint64(cfg.Etherscan.ChainID)),
		)
	}
}
