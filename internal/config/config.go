package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
)

const serviceName = "key-watcher"

// Dedup drivers
const (
	DedupDriverRedis    = "redis"
	DedupDriverPostgres = "postgres"
	DedupDriverMemory   = "memory"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// WatchConfig describes the watched address and the watchlist term
type WatchConfig struct {
	Address  string `mapstructure:"address"`
	Term     string `mapstructure:"term"`
	PageSize int    `mapstructure:"page_size"`
}

// EtherscanConfig holds the ledger indexing API configuration
type EtherscanConfig struct {
	APIURL  string       `mapstructure:"api_url"`
	APIKey  string       `mapstructure:"api_key"`
	ChainID domain.Chain `mapstructure:"chain_id"`
}

// EthereumConfig holds the JSON-RPC configuration used for token metadata reads
type EthereumConfig struct {
	RPCURL      string        `mapstructure:"rpc_url"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// TelegramConfig holds the messaging configuration
type TelegramConfig struct {
	APIURL     string `mapstructure:"api_url"`
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	ChannelRef string `mapstructure:"channel_ref"` // appended to every alert
	Timezone   string `mapstructure:"timezone"`
}

// DedupConfig selects the dedup backend
type DedupConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RedisConfig holds redis configuration. URL takes precedence over Addr.
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// TriggerConfig holds the shared secret guarding the trigger endpoint
type TriggerConfig struct {
	Secret string `mapstructure:"secret"`
}

// SchedulerConfig holds the in-process scheduler configuration.
// An interval of zero disables the scheduler.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	PurgeExpired bool          `mapstructure:"purge_expired"`
}

// ProviderLimit describes the request budget for one upstream provider:
// Rate requests per Period, with up to Burst requests at once
type ProviderLimit struct {
	Rate   int           `mapstructure:"rate"`
	Period time.Duration `mapstructure:"period"`
	Burst  int           `mapstructure:"burst"`
}

// RateLimitConfig holds the outbound rate limits.
// Limits are shared across replicas through redis when the redis dedup driver is in use.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	MaxWait   time.Duration `mapstructure:"max_wait"`
	Etherscan ProviderLimit `mapstructure:"etherscan"`
	Telegram  ProviderLimit `mapstructure:"telegram"`
}

// HTTPConfig holds outbound HTTP configuration
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// WatcherConfig holds configuration for the key-watcher
type WatcherConfig struct {
	BaseConfig `mapstructure:",squash"`
	Watch      WatchConfig     `mapstructure:"watch"`
	Etherscan  EtherscanConfig `mapstructure:"etherscan"`
	Ethereum   EthereumConfig  `mapstructure:"ethereum"`
	Telegram   TelegramConfig  `mapstructure:"telegram"`
	Dedup      DedupConfig     `mapstructure:"dedup"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Server     ServerConfig    `mapstructure:"server"`
	Trigger    TriggerConfig   `mapstructure:"trigger"`
	Scheduler  SchedulerConfig `mapstructure:"scheduler"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	HTTP       HTTPConfig      `mapstructure:"http"`
}

// LoadWatcherConfig loads configuration for the key-watcher.
// Required settings are not enforced here; see ValidateRun and ValidateServe.
func LoadWatcherConfig(configFile string, envPath string) (*WatcherConfig, error) {
	v := configureViper(serviceName, configFile, envPath)

	v.SetDefault("watch.term", domain.DEFAULT_WATCH_TERM)
	v.SetDefault("watch.page_size", domain.DEFAULT_PAGE_SIZE)
	v.SetDefault("etherscan.api_url", "https://api.etherscan.io/v2/api")
	v.SetDefault("etherscan.chain_id", uint64(domain.ChainBSCMainnet))
	v.SetDefault("ethereum.rpc_url", "https://bsc-dataseed.bnbchain.org")
	v.SetDefault("ethereum.call_timeout", "10s")
	v.SetDefault("telegram.api_url", "https://api.telegram.org")
	v.SetDefault("telegram.channel_ref", domain.DEFAULT_CHANNEL_REF)
	v.SetDefault("telegram.timezone", domain.DEFAULT_TIMEZONE)
	v.SetDefault("dedup.driver", DedupDriverRedis)
	v.SetDefault("dedup.ttl", domain.DEFAULT_DEDUP_TTL.String())
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 90)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("scheduler.interval", "0s")
	v.SetDefault("scheduler.purge_expired", true)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.key_prefix", "key-watcher:limiter:")
	v.SetDefault("rate_limit.max_wait", "30s")
	v.SetDefault("rate_limit.etherscan.rate", 5)
	v.SetDefault("rate_limit.etherscan.period", "1s")
	v.SetDefault("rate_limit.etherscan.burst", 5)
	v.SetDefault("rate_limit.telegram.rate", 20)
	v.SetDefault("rate_limit.telegram.period", "1m")
	v.SetDefault("rate_limit.telegram.burst", 3)
	v.SetDefault("http.timeout", "15s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}

	var cfg WatcherConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Watch.Address = strings.TrimSpace(cfg.Watch.Address)
	cfg.Dedup.Driver = strings.ToLower(strings.TrimSpace(cfg.Dedup.Driver))

	if err := cfg.validateDedup(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateRun returns a *domain.ConfigError listing the settings a pipeline run needs but lacks
func (c *WatcherConfig) ValidateRun() error {
	var missing []string
	if c.Watch.Address == "" {
		missing = append(missing, "watch.address")
	}
	if c.Etherscan.APIKey == "" {
		missing = append(missing, "etherscan.api_key")
	}
	if c.Telegram.BotToken == "" {
		missing = append(missing, "telegram.bot_token")
	}
	if c.Telegram.ChatID == "" {
		missing = append(missing, "telegram.chat_id")
	}

	if len(missing) > 0 {
		return &domain.ConfigError{Missing: missing}
	}
	return nil
}

// ValidateServe checks the settings the trigger endpoint cannot start without
func (c *WatcherConfig) ValidateServe() error {
	if c.Trigger.Secret == "" {
		return &domain.ConfigError{Missing: []string{"trigger.secret"}}
	}
	return nil
}

func (c *WatcherConfig) validateDedup() error {
	switch c.Dedup.Driver {
	case DedupDriverRedis:
		if c.Redis.URL == "" && c.Redis.Addr == "" {
			return &domain.ConfigError{Missing: []string{"redis.url"}}
		}
	case DedupDriverPostgres:
		var missing []string
		if c.Database.Host == "" {
			missing = append(missing, "database.host")
		}
		if c.Database.DBName == "" {
			missing = append(missing, "database.dbname")
		}
		if len(missing) > 0 {
			return &domain.ConfigError{Missing: missing}
		}
	case DedupDriverMemory:
	default:
		return fmt.Errorf("unsupported dedup driver %q", c.Dedup.Driver)
	}

	if c.Dedup.TTL <= 0 {
		return fmt.Errorf("dedup.ttl must be positive, got %s", c.Dedup.TTL)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("KEY_WATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Watch
		"watch.address",
		"watch.term",
		"watch.page_size",
		// Etherscan
		"etherscan.api_url",
		"etherscan.api_key",
		"etherscan.chain_id",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.call_timeout",
		// Telegram
		"telegram.api_url",
		"telegram.bot_token",
		"telegram.chat_id",
		"telegram.channel_ref",
		"telegram.timezone",
		// Dedup
		"dedup.driver",
		"dedup.ttl",
		// Redis
		"redis.url",
		"redis.addr",
		"redis.password",
		"redis.db",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Trigger
		"trigger.secret",
		// Scheduler
		"scheduler.interval",
		"scheduler.purge_expired",
		// Rate limit
		"rate_limit.enabled",
		"rate_limit.key_prefix",
		"rate_limit.max_wait",
		"rate_limit.etherscan.rate",
		"rate_limit.etherscan.period",
		"rate_limit.etherscan.burst",
		"rate_limit.telegram.rate",
		"rate_limit.telegram.period",
		"rate_limit.telegram.burst",
		// HTTP
		"http.timeout",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
