package domain

import "time"

const (
	// Watchlist constants
	DEFAULT_WATCH_TERM = "KEY"
	DEFAULT_PAGE_SIZE  = 50

	// Dedup constants
	DEDUP_KEY_PREFIX   = "seen"
	DEDUP_MARKER_VALUE = "1"
	DEFAULT_DEDUP_TTL  = 30 * 24 * time.Hour

	// Alert constants
	DEFAULT_CHANNEL_REF = "@cryptohornettg"
	DEFAULT_TIMEZONE    = "Europe/Kyiv"

	// Upstream service names
	SERVICE_ETHERSCAN = "Etherscan"
	SERVICE_TELEGRAM  = "Telegram"
)
