package notifier

import (
	"fmt"
	"time"
	_ "time/tzdata" // the alert zone must resolve on hosts without a zoneinfo database

	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-alert/internal/adapter"
	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/logger"
)

// alertDateLayout renders dd.MM.yyyy, HH:mm:ss
const alertDateLayout = "02.01.2006, 15:04:05"

// Formatter builds alert messages
type Formatter struct {
	clock      adapter.Clock
	term       string
	channelRef string
	location   *time.Location // nil when the zone could not be loaded
}

// NewFormatter creates a formatter for the watched term.
// An unknown timezone is logged and dates are rendered in RFC 3339 UTC instead.
func NewFormatter(clock adapter.Clock, term, channelRef, timezone string) *Formatter {
	if clock == nil {
		clock = adapter.NewClock()
	}
	if term == "" {
		term = domain.DEFAULT_WATCH_TERM
	}
	if channelRef == "" {
		channelRef = domain.DEFAULT_CHANNEL_REF
	}
	if timezone == "" {
		timezone = domain.DEFAULT_TIMEZONE
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("Failed to load alert timezone, falling back to UTC",
			zap.String("timezone", timezone),
			zap.Error(err))
		loc = nil
	}

	return &Formatter{
		clock:      clock,
		term:       term,
		channelRef: channelRef,
		location:   loc,
	}
}

// FormatAlert renders the alert text for a transfer of the named token at unix seconds ts
func (f *Formatter) FormatAlert(name string, ts int64) string {
	return fmt.Sprintf("New %s detected! Name: %s Date: %s Link: %s",
		f.term, name, f.formatDate(ts), f.channelRef)
}

func (f *Formatter) formatDate(ts int64) string {
	t := f.clock.Unix(ts, 0)
	if f.location == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return t.In(f.location).Format(alertDateLayout)
}
