package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized is returned when the trigger secret is missing or does not match
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRunInProgress is returned when a run could not acquire the run lock before its context ended
	ErrRunInProgress = errors.New("another run is in progress")
)

// ConfigError is returned when required settings are absent
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// UpstreamError is returned when the ledger indexing API or the messaging API signals a failure
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Service)
	sb.WriteString(" error")
	if e.StatusCode > 0 {
		fmt.Fprintf(&sb, " %d", e.StatusCode)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// IsUpstreamError reports whether err is or wraps an UpstreamError
func IsUpstreamError(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr)
}
