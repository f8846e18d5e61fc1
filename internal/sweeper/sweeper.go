package sweeper

import (
	"context"
)

// Sweeper is a long-running background task that performs periodic work
type Sweeper interface {
	// Start blocks until the context is canceled or Stop is called
	Start(ctx context.Context) error

	// Stop waits for in-progress work to complete, bounded by ctx
	Stop(ctx context.Context) error

	// Name returns the sweeper's name for logging and identification
	Name() string
}
