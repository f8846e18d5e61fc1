package logger

import (
	"context"

	"go.uber.org/zap"
)

type runInfoKey struct{}

// RunInfo identifies a single pipeline run for log correlation
type RunInfo struct {
	RunID   string
	Trigger string // http, scheduler or cli
}

// WithRun returns a copy of ctx carrying the run info.
// Loggers obtained through FromContext attach it to every entry.
func WithRun(ctx context.Context, info RunInfo) context.Context {
	return context.WithValue(ctx, runInfoKey{}, info)
}

// RunFromContext returns the run info stored in ctx, if any
func RunFromContext(ctx context.Context) (RunInfo, bool) {
	info, ok := ctx.Value(runInfoKey{}).(RunInfo)
	return info, ok
}

func runFields(ctx context.Context) []zap.Field {
	info, ok := RunFromContext(ctx)
	if !ok {
		return nil
	}

	fields := []zap.Field{zap.String("run_id", info.RunID)}
	if info.Trigger != "" {
		fields = append(fields, zap.String("trigger", info.Trigger))
	}
	return fields
}
