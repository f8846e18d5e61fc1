package pipeline

import (
	"context"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
)

// DisplayName exposes the display name chain to the external test package
func (o *Orchestrator) DisplayName(ctx context.Context, record domain.TransferRecord) string {
	return o.displayName(ctx, record)
}
