package sheets

import (
	"context"

	"gastos/internal/core"
	"gastos/internal/insights"
)

// SnapshotExporter publishes a stored analysis outside the service.
type SnapshotExporter interface {
	ExportSnapshot(ctx context.Context, snap core.Snapshot, headline insights.Headline) error
}
