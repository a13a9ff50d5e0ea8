package sheets

import (
	"context"

	"finwell/internal/core"
)

// Ports for outbound adapters.
type (
	// MonthExporter replaces the exported copy of a month with txs.
	MonthExporter interface {
		ExportMonth(ctx context.Context, month core.Month, txs []core.Transaction) error
	}
)
