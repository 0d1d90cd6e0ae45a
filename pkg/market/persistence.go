package market

import (
	"context"

	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

// Recorder hooks allow fetched observations to be persisted to external
// stores once they have been merged with stored history.
type Recorder interface {
	// RecordHistory persists the merged per-metric observation series.
	RecordHistory(ctx context.Context, series map[string]timeseries.Series) error
}
