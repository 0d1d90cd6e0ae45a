package market

import (
	"context"
	"time"

	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

// DefaultWindowDays is the fetch span used when the caller does not pick one.
const DefaultWindowDays = 90

// Window bounds an observation fetch in time.
type Window struct {
	Start time.Time
	End   time.Time
}

// LastDays returns a window ending now and spanning the previous n days.
func LastDays(n int) Window {
	end := time.Now().UTC()
	return Window{Start: end.AddDate(0, 0, -n), End: end}
}

// Provider is a single upstream source of dated observations.
type Provider interface {
	// Observations fetches the series for a provider-native symbol inside w.
	Observations(ctx context.Context, symbol string, w Window) (timeseries.Series, error)
	// Name identifies the configured provider instance in logs.
	Name() string
}

// ShareCounter is implemented by providers that can report the shares
// outstanding of an ETF or stock symbol.
type ShareCounter interface {
	SharesOutstanding(ctx context.Context, symbol string) (float64, error)
}
