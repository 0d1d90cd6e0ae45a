package metrics

import (
	"time"

	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

// Window summarises the data span a snapshot was computed over.
type Window struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Days       int       `json:"days"`
	ComputedAt time.Time `json:"computed_at"`
}

// Extras carries point-in-time values sourced outside the series catalog,
// currently just the GLD shares-outstanding ETF flow proxy.
type Extras struct {
	GLDShares      float64
	GLDSharesValid bool
}

// Snapshot is the flat metric view handed to the scorer, narrative, and
// report layers. Presence in Values is the definedness marker; a metric that
// could not be derived is absent, never defaulted. Notes carries omission
// context worth surfacing in reports.
type Snapshot struct {
	Values map[string]float64           `json:"values"`
	Series map[string]timeseries.Series `json:"-"`
	Notes  map[string]string            `json:"notes,omitempty"`
	Window Window                       `json:"window"`
}

// Value looks up a snapshot entry. Callers must branch on ok rather than
// defaulting, so an absent metric is never mistaken for a neutral zero.
func (s *Snapshot) Value(name string) (float64, bool) {
	v, ok := s.Values[name]
	return v, ok
}

// Note returns the omission note recorded for a key, if any.
func (s *Snapshot) Note(name string) (string, bool) {
	n, ok := s.Notes[name]
	return n, ok
}

// Len reports the number of defined scalar entries.
func (s *Snapshot) Len() int { return len(s.Values) }
