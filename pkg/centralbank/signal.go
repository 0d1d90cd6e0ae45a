// Package centralbank owns the manually-curated quarterly central-bank
// purchase signal: the CSV store humans maintain, the freshness rules around
// it, and the watcher that detects newly published WGC quarterly reports.
//
// Detection is automated; extraction stays manual. The figures live in PDFs
// with inconsistent layouts, update only quarterly with a 45-60 day lag, and
// take minutes to transcribe, so a human copies one number per quarter while
// the system handles everything around it.
package centralbank

import "time"

// Status describes the health of the curated signal.
type Status string

const (
	StatusMissing Status = "missing"
	StatusEmpty   Status = "empty"
	StatusCurrent Status = "current"
	StatusStale   Status = "stale"
	StatusError   Status = "error"
)

// Entry is one curated row: net central-bank purchases for a quarter.
type Entry struct {
	Quarter     string    `json:"quarter"`
	Tonnes      float64   `json:"cb_net_tonnes"`
	Source      string    `json:"source"`
	ValidatedAt time.Time `json:"validated_date"`
}

// Signal is the latest curated figure plus its freshness, handed to the
// scorer. The scorer branches on Status and IsStale and must never need to
// guess whether zero tonnes means "no data".
type Signal struct {
	Status      Status    `json:"status"`
	Quarter     string    `json:"quarter,omitempty"`
	Tonnes      float64   `json:"cb_net_tonnes,omitempty"`
	Source      string    `json:"source,omitempty"`
	ValidatedAt time.Time `json:"validated_date,omitempty"`
	DaysOld     int       `json:"days_old,omitempty"`
	IsStale     bool      `json:"is_stale,omitempty"`
	Message     string    `json:"message,omitempty"`
	History     []Entry   `json:"-"`
}
