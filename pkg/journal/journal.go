// Package journal persists one JSON record per report run for audit.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RunRecord captures the outcome of an end-to-end report run.
type RunRecord struct {
	RunID             string    `json:"run_id"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	WindowDays        int       `json:"window_days"`
	MetricsFetched    int       `json:"metrics_fetched"`
	MetricsFailed     []string  `json:"metrics_failed,omitempty"`
	Score             float64   `json:"score"`
	Assessment        string    `json:"assessment,omitempty"`
	NarrativeSource   string    `json:"narrative_source,omitempty"`
	CentralBankStatus string    `json:"central_bank_status,omitempty"`
	ReportPath        string    `json:"report_path,omitempty"`
	Success           bool      `json:"success"`
	ErrorMessage      string    `json:"error_message,omitempty"`
}

// Writer persists run records to a directory as JSON files.
type Writer struct {
	dir   string
	nowFn func() time.Time
}

// NewWriter constructs a journal writer. The directory is created on first
// write.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	return &Writer{dir: dir, nowFn: time.Now}
}

// WriteRun writes a run record to a timestamped JSON file and returns its
// path. A missing RunID and FinishedAt are filled in.
func (w *Writer) WriteRun(rec *RunRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = w.nowFn()
	}
	name := fmt.Sprintf("run_%s_%s.json", rec.FinishedAt.UTC().Format("20060102_150405"), shortID(rec.RunID))
	path := filepath.Join(w.dir, name)
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
