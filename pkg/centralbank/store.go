package centralbank

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// DefaultStaleDays is how old a validated figure may be before the signal is
// flagged stale. Quarterly WGC publication lags run 45-60 days, so 90 covers
// one healthy cycle.
const DefaultStaleDays = 90

const dateLayout = "2006-01-02"

var quarterPattern = regexp.MustCompile(`^Q[1-4]_\d{4}$`)

// ErrNoData marks an absent or empty curated store.
var ErrNoData = errors.New("centralbank: no curated data")

// ValidQuarter reports whether a label has the curated Q<n>_<yyyy> form.
func ValidQuarter(label string) bool { return quarterPattern.MatchString(label) }

// Store reads and maintains the curated quarterly CSV. The file is the
// contract with the human maintainer: quarter,cb_net_tonnes,source,
// validated_date, one row per quarter, newest appended last.
type Store struct {
	path       string
	staleAfter int
}

// StoreOption adjusts store behaviour.
type StoreOption func(*Store)

// WithStaleAfter overrides the staleness limit in days.
func WithStaleAfter(days int) StoreOption {
	return func(s *Store) {
		if days > 0 {
			s.staleAfter = days
		}
	}
}

// NewStore wraps the CSV at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{path: path, staleAfter: DefaultStaleDays}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the curated CSV location.
func (s *Store) Path() string { return s.path }

// Init creates the CSV, optionally seeded with recent sample rows the
// maintainer is expected to replace with actual WGC figures.
func (s *Store) Init(sample bool) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	entries := []Entry{}
	if sample {
		entries = []Entry{
			{Quarter: "Q3_2024", Tonnes: 333.0, Source: "WGC", ValidatedAt: mustDate("2024-11-15")},
			{Quarter: "Q4_2024", Tonnes: 290.0, Source: "WGC", ValidatedAt: mustDate("2025-02-20")},
		}
	}
	return s.write(entries)
}

// Entries reads every curated row in file order.
func (s *Store) Entries() ([]Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoData, s.path)
		}
		return nil, fmt.Errorf("open curated csv: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read curated csv: %w", err)
	}
	if len(rows) <= 1 {
		return []Entry{}, nil
	}

	entries := make([]Entry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 4 {
			return nil, fmt.Errorf("curated csv row %d: expected 4 columns, got %d", i+2, len(row))
		}
		tonnes, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("curated csv row %d: tonnes %q: %w", i+2, row[1], err)
		}
		validated, err := time.Parse(dateLayout, row[3])
		if err != nil {
			return nil, fmt.Errorf("curated csv row %d: validated_date %q: %w", i+2, row[3], err)
		}
		entries = append(entries, Entry{
			Quarter:     row[0],
			Tonnes:      tonnes,
			Source:      row[2],
			ValidatedAt: validated,
		})
	}
	return entries, nil
}

// Append validates and adds an entry. An existing row for the same quarter
// is replaced, with the replacement moving to the end of the file so the
// latest-validated figure is always the last row.
func (s *Store) Append(e Entry) error {
	if !ValidQuarter(e.Quarter) {
		return fmt.Errorf("invalid quarter label %q, want Q<1-4>_<yyyy>", e.Quarter)
	}
	if e.Source == "" {
		e.Source = "WGC"
	}
	if e.ValidatedAt.IsZero() {
		e.ValidatedAt = time.Now().UTC()
	}

	entries, err := s.Entries()
	if err != nil && !errors.Is(err, ErrNoData) {
		return err
	}

	kept := entries[:0]
	for _, existing := range entries {
		if existing.Quarter != e.Quarter {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, e)
	return s.write(kept)
}

// Latest turns the freshest curated row into a Signal. It never errors:
// absence, emptiness, and read failures each map to their status so the
// scorer can branch without guessing.
func (s *Store) Latest(now time.Time) Signal {
	entries, err := s.Entries()
	switch {
	case errors.Is(err, ErrNoData):
		return Signal{
			Status:  StatusMissing,
			Message: "curated CB data file not found; run cbdata -init",
		}
	case err != nil:
		return Signal{Status: StatusError, Message: err.Error()}
	case len(entries) == 0:
		return Signal{Status: StatusEmpty, Message: "curated CB data file is empty"}
	}

	latest := entries[len(entries)-1]
	daysOld := int(now.Sub(latest.ValidatedAt).Hours() / 24)
	stale := daysOld > s.staleAfter

	sig := Signal{
		Status:      StatusCurrent,
		Quarter:     latest.Quarter,
		Tonnes:      latest.Tonnes,
		Source:      latest.Source,
		ValidatedAt: latest.ValidatedAt,
		DaysOld:     daysOld,
		IsStale:     stale,
		History:     entries,
	}
	if stale {
		sig.Status = StatusStale
	}
	return sig
}

func (s *Store) write(entries []Entry) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("write curated csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"quarter", "cb_net_tonnes", "source", "validated_date"}); err != nil {
		return fmt.Errorf("write curated csv header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.Quarter,
			strconv.FormatFloat(e.Tonnes, 'f', 1, 64),
			e.Source,
			e.ValidatedAt.Format(dateLayout),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write curated csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func mustDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
