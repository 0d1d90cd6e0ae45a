package main

// One-off helper for IMF IFS exports of world central-bank gold reserves.
// Previews the file, aggregates monthly reserve levels to quarterly net
// purchases, and can seed the curated store and the metric history from them.
//
// Usage:
//   go run scripts/import_reserves.go [-f etc/goldmonitor.yaml] [-apply] [-record] <csv>

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/esseedoubleyou/goldmonitor/internal/config"
	histpersist "github.com/esseedoubleyou/goldmonitor/internal/persistence/history"
	"github.com/esseedoubleyou/goldmonitor/pkg/centralbank"
	"github.com/esseedoubleyou/goldmonitor/pkg/market"
	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

// reservesSeriesName is the history series the monthly levels land under.
const reservesSeriesName = "cb_reserves_total"

var dateLayouts = []string{"2006-01-02", "2006-01", "2006M01"}

type reservesRow struct {
	date   time.Time
	tonnes float64
}

type quarterAgg struct {
	label   string
	endDate time.Time
	level   float64
	delta   float64
	hasPrev bool
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	var (
		configPath = flag.String("f", "etc/goldmonitor.yaml", "the config file")
		apply      = flag.Bool("apply", false, "write quarterly net purchases into the curated store")
		record     = flag.Bool("record", false, "record monthly reserve levels into metric history")
	)
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run scripts/import_reserves.go [-apply] [-record] <path_to_imf_csv>")
		fmt.Println("\nPreviews the export, derives quarterly net purchases, and optionally imports them.")
		os.Exit(1)
	}
	csvPath := flag.Arg(0)

	header, preview, rows, skipped, err := parseExport(csvPath)
	if err != nil {
		fail("read %s: %v", csvPath, err)
	}

	fmt.Printf("Previewing: %s\n\n", csvPath)
	fmt.Println("Columns found:")
	for i, col := range header {
		fmt.Printf("  %d. %s\n", i+1, col)
	}
	fmt.Println("\nFirst rows:")
	for _, row := range preview {
		fmt.Printf("  %s\n", strings.Join(row, ", "))
	}
	fmt.Printf("\nParsed %d monthly observations", len(rows))
	if skipped > 0 {
		fmt.Printf(" (%d rows skipped)", skipped)
	}
	fmt.Println()

	if len(rows) == 0 {
		fail("no usable rows, expected date and tonnes columns")
	}

	aggs := aggregateQuarters(rows)
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("Quarterly aggregates (net change = purchases in tonnes)")
	fmt.Println(strings.Repeat("=", 60))
	for _, q := range aggs {
		if !q.hasPrev {
			fmt.Printf("  %-8s  end %s  level %9.1ft  (baseline, no prior quarter)\n",
				q.label, q.endDate.Format("2006-01-02"), q.level)
			continue
		}
		fmt.Printf("  %-8s  end %s  level %9.1ft  net %+8.1ft\n",
			q.label, q.endDate.Format("2006-01-02"), q.level, q.delta)
	}

	if !*apply && !*record {
		fmt.Println("\nDry run. Re-run with -apply to fill the curated store, -record to store the levels.")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("\nWarning: %v, using defaults\n", err)
		cfg = config.DefaultConfig()
	}

	if *apply {
		cbCfg := cfg.CentralBankConfig()
		store := centralbank.NewStore(cbCfg.DataFile, centralbank.WithStaleAfter(cbCfg.StaleDays))
		applied := 0
		for _, q := range aggs {
			if !q.hasPrev {
				continue
			}
			entry := centralbank.Entry{
				Quarter:     q.label,
				Tonnes:      q.delta,
				Source:      "IMF IFS import",
				ValidatedAt: q.endDate,
			}
			if err := store.Append(entry); err != nil {
				fail("append %s: %v", q.label, err)
			}
			applied++
		}
		fmt.Printf("\nWrote %d quarters to %s\n", applied, store.Path())
	}

	if *record {
		persist := histpersist.NewService(histpersist.Config{
			CSVPath: filepath.Join(cfg.DataDir, "gold_metrics_history.csv"),
		})
		series := timeseries.Series{Name: reservesSeriesName}
		for _, row := range rows {
			series.Points = append(series.Points, timeseries.Point{Date: row.date, Value: row.tonnes})
		}
		series = timeseries.Compact(series)
		if err := recordReserves(context.Background(), persist, series); err != nil {
			fail("record %s: %v", reservesSeriesName, err)
		}
		fmt.Printf("Recorded %d monthly levels as %s in metric history\n", series.Len(), reservesSeriesName)
	}
}

// parseExport reads the IMF CSV, locating the date and tonnes columns by
// header name so extra columns in the export are tolerated.
func parseExport(path string) (header []string, preview [][]string, rows []reservesRow, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err = r.Read()
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("read header: %w", err)
	}

	dateCol, tonnesCol := -1, -1
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		switch {
		case dateCol < 0 && (strings.Contains(name, "date") || strings.Contains(name, "time period")):
			dateCol = i
		case tonnesCol < 0 && (strings.Contains(name, "tonne") || name == "value"):
			tonnesCol = i
		}
	}
	if dateCol < 0 || tonnesCol < 0 {
		return header, nil, nil, 0, fmt.Errorf("no date/tonnes columns in header %v", header)
	}

	for {
		record, readErr := r.Read()
		if readErr != nil {
			break
		}
		if len(preview) < 3 {
			preview = append(preview, record)
		}
		if len(record) <= dateCol || len(record) <= tonnesCol {
			skipped++
			continue
		}
		date, ok := parseDate(record[dateCol])
		if !ok {
			skipped++
			continue
		}
		tonnes, parseErr := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(record[tonnesCol]), ",", ""), 64)
		if parseErr != nil {
			skipped++
			continue
		}
		rows = append(rows, reservesRow{date: date, tonnes: tonnes})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })
	return header, preview, rows, skipped, nil
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// aggregateQuarters keeps the last monthly level per quarter and derives the
// quarter-over-quarter change. The first observed quarter is the baseline.
func aggregateQuarters(rows []reservesRow) []quarterAgg {
	last := map[string]reservesRow{}
	var order []string
	for _, row := range rows {
		label := quarterLabel(row.date)
		if _, seen := last[label]; !seen {
			order = append(order, label)
		}
		last[label] = row
	}

	aggs := make([]quarterAgg, 0, len(order))
	for i, label := range order {
		row := last[label]
		agg := quarterAgg{label: label, endDate: row.date, level: row.tonnes}
		if i > 0 {
			prev := last[order[i-1]]
			agg.delta = row.tonnes - prev.tonnes
			agg.hasPrev = true
		}
		aggs = append(aggs, agg)
	}
	return aggs
}

func quarterLabel(t time.Time) string {
	return fmt.Sprintf("Q%d_%d", (int(t.Month())-1)/3+1, t.Year())
}

func recordReserves(ctx context.Context, rec market.Recorder, series timeseries.Series) error {
	return rec.RecordHistory(ctx, map[string]timeseries.Series{series.Name: series})
}
