package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

const csvDateLayout = "2006-01-02"

// ReadWideCSV parses the wide on-disk history layout: a `date` column
// followed by one column per metric, one row per observation day. Blank
// cells mean the metric was not observed that day and produce no point.
//
// Rows may appear in any order; each returned series is sorted ascending
// with duplicate dates collapsed to the last row in file order.
func ReadWideCSV(r io.Reader) (map[string]Series, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return map[string]Series{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 1 || !strings.EqualFold(strings.TrimSpace(header[0]), "date") {
		return nil, errors.New("wide csv: first column must be date")
	}

	metrics := make([]string, len(header))
	for i := 1; i < len(header); i++ {
		metrics[i] = strings.TrimSpace(header[i])
	}

	points := make(map[string][]Point, len(header)-1)
	row := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
		row++
		day, err := time.Parse(csvDateLayout, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parse date %q: %w", row, record[0], err)
		}
		for i := 1; i < len(record); i++ {
			cell := strings.TrimSpace(record[i])
			if cell == "" || metrics[i] == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: metric %s: parse value %q: %w", row, metrics[i], cell, err)
			}
			points[metrics[i]] = append(points[metrics[i]], Point{Date: Day(day), Value: v})
		}
	}

	out := make(map[string]Series, len(points))
	for name, pts := range points {
		out[name] = Compact(Series{Name: name, Points: pts})
	}
	return out, nil
}

// WriteWideCSV renders series into the wide layout read by ReadWideCSV.
// Metric columns are sorted alphabetically and rows ascend by date, so
// repeated writes of the same data are byte-identical. When a series still
// carries conflicting rows for one date, the later point wins, matching
// latest-value reads.
func WriteWideCSV(w io.Writer, series map[string]Series) error {
	metrics := make([]string, 0, len(series))
	for name := range series {
		if name == "" {
			continue
		}
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)

	byDay := make(map[time.Time]map[string]float64)
	for _, name := range metrics {
		for _, p := range series[name].Points {
			day := Day(p.Date)
			row := byDay[day]
			if row == nil {
				row = make(map[string]float64, len(metrics))
				byDay[day] = row
			}
			row[name] = p.Value
		}
	}
	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"date"}, metrics...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(metrics)+1)
	for _, day := range days {
		record[0] = day.Format(csvDateLayout)
		for i, name := range metrics {
			if v, ok := byDay[day][name]; ok {
				record[i+1] = strconv.FormatFloat(v, 'f', -1, 64)
			} else {
				record[i+1] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", record[0], err)
		}
	}
	cw.Flush()
	return cw.Error()
}
