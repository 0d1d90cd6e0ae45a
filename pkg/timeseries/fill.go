package timeseries

import (
	"sort"
	"time"
)

// Calendar returns the sorted union of observation dates across the supplied
// series. It is the daily reporting grid coarser-cadence series are filled
// onto.
func Calendar(series ...Series) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, s := range series {
		for _, p := range s.Points {
			seen[p.Date] = struct{}{}
		}
	}
	out := make([]time.Time, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// ForwardFill projects a series onto the calendar, carrying the most recent
// known value onto every calendar date at or after the first observation.
// A value is never inferred from a future observation: calendar dates before
// the first observation stay undefined and are simply absent from the result.
func ForwardFill(s Series, calendar []time.Time) Series {
	out := Series{Name: s.Name}
	if len(s.Points) == 0 || len(calendar) == 0 {
		return out
	}
	out.Points = make([]Point, 0, len(calendar))

	i := 0
	carry := 0.0
	carrying := false
	for _, day := range calendar {
		for i < len(s.Points) && !s.Points[i].Date.After(day) {
			carry = s.Points[i].Value
			carrying = true
			i++
		}
		if carrying {
			out.Points = append(out.Points, Point{Date: day, Value: carry})
		}
	}
	return out
}
