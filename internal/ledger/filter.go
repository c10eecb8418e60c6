package ledger

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nhfoods/ledgerdesk/internal/format"
)

// FilterType selects the date window applied before reconstruction.
type FilterType string

const (
	FilterAll    FilterType = "all"
	FilterDay    FilterType = "day"
	FilterMonth  FilterType = "month"
	FilterYear   FilterType = "year"
	FilterCustom FilterType = "custom"
)

// DateFilter describes a date window. From and To are only read for FilterCustom; a zero
// value leaves that side unbounded.
type DateFilter struct {
	Type FilterType `json:"filterType"`
	From time.Time  `json:"startDate,omitempty"`
	To   time.Time  `json:"endDate,omitempty"`
}

// DateRange is an inclusive window. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// ParseFilterType normalises a filter name; empty means FilterAll.
func ParseFilterType(raw string) (FilterType, error) {
	switch ft := FilterType(strings.ToLower(strings.TrimSpace(raw))); ft {
	case "":
		return FilterAll, nil
	case FilterAll, FilterDay, FilterMonth, FilterYear, FilterCustom:
		return ft, nil
	}
	return "", ErrUnknownFilter
}

// Range resolves the filter against now. Windows are computed in now's location.
func (f DateFilter) Range(now time.Time) (DateRange, error) {
	loc := now.Location()
	y, m, d := now.Date()
	switch f.Type {
	case FilterAll, "":
		return DateRange{}, nil
	case FilterDay:
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return DateRange{From: start, To: endOfDay(start)}, nil
	case FilterMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		last := start.AddDate(0, 1, -1)
		return DateRange{From: start, To: endOfDay(last)}, nil
	case FilterYear:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		last := time.Date(y, time.December, 31, 0, 0, 0, 0, loc)
		return DateRange{From: start, To: endOfDay(last)}, nil
	case FilterCustom:
		var r DateRange
		if !f.From.IsZero() {
			fy, fm, fd := f.From.Date()
			r.From = time.Date(fy, fm, fd, 0, 0, 0, 0, loc)
		}
		if !f.To.IsZero() {
			ty, tm, td := f.To.Date()
			r.To = endOfDay(time.Date(ty, tm, td, 0, 0, 0, 0, loc))
		}
		return r, nil
	}
	return DateRange{}, ErrUnknownFilter
}

// Query renders the filter as the filterType/startDate/endDate parameters the expense
// endpoint understands.
func (f DateFilter) Query() url.Values {
	q := url.Values{}
	ft := f.Type
	if ft == "" {
		ft = FilterAll
	}
	q.Set("filterType", string(ft))
	if ft == FilterCustom {
		if !f.From.IsZero() {
			q.Set("startDate", format.ISODate(f.From))
		}
		if !f.To.IsZero() {
			q.Set("endDate", format.ISODate(f.To))
		}
	}
	return q
}

// FilterByDate returns the entries inside the filter window in their original order.
// The input slice is not modified. Entries without a parseable date are dropped by
// every filter except FilterAll.
func FilterByDate(entries []Entry, f DateFilter, now time.Time) ([]Entry, error) {
	window, err := f.Range(now)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	if f.Type == FilterAll || f.Type == "" {
		return append(out, entries...), nil
	}
	for _, e := range entries {
		at, ok := e.In(now.Location())
		if !ok {
			continue
		}
		if window.Contains(at) {
			out = append(out, e)
		}
	}
	return out, nil
}

func endOfDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), day.Location())
}

// Label describes the filter window for headers and listings, resolved against now
// for the relative filters.
func (f DateFilter) Label(now time.Time) string {
	switch f.Type {
	case FilterDay:
		return format.DateLong(now)
	case FilterMonth:
		return now.Format("January 2006")
	case FilterYear:
		return now.Format("2006")
	case FilterCustom:
		switch {
		case f.From.IsZero() && f.To.IsZero():
		case f.From.IsZero():
			return "Up to " + format.DateLong(f.To)
		case f.To.IsZero():
			return "From " + format.DateLong(f.From)
		default:
			return format.DateLong(f.From) + " - " + format.DateLong(f.To)
		}
	}
	return "All transactions"
}

// ParseFilter builds a filter from its wire parts. Bounds use YYYY-MM-DD and are only
// read for custom filters.
func ParseFilter(filterType, from, to string) (DateFilter, error) {
	ft, err := ParseFilterType(filterType)
	if err != nil {
		return DateFilter{}, fmt.Errorf("%w: %q", err, filterType)
	}
	f := DateFilter{Type: ft}
	if ft != FilterCustom {
		return f, nil
	}
	if f.From, err = parseDay(from); err != nil {
		return DateFilter{}, err
	}
	if f.To, err = parseDay(to); err != nil {
		return DateFilter{}, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return DateFilter{}, fmt.Errorf("%w: end date precedes start date", ErrInvalidRange)
	}
	return f, nil
}

func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrInvalidRange, raw)
	}
	return t, nil
}
