package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date layout used across leapstar.
const DateLayout = "2006-01-02"

// Window is a half-open calendar-date range [Start, End) that scopes a load.
// Both bounds are dates at midnight UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// YearWindow returns the window covering a whole calendar year.
func YearWindow(year int) Window {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(1, 0, 0)}
}

// MonthWindow returns the window covering a single calendar month.
func MonthWindow(year int, month time.Month) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// RangeWindow returns the window covering from through to, both inclusive.
func RangeWindow(from, to time.Time) (Window, error) {
	from = TruncateDate(from)
	to = TruncateDate(to)
	if to.Before(from) {
		return Window{}, fmt.Errorf("window end %s is before start %s", to.Format(DateLayout), from.Format(DateLayout))
	}
	return Window{Start: from, End: to.AddDate(0, 0, 1)}, nil
}

// ParseWindow parses a window expression.
//
// Accepted forms:
//
//	2021                    whole year
//	2021-05                 whole month
//	2021-05-01              single day
//	2021-01-01..2021-06-30  inclusive date range
func ParseWindow(s string) (Window, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Window{}, fmt.Errorf("window is empty")
	}

	if from, to, ok := strings.Cut(s, ".."); ok {
		start, err := time.Parse(DateLayout, strings.TrimSpace(from))
		if err != nil {
			return Window{}, fmt.Errorf("invalid window start %q: expected YYYY-MM-DD", from)
		}
		end, err := time.Parse(DateLayout, strings.TrimSpace(to))
		if err != nil {
			return Window{}, fmt.Errorf("invalid window end %q: expected YYYY-MM-DD", to)
		}
		return RangeWindow(start, end)
	}

	switch len(s) {
	case 4:
		year, err := strconv.Atoi(s)
		if err != nil || year < 1 {
			return Window{}, fmt.Errorf("invalid window year %q", s)
		}
		return YearWindow(year), nil
	case 7:
		t, err := time.Parse("2006-01", s)
		if err != nil {
			return Window{}, fmt.Errorf("invalid window month %q: expected YYYY-MM", s)
		}
		return MonthWindow(t.Year(), t.Month()), nil
	case 10:
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return Window{}, fmt.Errorf("invalid window date %q: expected YYYY-MM-DD", s)
		}
		return RangeWindow(t, t)
	}

	return Window{}, fmt.Errorf("invalid window %q: expected YYYY, YYYY-MM, YYYY-MM-DD or FROM..TO", s)
}

// Contains reports whether the calendar date of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	d := TruncateDate(t)
	return !d.Before(w.Start) && d.Before(w.End)
}

// IsZero reports whether the window was never set.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Validate checks that the window is non-empty.
func (w Window) Validate() error {
	if w.IsZero() {
		return fmt.Errorf("window is not set")
	}
	if !w.End.After(w.Start) {
		return fmt.Errorf("window %s is empty", w)
	}
	return nil
}

// Last returns the last date contained in the window.
func (w Window) Last() time.Time {
	return w.End.AddDate(0, 0, -1)
}

// String renders the window as an inclusive range, or as a year when it
// covers exactly one calendar year.
func (w Window) String() string {
	if w.Start.Month() == time.January && w.Start.Day() == 1 && w.End.Equal(w.Start.AddDate(1, 0, 0)) {
		return strconv.Itoa(w.Start.Year())
	}
	return w.Start.Format(DateLayout) + ".." + w.Last().Format(DateLayout)
}

// TruncateDate drops the time of day, keeping the wall-clock date in UTC.
func TruncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
