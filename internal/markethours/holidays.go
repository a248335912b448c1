package markethours

import (
	"fmt"
	"strings"
	"time"
)

// Holidays is a set of non-trading dates keyed by "2006-01-02".
type Holidays map[string]bool

// ParseHolidays builds a holiday set from YYYY-MM-DD strings. Blank entries
// are ignored.
func ParseHolidays(dates []string) (Holidays, error) {
	h := make(Holidays, len(dates))
	for _, d := range dates {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("markethours: invalid holiday %q: %w", d, err)
		}
		h[t.Format(dateLayout)] = true
	}
	return h, nil
}

// Contains reports whether the calendar date of t (in t's own location) is
// a holiday.
func (h Holidays) Contains(t time.Time) bool {
	if len(h) == 0 {
		return false
	}
	return h[t.Format(dateLayout)]
}
