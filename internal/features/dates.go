package features

import (
	"math"
	"strings"
	"time"
)

// joinDateLayouts are tried in order; the first successful parse wins.
var joinDateLayouts = []string{
	"2-1-2006",
	"2006-1-2",
	"2/1/2006",
	"2006/1/2",
}

// isoDate is the layout join dates are rewritten to.
const isoDate = "2006-01-02"

func parseJoinDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range joinDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateOnly truncates t to midnight UTC of its calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from -> to. Both are calendar dates.
func daysBetween(from, to time.Time) int64 {
	return (dateOnly(to).Unix() - dateOnly(from).Unix()) / 86400
}

// tenureYears converts days to years of 365 days, rounded half to even at
// one decimal.
func tenureYears(days int64) float64 {
	return math.RoundToEven(float64(days)/365*10) / 10
}
