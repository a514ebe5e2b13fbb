package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// TimestampLayout is the upstream start/end datetime format (no offset).
const TimestampLayout = "2006-01-02T15:04:05"

// ParseTimestamp parses an upstream timestamp into the market location.
// Naive timestamps are taken to be market-local already; timestamps carrying
// an offset are converted.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(TimestampLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseTimestamp: %q is not %s or RFC3339", s, TimestampLayout)
	}
	return t.In(loc), nil
}

// MarketDate returns the calendar date of t in its own location.
func MarketDate(t time.Time) civil.Date {
	return civil.DateOf(t)
}
