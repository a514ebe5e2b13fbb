// Package window selects the market days a run covers and names the
// snapshots it reads and writes.
package window

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jwerderits/farmspread/internal/domain"
)

// Mode is a run cadence.
type Mode string

const (
	// ModeRolling looks back N days from the end date: [end-N, end], which
	// is N+1 market dates.
	ModeRolling Mode = "rolling"
	// ModeMonth covers the calendar month to date.
	ModeMonth Mode = "month"
)

const (
	DefaultRollingDays     = 30
	DefaultPriorOffsetDays = 7
	SnapshotExt            = ".csv"
)

// ParseMode accepts "rolling" or "month" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRolling, "":
		return ModeRolling, nil
	case ModeMonth:
		return ModeMonth, nil
	default:
		return "", fmt.Errorf("ParseMode: unknown window mode %q (want rolling or month)", s)
	}
}

// Window is an inclusive range of market dates.
type Window struct {
	Mode  Mode
	Start civil.Date
	End   civil.Date
}

// New builds the window for mode ending on end. rollingDays is only used by
// ModeRolling, where Start is end minus rollingDays; values below 1 fall
// back to DefaultRollingDays.
func New(mode Mode, end civil.Date, rollingDays int) (Window, error) {
	if !end.IsValid() {
		return Window{}, fmt.Errorf("window.New: invalid end date %v", end)
	}
	switch mode {
	case ModeRolling:
		if rollingDays < 1 {
			rollingDays = DefaultRollingDays
		}
		return Window{Mode: mode, Start: end.AddDays(-rollingDays), End: end}, nil
	case ModeMonth:
		first := civil.Date{Year: end.Year, Month: end.Month, Day: 1}
		return Window{Mode: mode, Start: first, End: end}, nil
	default:
		return Window{}, fmt.Errorf("window.New: unknown mode %q", mode)
	}
}

// Joinable reports whether the window lies inside one calendar month.
// Only such windows are reconciled against a prior snapshot.
func (w Window) Joinable() bool {
	return w.Start.Year == w.End.Year && w.Start.Month == w.End.Month
}

// SnapshotName is the object name this run writes.
func (w Window) SnapshotName() string {
	return SnapshotName(w.End)
}

// PriorSnapshotName is the snapshot the run is reconciled against.
func (w Window) PriorSnapshotName(offsetDays int) string {
	if offsetDays < 1 {
		offsetDays = DefaultPriorOffsetDays
	}
	return SnapshotName(w.End.AddDays(-offsetDays))
}

// Filter keeps the events of w, see Filter.
func (w Window) Filter(events []domain.EventRef) []domain.EventRef {
	return Filter(events, w.Start, w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("%s [%s, %s]", w.Mode, w.Start, w.End)
}

// SnapshotName formats the object name for a snapshot dated d.
func SnapshotName(d civil.Date) string {
	return d.String() + SnapshotExt
}

// ParseSnapshotName is the inverse of SnapshotName.
func ParseSnapshotName(name string) (civil.Date, error) {
	base := strings.TrimSuffix(name[strings.LastIndex(name, "/")+1:], SnapshotExt)
	d, err := civil.ParseDate(base)
	if err != nil {
		return civil.Date{}, fmt.Errorf("ParseSnapshotName: %q: %w", name, err)
	}
	return d, nil
}

// Filter returns the events whose market-local start date lies in
// [from, to], inclusive at both ends, in their original order. A zero to
// disables filtering. from after to yields no events.
func Filter(events []domain.EventRef, from, to civil.Date) []domain.EventRef {
	if to == (civil.Date{}) {
		return events
	}
	out := make([]domain.EventRef, 0, len(events))
	for _, e := range events {
		d := civil.DateOf(e.StartTime)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Today is the current date in the market location.
func Today(loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(time.Now().In(loc))
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("ParseDate: %w", err)
	}
	return d, nil
}
