package domain

import (
	"errors"
	"fmt"
)

// ErrReconciliationUnavailable is returned when a prior snapshot is required
// for reconciliation but cannot be loaded.
var ErrReconciliationUnavailable = errors.New("reconciliation unavailable")

// TransportError reports a failed upstream fetch: network failure, non-2xx
// status, or a body that is not the expected JSON.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SchemaError reports an upstream payload missing a field the flattener
// cannot do without. Stall is the zero-based stall index, or -1 when the
// problem is at event level.
type SchemaError struct {
	EventURI string
	Stall    int
	Field    string
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Stall < 0 {
		return fmt.Sprintf("event %s: field %q: %s", e.EventURI, e.Field, e.Reason)
	}
	return fmt.Sprintf("event %s: stall %d: field %q: %s", e.EventURI, e.Stall, e.Field, e.Reason)
}
