package pipeline

import (
	"context"

	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/jwerderits/farmspread/internal/window"
)

// EventSource discovers every event reachable from the API root.
type EventSource interface {
	Discover(ctx context.Context, rootURI string) ([]domain.EventRef, error)
}

// EventFlattener turns one event into ledger rows.
type EventFlattener interface {
	Flatten(ctx context.Context, uri string) ([]domain.TransactionRow, error)
}

// RunRecorder audits runs. MarkRunFailed only logs its own failures.
type RunRecorder interface {
	StartRun(ctx context.Context, w window.Window) (string, error)
	MarkRunFailed(ctx context.Context, runID string, runErr error)
	MarkRunSucceeded(ctx context.Context, runID string, rowCount int, objectName string) error
	RecordLedger(ctx context.Context, runID string, l *domain.Ledger) error
}

// NopRecorder is used when no audit backend is configured. It still hands
// out run IDs so logs can be correlated.
type NopRecorder struct {
	NewID func() string
}

func (r NopRecorder) StartRun(ctx context.Context, w window.Window) (string, error) {
	if r.NewID != nil {
		return r.NewID(), nil
	}
	return newRunID(), nil
}

func (NopRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {}

func (NopRecorder) MarkRunSucceeded(ctx context.Context, runID string, rowCount int, objectName string) error {
	return nil
}

func (NopRecorder) RecordLedger(ctx context.Context, runID string, l *domain.Ledger) error {
	return nil
}
