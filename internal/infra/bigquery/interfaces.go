package bigquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/jwerderits/farmspread/internal/window"
)

// BigQueryRunRepository records scrape runs and exports ledgers. It holds a
// shared BigQuery client for all operations.
type BigQueryRunRepository struct {
	client    *bigquery.Client
	datasetID string
}

// NewBigQueryRunRepository creates a repository writing to projectID.datasetID.
func NewBigQueryRunRepository(ctx context.Context, projectID, datasetID string) (*BigQueryRunRepository, error) {
	if projectID == "" || datasetID == "" {
		return nil, errors.New("NewBigQueryRunRepository: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRunRepository: creating client: %w", err)
	}
	return &BigQueryRunRepository{client: client, datasetID: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// StartRun delegates to StartRunWithClient with the shared client.
func (r *BigQueryRunRepository) StartRun(ctx context.Context, w window.Window) (string, error) {
	return StartRunWithClient(ctx, r.client, r.datasetID, w)
}

// MarkRunFailed delegates to MarkRunFailedWithClient with the shared client.
func (r *BigQueryRunRepository) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	MarkRunFailedWithClient(ctx, r.client, r.datasetID, runID, runErr)
}

// MarkRunSucceeded delegates to MarkRunSucceededWithClient with the shared client.
func (r *BigQueryRunRepository) MarkRunSucceeded(ctx context.Context, runID string, rowCount int, objectName string) error {
	return MarkRunSucceededWithClient(ctx, r.client, r.datasetID, runID, rowCount, objectName)
}

// RecordLedger exports every row of l under runID.
func (r *BigQueryRunRepository) RecordLedger(ctx context.Context, runID string, l *domain.Ledger) error {
	return InsertLedgerRowsWithClient(ctx, r.client, r.datasetID, NewLedgerRows(runID, l, time.Now()))
}

// ListRecentRuns delegates to ListRecentRunsWithClient with the shared client.
func (r *BigQueryRunRepository) ListRecentRuns(ctx context.Context, limit int) ([]*ScrapeRunRow, error) {
	return ListRecentRunsWithClient(ctx, r.client, r.datasetID, limit)
}
