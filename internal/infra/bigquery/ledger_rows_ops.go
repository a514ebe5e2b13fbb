package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const (
	ledgerRowsTable = "ledger_rows"
	insertBatchSize = 500
)

// InsertLedgerRowsWithClient streams rows into ledger_rows in batches.
func InsertLedgerRowsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, rows []*LedgerRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(datasetID).Table(ledgerRowsTable).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("InsertLedgerRows: inserting rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}
