package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// TableDDL returns the CREATE TABLE statements for the audit tables.
func TableDDL(datasetID string) []string {
	return []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			run_id         STRING NOT NULL,
			mode           STRING NOT NULL,
			window_start   DATE NOT NULL,
			window_end     DATE NOT NULL,
			started_ts     TIMESTAMP NOT NULL,
			finished_ts    TIMESTAMP,
			status         STRING NOT NULL,
			error_message  STRING,
			row_count      INT64,
			object_name    STRING
		)
		PARTITION BY DATE(started_ts)
	`, datasetID, scrapeRunsTable),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			run_id                    STRING NOT NULL,
			snapshot_name             STRING NOT NULL,
			transaction_id            STRING NOT NULL,
			vendor_id                 STRING NOT NULL,
			vendor_name               STRING,
			market                    STRING,
			market_date               DATE NOT NULL,
			payments                  ARRAY<STRUCT<name STRING, amount NUMERIC>>,
			reported_sales            NUMERIC,
			total_sales               NUMERIC NOT NULL,
			checksum                  NUMERIC NOT NULL,
			vendor_fee                NUMERIC NOT NULL,
			reimbursements            NUMERIC NOT NULL,
			reimbursement_fee         NUMERIC NOT NULL,
			vendor_owes               NUMERIC NOT NULL,
			city_seed_owes            NUMERIC NOT NULL,
			reimbursements_change     NUMERIC,
			reimbursement_fee_change  NUMERIC,
			vendor_owes_change        NUMERIC,
			city_seed_owes_change     NUMERIC,
			created_ts                TIMESTAMP NOT NULL
		)
		PARTITION BY market_date
	`, datasetID, ledgerRowsTable),
	}
}

// EnsureTablesWithClient creates the audit tables when they do not exist.
func EnsureTablesWithClient(ctx context.Context, client *bigquery.Client, datasetID string) error {
	for _, ddl := range TableDDL(datasetID) {
		if err := runAndWait(ctx, client.Query(ddl)); err != nil {
			return fmt.Errorf("EnsureTables: %w", err)
		}
	}
	return nil
}

// EnsureTables delegates to EnsureTablesWithClient with the shared client.
func (r *BigQueryRunRepository) EnsureTables(ctx context.Context) error {
	return EnsureTablesWithClient(ctx, r.client, r.datasetID)
}
