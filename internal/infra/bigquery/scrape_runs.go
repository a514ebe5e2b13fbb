package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// Run statuses.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

type ScrapeRunRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED
	Mode  string `bigquery:"mode"`   // REQUIRED

	WindowStart civil.Date `bigquery:"window_start"` // REQUIRED
	WindowEnd   civil.Date `bigquery:"window_end"`   // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string              `bigquery:"status"`        // REQUIRED
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE

	RowCount   bigquery.NullInt64  `bigquery:"row_count"`   // NULLABLE
	ObjectName bigquery.NullString `bigquery:"object_name"` // NULLABLE
}
