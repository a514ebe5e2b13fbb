package pipeline

import "github.com/google/uuid"

// Step names, as they appear in logs and failure messages.
const (
	StepStartRun     = "start_run"
	StepDiscover     = "discover"
	StepFilter       = "filter"
	StepFlatten      = "flatten"
	StepAssemble     = "assemble"
	StepReconcile    = "reconcile"
	StepPersist      = "persist"
	StepRecordLedger = "record_ledger"
	StepMarkSuccess  = "mark_success"
)

// Reasons a run is written without change columns.
const (
	SkipNotJoinable  = "window crosses a month boundary"
	SkipPriorMissing = "prior snapshot unavailable"
)

func newRunID() string {
	return uuid.NewString()
}
