package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/jwerderits/farmspread/internal/flatten"
	"github.com/jwerderits/farmspread/internal/ledgercsv"
	"github.com/jwerderits/farmspread/internal/logger"
	"github.com/jwerderits/farmspread/internal/reconcile"
	"github.com/jwerderits/farmspread/internal/storage"
	"github.com/jwerderits/farmspread/internal/window"
)

// PipelineStep represents a single step in the scrape pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	RunID  string
	Window window.Window

	Discovered []domain.EventRef
	Selected   []domain.EventRef
	Rows       []domain.TransactionRow

	Ledger *domain.Ledger
	// PriorName is the snapshot the ledger was reconciled against, if any.
	PriorName string
	// ReconcileSkipped explains why the ledger carries no change columns.
	ReconcileSkipped string

	Data      []byte
	ObjectURI string
	Persisted bool
}

// Step 1: StartRunStep records the run (status=RUNNING).
type StartRunStep struct {
	Recorder RunRecorder
}

func (s *StartRunStep) Name() string { return StepStartRun }

func (s *StartRunStep) Execute(ctx context.Context, state *PipelineState) error {
	runID, err := s.Recorder.StartRun(ctx, state.Window)
	if err != nil {
		return err
	}
	state.RunID = runID
	return nil
}

// Step 2: DiscoverStep walks markets, seasons and events.
type DiscoverStep struct {
	Source  EventSource
	RootURI string
}

func (s *DiscoverStep) Name() string { return StepDiscover }

func (s *DiscoverStep) Execute(ctx context.Context, state *PipelineState) error {
	events, err := s.Source.Discover(ctx, s.RootURI)
	if err != nil {
		return err
	}
	state.Discovered = events
	return nil
}

// Step 3: FilterStep keeps the events inside the run window.
type FilterStep struct{}

func (s *FilterStep) Name() string { return StepFilter }

func (s *FilterStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Selected = state.Window.Filter(state.Discovered)
	log := logger.FromContext(ctx)
	log.Info().
		Int("discovered", len(state.Discovered)).
		Int("selected", len(state.Selected)).
		Msg("Filtered events to window")
	return nil
}

// Step 4: FlattenStep fetches every selected event, one at a time, and
// concatenates the rows in discovery order.
type FlattenStep struct {
	Flattener EventFlattener
}

func (s *FlattenStep) Name() string { return StepFlatten }

func (s *FlattenStep) Execute(ctx context.Context, state *PipelineState) error {
	var rows []domain.TransactionRow
	for _, e := range state.Selected {
		eventRows, err := s.Flattener.Flatten(ctx, e.URI)
		if err != nil {
			return err
		}
		rows = append(rows, eventRows...)
	}
	state.Rows = rows
	return nil
}

// Step 5: AssembleStep builds the ledger and picks its payment columns.
type AssembleStep struct {
	// PaymentColumns is an optional whitelist of currency names or cleaned
	// headers, kept in order.
	PaymentColumns []string
}

func (s *AssembleStep) Name() string { return StepAssemble }

func (s *AssembleStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Ledger = &domain.Ledger{
		Name:           state.Window.SnapshotName(),
		Rows:           state.Rows,
		PaymentColumns: cleanColumns(s.PaymentColumns),
	}
	return nil
}

func cleanColumns(cols []string) []string {
	if len(cols) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(cols))
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		h := flatten.PaymentHeader(c)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}

// Step 6: ReconcileStep diffs the ledger against the prior snapshot when the
// window lies inside one month. A missing or unreadable prior snapshot either
// skips reconciliation or, when Strict, fails the run.
type ReconcileStep struct {
	Store           storage.Store
	PriorOffsetDays int
	Strict          bool
}

func (s *ReconcileStep) Name() string { return StepReconcile }

func (s *ReconcileStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	if !state.Window.Joinable() {
		state.ReconcileSkipped = SkipNotJoinable
		log.Info().Str("window", state.Window.String()).Msg("Skipping reconciliation: " + SkipNotJoinable)
		return nil
	}

	priorName := state.Window.PriorSnapshotName(s.PriorOffsetDays)
	prior, err := s.loadPrior(ctx, priorName)
	if err != nil {
		if s.Strict {
			return fmt.Errorf("%w: %s: %w", domain.ErrReconciliationUnavailable, priorName, err)
		}
		state.ReconcileSkipped = SkipPriorMissing
		log.Warn().
			Err(err).
			Str("prior", priorName).
			Msg("Skipping reconciliation: " + SkipPriorMissing)
		return nil
	}

	state.Ledger = reconcile.Reconcile(ctx, state.Ledger, prior)
	state.PriorName = priorName
	return nil
}

func (s *ReconcileStep) loadPrior(ctx context.Context, name string) (*domain.Ledger, error) {
	data, err := s.Store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return ledgercsv.Decode(bytes.NewReader(data), name)
}

// Step 7: PersistStep serializes the ledger and writes it to the store.
type PersistStep struct {
	Store  storage.Store
	DryRun bool
}

func (s *PersistStep) Name() string { return StepPersist }

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	data, err := ledgercsv.Marshal(state.Ledger)
	if err != nil {
		return err
	}
	state.Data = data
	state.ObjectURI = s.Store.URI(state.Ledger.Name)

	if s.DryRun {
		log.Info().Str("object", state.ObjectURI).Int("bytes", len(data)).Msg("Dry run, ledger not written")
		return nil
	}

	start := time.Now()
	if err := s.Store.Put(ctx, state.Ledger.Name, data); err != nil {
		return err
	}
	state.Persisted = true

	log.Info().
		Str("object", state.ObjectURI).
		Int("rows", len(state.Ledger.Rows)).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("Ledger written")
	return nil
}

// Step 8: RecordLedgerStep exports the persisted ledger to the audit backend.
type RecordLedgerStep struct {
	Recorder RunRecorder
}

func (s *RecordLedgerStep) Name() string { return StepRecordLedger }

func (s *RecordLedgerStep) Execute(ctx context.Context, state *PipelineState) error {
	if !state.Persisted {
		return nil
	}
	return s.Recorder.RecordLedger(ctx, state.RunID, state.Ledger)
}

// Step 9: MarkSuccessStep marks the run as SUCCESS.
type MarkSuccessStep struct {
	Recorder RunRecorder
}

func (s *MarkSuccessStep) Name() string { return StepMarkSuccess }

func (s *MarkSuccessStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.Recorder.MarkRunSucceeded(ctx, state.RunID, len(state.Ledger.Rows), state.ObjectURI)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps    []PipelineStep
	recorder RunRecorder
}

// NewPipeline creates a new pipeline with the given steps. When recorder is
// not nil a failing step marks the run FAILED.
func NewPipeline(recorder RunRecorder, steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps, recorder: recorder}
}

// Execute runs all steps in the pipeline sequentially and stops at the first
// failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	bound := false
	for i, step := range p.steps {
		start := time.Now()
		if err := step.Execute(ctx, state); err != nil {
			err = fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
			if p.recorder != nil && state.RunID != "" {
				p.recorder.MarkRunFailed(ctx, state.RunID, err)
			}
			return err
		}
		if !bound && state.RunID != "" {
			w := state.Window
			ctx = logger.WithContext(ctx, logger.WithRun(logger.FromContext(ctx), state.RunID, string(w.Mode), w.Start.String(), w.End.String()))
			bound = true
		}
		log := logger.FromContext(ctx)
		log.Debug().
			Str("stage", step.Name()).
			Dur("duration", time.Since(start)).
			Msg("Step completed")
	}
	return nil
}
