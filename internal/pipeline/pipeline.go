// Package pipeline runs one scrape: discover events, keep those in the
// window, flatten them into rows, assemble and reconcile the ledger, and
// persist it as a dated snapshot.
package pipeline

import (
	"context"
	"errors"

	"github.com/jwerderits/farmspread/internal/logger"
	"github.com/jwerderits/farmspread/internal/storage"
	"github.com/jwerderits/farmspread/internal/window"
)

// Deps are the collaborators a run talks to.
type Deps struct {
	Source    EventSource
	Flattener EventFlattener
	Store     storage.Store
	// Recorder defaults to NopRecorder.
	Recorder RunRecorder
}

// Options are the per-run parameters.
type Options struct {
	RootURI              string
	Window               window.Window
	PaymentColumns       []string
	PriorOffsetDays      int
	StrictReconciliation bool
	DryRun               bool
}

func (d Deps) validate() error {
	if d.Source == nil || d.Flattener == nil || d.Store == nil {
		return errors.New("pipeline: source, flattener and store are required")
	}
	return nil
}

// NewScrapePipeline creates the standard scrape pipeline.
func NewScrapePipeline(deps Deps, opts Options) *Pipeline {
	recorder := deps.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return NewPipeline(recorder,
		&StartRunStep{Recorder: recorder},
		&DiscoverStep{Source: deps.Source, RootURI: opts.RootURI},
		&FilterStep{},
		&FlattenStep{Flattener: deps.Flattener},
		&AssembleStep{PaymentColumns: opts.PaymentColumns},
		&ReconcileStep{Store: deps.Store, PriorOffsetDays: opts.PriorOffsetDays, Strict: opts.StrictReconciliation},
		&PersistStep{Store: deps.Store, DryRun: opts.DryRun},
		&RecordLedgerStep{Recorder: recorder},
		&MarkSuccessStep{Recorder: recorder},
	)
}

// Run executes one scrape and returns the final state. On failure the state
// holds whatever the completed steps produced; nothing is persisted unless
// the persist step itself succeeded.
func Run(ctx context.Context, deps Deps, opts Options) (*PipelineState, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("window", opts.Window.String()).
		Bool("joinable", opts.Window.Joinable()).
		Bool("dry_run", opts.DryRun).
		Msg("Starting scrape")

	state := &PipelineState{Window: opts.Window}
	if err := NewScrapePipeline(deps, opts).Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("run_id", state.RunID).Msg("Scrape failed")
		return state, err
	}

	log.Info().
		Str("run_id", state.RunID).
		Int("rows", len(state.Ledger.Rows)).
		Str("object", state.ObjectURI).
		Msg("Scrape finished")
	return state, nil
}
