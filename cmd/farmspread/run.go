package main

import (
	"context"
	"time"

	"github.com/jwerderits/farmspread/internal/discovery"
	"github.com/jwerderits/farmspread/internal/flatten"
	"github.com/jwerderits/farmspread/internal/marketapi"
	"github.com/jwerderits/farmspread/internal/pipeline"
	"github.com/jwerderits/farmspread/internal/window"
	"github.com/spf13/cobra"
)

// runTimeout bounds a whole scrape.
const runTimeout = 30 * time.Minute

func newRunCmd(a *app) *cobra.Command {
	var (
		mode   string
		end    string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape the window ending on --end and write its ledger snapshot.",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.resolveWindow(mode, end)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
			defer cancel()

			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			recorder, closeRecorder, err := a.openRecorder(ctx)
			if err != nil {
				return err
			}
			defer closeRecorder()

			loc := a.cfg.Location()
			client := marketapi.NewClient(a.cfg.API.URL, a.cfg.RequestHeaders(), a.cfg.Timeout())

			deps := pipeline.Deps{
				Source:    discovery.New(client, loc),
				Flattener: flatten.NewFlattener(client, loc),
				Store:     store,
				Recorder:  recorder,
			}
			opts := pipeline.Options{
				RootURI:              a.cfg.API.MarketsPath,
				Window:               w,
				PaymentColumns:       a.cfg.PaymentColumns,
				PriorOffsetDays:      a.cfg.Window.PriorOffsetDays,
				StrictReconciliation: a.cfg.StrictReconciliation,
				DryRun:               dryRun,
			}

			state, err := pipeline.Run(ctx, deps, opts)
			if err != nil {
				return err
			}
			pipeline.RenderSummary(a.out, state)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "window mode: rolling or month (default from config)")
	cmd.Flags().StringVar(&end, "end", "", "last market date of the window, YYYY-MM-DD (default today in the market timezone)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "build the ledger and print the summary without writing it")
	return cmd
}

// resolveWindow applies flag overrides on top of the configured window.
func (a *app) resolveWindow(modeFlag, endFlag string) (window.Window, error) {
	mode := a.cfg.Mode()
	if modeFlag != "" {
		m, err := window.ParseMode(modeFlag)
		if err != nil {
			return window.Window{}, err
		}
		mode = m
	}

	end := window.Today(a.cfg.Location())
	if endFlag != "" {
		d, err := window.ParseDate(endFlag)
		if err != nil {
			return window.Window{}, err
		}
		end = d
	}

	w, err := window.New(mode, end, a.cfg.Window.RollingDays)
	if err != nil {
		return window.Window{}, err
	}
	a.log.Debug().Str("window", w.String()).Msg("Resolved run window")
	return w, nil
}

