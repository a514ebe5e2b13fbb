package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jwerderits/farmspread/internal/config"
	infraBQ "github.com/jwerderits/farmspread/internal/infra/bigquery"
	"github.com/jwerderits/farmspread/internal/logger"
	"github.com/jwerderits/farmspread/internal/pipeline"
	"github.com/jwerderits/farmspread/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app is the state shared by subcommands once the config is loaded.
type app struct {
	configPath string
	cfg        config.Config
	log        zerolog.Logger
	out        io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "farmspread",
		Short:         "farmspread builds weekly vendor settlement ledgers from the market API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.NewWithLevel(cfg.LogLevel)
			cmd.SetContext(logger.WithContext(cmd.Context(), a.log))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultFile, "path to the json5 config file")

	root.AddCommand(
		newRunCmd(a),
		newPushCmd(a),
		newShowCmd(a),
		newRunsCmd(a),
		newMigrateCmd(a),
	)

	return root
}

// openStore returns the configured snapshot store and a close function.
func (a *app) openStore(ctx context.Context) (storage.Store, func(), error) {
	switch a.cfg.Storage.Backend {
	case config.BackendSQLite:
		s, err := storage.OpenSQLiteStore(a.cfg.Storage.SQLitePath, a.cfg.Storage.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.BackendGCS:
		s, err := storage.NewGCSStore(ctx, a.cfg.Storage.Bucket, a.cfg.Storage.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
}

// openRecorder returns the BigQuery run repository when configured, otherwise
// a recorder that only hands out run IDs.
func (a *app) openRecorder(ctx context.Context) (pipeline.RunRecorder, func(), error) {
	if !a.cfg.BigQuery.Enabled() {
		return pipeline.NopRecorder{}, func() {}, nil
	}
	repo, err := a.openRunRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	return repo, func() { repo.Close() }, nil
}

func (a *app) openRunRepository(ctx context.Context) (*infraBQ.BigQueryRunRepository, error) {
	if !a.cfg.BigQuery.Enabled() {
		return nil, fmt.Errorf("bigquery.project is not configured")
	}
	return infraBQ.NewBigQueryRunRepository(ctx, a.cfg.BigQuery.Project, a.cfg.BigQuery.Dataset)
}
