package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the BigQuery audit tables if they do not exist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := a.openRunRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.EnsureTables(ctx); err != nil {
				return err
			}
			a.log.Info().
				Str("project", a.cfg.BigQuery.Project).
				Str("dataset", a.cfg.BigQuery.Dataset).
				Msg("Audit tables are up to date")
			fmt.Fprintln(a.out, "Audit tables are up to date.")
			return nil
		},
	}
}
