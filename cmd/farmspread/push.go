package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jwerderits/farmspread/internal/ledgercsv"
	"github.com/jwerderits/farmspread/internal/window"
	"github.com/spf13/cobra"
)

func newPushCmd(a *app) *cobra.Command {
	var (
		file string
		name string
	)

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload a local ledger CSV as a snapshot, e.g. to seed the prior week.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			if name == "" {
				name = filepath.Base(file)
			}
			if _, err := window.ParseSnapshotName(name); err != nil {
				return fmt.Errorf("snapshot name must be YYYY-MM-DD.csv: %w", err)
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			ledger, err := ledgercsv.Decode(bytes.NewReader(data), name)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			a.log.Info().
				Str("file", file).
				Str("object", store.URI(name)).
				Int("rows", len(ledger.Rows)).
				Msg("Uploading snapshot")

			if err := store.Put(ctx, name, data); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Uploaded %s to %s\n", file, store.URI(name))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the ledger CSV (required)")
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (defaults to the file name)")
	return cmd
}
