package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/jwerderits/farmspread/internal/ledgercsv"
	"github.com/jwerderits/farmspread/internal/storage"
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored snapshot as a table, or list snapshots when --name is omitted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if name == "" {
				lister, ok := store.(storage.Lister)
				if !ok {
					return fmt.Errorf("--name is required for the %s backend", a.cfg.Storage.Backend)
				}
				names, err := lister.List(ctx)
				if err != nil {
					return err
				}
				renderNames(a.out, names)
				return nil
			}

			data, err := store.Get(ctx, name)
			if err != nil {
				return err
			}
			ledger, err := ledgercsv.Decode(bytes.NewReader(data), name)
			if err != nil {
				return err
			}
			renderLedger(a.out, ledger)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "snapshot name, e.g. 2020-06-14.csv")
	return cmd
}

func renderNames(w io.Writer, names []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Snapshot"})
	for _, n := range names {
		t.AppendRow(table.Row{n})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderLedger(w io.Writer, l *domain.Ledger) {
	records := ledgercsv.Records(l)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(toRow(records[0]))
	for _, rec := range records[1:] {
		t.AppendRow(toRow(rec))
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(l.Rows))})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func toRow(rec []string) table.Row {
	row := make(table.Row, len(rec))
	for i, v := range rec {
		row[i] = v
	}
	return row
}
