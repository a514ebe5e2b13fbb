package main

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	infraBQ "github.com/jwerderits/farmspread/internal/infra/bigquery"
	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent scrape runs from the BigQuery audit table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := a.openRunRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			runs, err := repo.ListRecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			renderRuns(a.out, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}

func renderRuns(w io.Writer, runs []*infraBQ.ScrapeRunRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Run", "Mode", "Window", "Started", "Status", "Rows", "Object", "Error"})
	for _, r := range runs {
		rows := ""
		if r.RowCount.Valid {
			rows = strconv.FormatInt(r.RowCount.Int64, 10)
		}
		t.AppendRow(table.Row{
			r.RunID,
			r.Mode,
			r.WindowStart.String() + " .. " + r.WindowEnd.String(),
			r.StartedTS.Format("2006-01-02 15:04"),
			r.Status,
			rows,
			r.ObjectName.StringVal,
			r.ErrorMessage.StringVal,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
