package pipeline

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/shopspring/decimal"
)

// Totals are the ledger-wide sums shown in the run summary.
type Totals struct {
	Rows             int
	TotalSales       decimal.Decimal
	Reimbursements   decimal.Decimal
	VendorOwes       decimal.Decimal
	CitySeedOwes     decimal.Decimal
	ChecksumMismatch int
}

// Summarize adds up the settlement fields of l.
func Summarize(l *domain.Ledger) Totals {
	var t Totals
	if l == nil {
		return t
	}
	for _, r := range l.Rows {
		t.Rows++
		t.TotalSales = t.TotalSales.Add(r.TotalSales)
		t.Reimbursements = t.Reimbursements.Add(r.Reimbursements)
		t.VendorOwes = t.VendorOwes.Add(r.VendorOwes)
		t.CitySeedOwes = t.CitySeedOwes.Add(r.CitySeedOwes)
		if !r.Checksum.IsZero() {
			t.ChecksumMismatch++
		}
	}
	return t
}

// RenderSummary writes a two-column table describing the run.
func RenderSummary(w io.Writer, state *PipelineState) {
	totals := Summarize(state.Ledger)

	reconciled := "no (" + state.ReconcileSkipped + ")"
	if state.PriorName != "" {
		reconciled = "against " + state.PriorName
	}
	object := state.ObjectURI
	if !state.Persisted && object != "" {
		object += " (not written)"
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Run", state.RunID})
	t.AppendRows([]table.Row{
		{"Window", state.Window.String()},
		{"Events discovered", strconv.Itoa(len(state.Discovered))},
		{"Events in window", strconv.Itoa(len(state.Selected))},
		{"Rows", strconv.Itoa(totals.Rows)},
		{"Reconciled", reconciled},
		{"Snapshot", object},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Total sales", totals.TotalSales.StringFixed(2)},
		{"Reimbursements", totals.Reimbursements.StringFixed(2)},
		{"Vendor owes", totals.VendorOwes.StringFixed(2)},
		{"City Seed owes", totals.CitySeedOwes.StringFixed(2)},
		{"Checksum mismatches", strconv.Itoa(totals.ChecksumMismatch)},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
