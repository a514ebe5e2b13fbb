package domain

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionRow is one vendor's settlement line for one market day.
// Rows are built once by the flattener and never mutated afterwards;
// reconciliation returns copies with Deltas set.
type TransactionRow struct {
	TransactionID string     // "<vendor_id>__<YYYY-MM-DD>"
	VendorID      string
	VendorName    string
	Market        string
	MarketDate    civil.Date

	// Payments maps a cleaned payment-type header to its amount. A currency
	// absent from the map reads as zero; an invalid value means every
	// upstream amount for that currency was null.
	Payments map[string]decimal.NullDecimal

	Attended      bool
	InvoiceStatus string
	InvoiceTotal  decimal.NullDecimal

	Settlement

	// Deltas is nil until the row has been reconciled against a prior ledger.
	Deltas *Deltas
}

// Settlement holds the derived money fields of a row.
type Settlement struct {
	ReportedSales    decimal.NullDecimal
	TotalSales       decimal.Decimal
	Checksum         decimal.Decimal
	VendorFee        decimal.Decimal
	Reimbursements   decimal.Decimal
	ReimbursementFee decimal.Decimal
	VendorOwes       decimal.Decimal
	CitySeedOwes     decimal.Decimal
}

// Deltas are period-over-period changes. Invalid values mean the row had no
// match in the prior ledger.
type Deltas struct {
	Reimbursements   decimal.NullDecimal
	ReimbursementFee decimal.NullDecimal
	VendorOwes       decimal.NullDecimal
	CitySeedOwes     decimal.NullDecimal
}

// Payment returns the amount for a payment column, zero when absent or null.
func (r TransactionRow) Payment(column string) decimal.Decimal {
	if v, ok := r.Payments[column]; ok && v.Valid {
		return v.Decimal
	}
	return decimal.Zero
}

// Ledger is the output artifact of one run.
type Ledger struct {
	Name       string // object name, e.g. "2020-06-30.csv"
	Rows       []TransactionRow
	Reconciled bool

	// PaymentColumns is the ordered set of payment columns to serialize.
	// When empty, every column present in Rows is used, sorted by name.
	PaymentColumns []string
}

// Columns returns the payment columns the ledger will be written with.
func (l *Ledger) Columns() []string {
	if len(l.PaymentColumns) > 0 {
		return l.PaymentColumns
	}
	seen := make(map[string]bool)
	var cols []string
	for _, r := range l.Rows {
		for c := range r.Payments {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// TransactionID derives the reconciliation join key.
func TransactionID(vendorID string, marketDate civil.Date) string {
	return vendorID + "__" + marketDate.String()
}
