package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerRow is one exported ledger line. Payment columns vary between
// ledgers so they are stored as a repeated record.
type LedgerRow struct {
	RunID        string `bigquery:"run_id"`        // REQUIRED
	SnapshotName string `bigquery:"snapshot_name"` // REQUIRED

	TransactionID string     `bigquery:"transaction_id"` // REQUIRED
	VendorID      string     `bigquery:"vendor_id"`      // REQUIRED
	VendorName    string     `bigquery:"vendor_name"`    // NULLABLE
	Market        string     `bigquery:"market"`         // NULLABLE
	MarketDate    civil.Date `bigquery:"market_date"`    // REQUIRED

	Payments []PaymentAmount `bigquery:"payments"` // REPEATED RECORD

	ReportedSales    *big.Rat `bigquery:"reported_sales"`    // NULLABLE NUMERIC
	TotalSales       *big.Rat `bigquery:"total_sales"`       // REQUIRED NUMERIC
	Checksum         *big.Rat `bigquery:"checksum"`          // REQUIRED NUMERIC
	VendorFee        *big.Rat `bigquery:"vendor_fee"`        // REQUIRED NUMERIC
	Reimbursements   *big.Rat `bigquery:"reimbursements"`    // REQUIRED NUMERIC
	ReimbursementFee *big.Rat `bigquery:"reimbursement_fee"` // REQUIRED NUMERIC
	VendorOwes       *big.Rat `bigquery:"vendor_owes"`       // REQUIRED NUMERIC
	CitySeedOwes     *big.Rat `bigquery:"city_seed_owes"`    // REQUIRED NUMERIC

	ReimbursementsChange   *big.Rat `bigquery:"reimbursements_change"`    // NULLABLE NUMERIC
	ReimbursementFeeChange *big.Rat `bigquery:"reimbursement_fee_change"` // NULLABLE NUMERIC
	VendorOwesChange       *big.Rat `bigquery:"vendor_owes_change"`       // NULLABLE NUMERIC
	CitySeedOwesChange     *big.Rat `bigquery:"city_seed_owes_change"`    // NULLABLE NUMERIC

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

type PaymentAmount struct {
	Name   string   `bigquery:"name"`   // REQUIRED
	Amount *big.Rat `bigquery:"amount"` // NULLABLE NUMERIC
}

// NewLedgerRows converts a ledger into export rows. Payment records follow
// the ledger's column order and include columns a row did not report, as zero.
func NewLedgerRows(runID string, l *domain.Ledger, now time.Time) []*LedgerRow {
	cols := l.Columns()
	out := make([]*LedgerRow, 0, len(l.Rows))

	for _, r := range l.Rows {
		payments := make([]PaymentAmount, len(cols))
		for i, c := range cols {
			v, ok := r.Payments[c]
			if !ok {
				v = decimal.NewNullDecimal(decimal.Zero)
			}
			payments[i] = PaymentAmount{Name: c, Amount: nullRat(v)}
		}

		row := &LedgerRow{
			RunID:            runID,
			SnapshotName:     l.Name,
			TransactionID:    r.TransactionID,
			VendorID:         r.VendorID,
			VendorName:       r.VendorName,
			Market:           r.Market,
			MarketDate:       r.MarketDate,
			Payments:         payments,
			ReportedSales:    nullRat(r.ReportedSales),
			TotalSales:       r.TotalSales.Rat(),
			Checksum:         r.Checksum.Rat(),
			VendorFee:        r.VendorFee.Rat(),
			Reimbursements:   r.Reimbursements.Rat(),
			ReimbursementFee: r.ReimbursementFee.Rat(),
			VendorOwes:       r.VendorOwes.Rat(),
			CitySeedOwes:     r.CitySeedOwes.Rat(),
			CreatedTS:        now,
		}
		if d := r.Deltas; d != nil {
			row.ReimbursementsChange = nullRat(d.Reimbursements)
			row.ReimbursementFeeChange = nullRat(d.ReimbursementFee)
			row.VendorOwesChange = nullRat(d.VendorOwes)
			row.CitySeedOwesChange = nullRat(d.CitySeedOwes)
		}
		out = append(out, row)
	}
	return out
}

func nullRat(v decimal.NullDecimal) *big.Rat {
	if !v.Valid {
		return nil
	}
	return v.Decimal.Rat()
}
