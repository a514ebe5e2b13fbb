// Package ledgercsv reads and writes ledgers in the fixed CSV layout:
//
//	transaction_id,vendor_id,vendor_name,market,market_date,<payment columns...>,
//	reported_sales,total_sales,checksum,vendor_fee,reimbursements,reimbursement_fee,
//	vendor_owes,city_seed_owes[,<tracked>_change...]
//
// Change columns are written only for reconciled ledgers. Null values are
// empty cells. Money is written with two decimals, checksum as an integer.
package ledgercsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/shopspring/decimal"
)

// Header returns the column order l is written with.
func Header(l *domain.Ledger) []string {
	cols := append([]string{}, domain.LeadColumns...)
	cols = append(cols, l.Columns()...)
	cols = append(cols, domain.SettlementColumns...)
	if l.Reconciled {
		cols = append(cols, domain.ChangeColumns()...)
	}
	return cols
}

// Records renders l as string records, header first.
func Records(l *domain.Ledger) [][]string {
	payments := l.Columns()
	records := make([][]string, 0, len(l.Rows)+1)
	records = append(records, Header(l))

	for _, r := range l.Rows {
		rec := []string{r.TransactionID, r.VendorID, r.VendorName, r.Market, r.MarketDate.String()}
		for _, c := range payments {
			v, ok := r.Payments[c]
			if !ok {
				v = decimal.NewNullDecimal(decimal.Zero)
			}
			rec = append(rec, nullMoney(v))
		}
		rec = append(rec,
			nullMoney(r.ReportedSales),
			money(r.TotalSales),
			r.Checksum.StringFixed(0),
			money(r.VendorFee),
			money(r.Reimbursements),
			money(r.ReimbursementFee),
			money(r.VendorOwes),
			money(r.CitySeedOwes),
		)
		if l.Reconciled {
			d := r.Deltas
			if d == nil {
				d = &domain.Deltas{}
			}
			rec = append(rec,
				nullMoney(d.Reimbursements),
				nullMoney(d.ReimbursementFee),
				nullMoney(d.VendorOwes),
				nullMoney(d.CitySeedOwes),
			)
		}
		records = append(records, rec)
	}
	return records
}

// Encode writes l to w.
func Encode(w io.Writer, l *domain.Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Records(l)); err != nil {
		return fmt.Errorf("Encode: %w", err)
	}
	return nil
}

// Marshal returns the CSV encoding of l.
func Marshal(l *domain.Ledger) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var leadAndSettlement = func() map[string]bool {
	m := make(map[string]bool)
	for _, c := range domain.LeadColumns {
		m[c] = true
	}
	for _, c := range domain.SettlementColumns {
		m[c] = true
	}
	return m
}()

// Decode reads a ledger written by Encode. Only transaction_id and the
// tracked settlement columns are required; any column that is not a lead,
// settlement or change column is read as a payment column.
func Decode(r io.Reader, name string) (*domain.Ledger, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("Decode %s: empty file", name)
	}
	if err != nil {
		return nil, fmt.Errorf("Decode %s: read header: %w", name, err)
	}

	idx := make(map[string]int, len(header))
	var payments []string
	changes := 0
	for i, h := range header {
		h = strings.TrimSpace(h)
		idx[h] = i
		switch {
		case strings.HasSuffix(h, domain.ChangeSuffix):
			changes++
		case !leadAndSettlement[h]:
			payments = append(payments, h)
		}
	}
	for _, c := range append([]string{domain.ColTransactionID}, domain.TrackedColumns...) {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("Decode %s: missing column %q", name, c)
		}
	}

	ledger := &domain.Ledger{Name: name, PaymentColumns: payments, Reconciled: changes > 0}
	line := 1
	for {
		line++
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Decode %s: line %d: %w", name, line, err)
		}
		row, err := decodeRow(rec, idx, payments, ledger.Reconciled)
		if err != nil {
			return nil, fmt.Errorf("Decode %s: line %d: %w", name, line, err)
		}
		ledger.Rows = append(ledger.Rows, row)
	}
	return ledger, nil
}

func decodeRow(rec []string, idx map[string]int, payments []string, reconciled bool) (domain.TransactionRow, error) {
	cell := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	var firstErr error
	num := func(col string) decimal.NullDecimal {
		v, err := parseNull(cell(col))
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", col, err)
		}
		return v
	}
	req := func(col string) decimal.Decimal {
		v := num(col)
		return v.Decimal
	}

	row := domain.TransactionRow{
		TransactionID: cell(domain.ColTransactionID),
		VendorID:      cell(domain.ColVendorID),
		VendorName:    cell(domain.ColVendorName),
		Market:        cell(domain.ColMarket),
		Payments:      make(map[string]decimal.NullDecimal, len(payments)),
	}
	if row.TransactionID == "" {
		return row, errors.New("empty transaction_id")
	}
	if s := cell(domain.ColMarketDate); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			return row, fmt.Errorf("%s: %w", domain.ColMarketDate, err)
		}
		row.MarketDate = d
	}
	for _, c := range payments {
		row.Payments[c] = num(c)
	}
	row.Settlement = domain.Settlement{
		ReportedSales:    num(domain.ColReportedSales),
		TotalSales:       req(domain.ColTotalSales),
		Checksum:         req(domain.ColChecksum),
		VendorFee:        req(domain.ColVendorFee),
		Reimbursements:   req(domain.ColReimbursements),
		ReimbursementFee: req(domain.ColReimbursementFee),
		VendorOwes:       req(domain.ColVendorOwes),
		CitySeedOwes:     req(domain.ColCitySeedOwes),
	}
	if reconciled {
		row.Deltas = &domain.Deltas{
			Reimbursements:   num(domain.ColReimbursements + domain.ChangeSuffix),
			ReimbursementFee: num(domain.ColReimbursementFee + domain.ChangeSuffix),
			VendorOwes:       num(domain.ColVendorOwes + domain.ChangeSuffix),
			CitySeedOwes:     num(domain.ColCitySeedOwes + domain.ChangeSuffix),
		}
	}
	return row, firstErr
}

func parseNull(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.StringFixed(2)
}
