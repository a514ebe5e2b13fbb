// Package flatten turns one event's nested stall/vendor/sales payload into
// ledger rows, one per transacting vendor.
package flatten

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/jwerderits/farmspread/internal/logger"
	"github.com/jwerderits/farmspread/internal/settlement"
	"github.com/shopspring/decimal"
)

// EventFetcher loads the detail payload for one event.
type EventFetcher interface {
	GetEvent(ctx context.Context, uri string) (*domain.EventDetail, error)
}

// Flattener fetches events and converts them into rows.
type Flattener struct {
	fetcher  EventFetcher
	location *time.Location
}

// NewFlattener creates a Flattener that interprets event times in loc.
func NewFlattener(fetcher EventFetcher, loc *time.Location) *Flattener {
	if loc == nil {
		loc = time.UTC
	}
	return &Flattener{fetcher: fetcher, location: loc}
}

// Flatten fetches the event at uri and returns its rows in stall order.
func (f *Flattener) Flatten(ctx context.Context, uri string) ([]domain.TransactionRow, error) {
	detail, err := f.fetcher.GetEvent(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("Flatten: %w", err)
	}
	rows, err := Rows(ctx, uri, detail, f.location)
	if err != nil {
		return nil, fmt.Errorf("Flatten: %w", err)
	}
	return rows, nil
}

// Rows converts an already fetched event payload. Stalls without a vendor,
// without vendor data or without a sales breakdown are skipped.
func Rows(ctx context.Context, uri string, detail *domain.EventDetail, loc *time.Location) ([]domain.TransactionRow, error) {
	log := logger.FromContext(ctx)

	if detail == nil {
		return nil, &domain.SchemaError{EventURI: uri, Stall: -1, Field: "event", Reason: "empty payload"}
	}
	start, err := domain.ParseTimestamp(detail.StartDatetime, loc)
	if err != nil {
		return nil, &domain.SchemaError{EventURI: uri, Stall: -1, Field: "start_datetime", Reason: err.Error()}
	}
	marketDate := domain.MarketDate(start)

	rows := make([]domain.TransactionRow, 0, len(detail.Stalls))
	skipped := 0

	for i, stall := range detail.Stalls {
		v := stall.Vendor
		if v == nil || v.Data == nil || !v.Data.Sales.Transacted() {
			skipped++
			continue
		}
		row, err := buildRow(uri, i, v, detail.Market, marketDate)
		if err != nil {
			return nil, err
		}
		if !row.Checksum.IsZero() {
			log.Warn().
				Str("transaction_id", row.TransactionID).
				Str("checksum", row.Checksum.String()).
				Msg("Reported sales differ from breakdown total")
		}
		rows = append(rows, row)
	}

	log.Debug().
		Str("event_uri", uri).
		Str("market", detail.Market).
		Str("market_date", marketDate.String()).
		Int("rows", len(rows)).
		Int("skipped_stalls", skipped).
		Msg("Flattened event")

	return rows, nil
}

func buildRow(uri string, idx int, v *domain.Vendor, market string, marketDate civil.Date) (domain.TransactionRow, error) {
	vendorID := v.ID.String()
	if vendorID == "" {
		return domain.TransactionRow{}, &domain.SchemaError{EventURI: uri, Stall: idx, Field: "vendor.id", Reason: "missing"}
	}
	sales := v.Data.Sales
	breakdown := *sales.Breakdown

	payments := make(map[string]decimal.NullDecimal, len(breakdown))
	for j, e := range breakdown {
		if e.Currency == "" {
			return domain.TransactionRow{}, &domain.SchemaError{
				EventURI: uri,
				Stall:    idx,
				Field:    fmt.Sprintf("vendor.data.sales.breakdown[%d].currency", j),
				Reason:   "missing",
			}
		}
		col := PaymentHeader(e.Currency)
		cur, seen := payments[col]
		switch {
		case e.Amount.Valid && cur.Valid:
			payments[col] = decimal.NewNullDecimal(cur.Decimal.Add(e.Amount.Decimal))
		case e.Amount.Valid:
			payments[col] = e.Amount
		case !seen:
			payments[col] = decimal.NullDecimal{}
		}
	}

	row := domain.TransactionRow{
		TransactionID: domain.TransactionID(vendorID, marketDate),
		VendorID:      vendorID,
		VendorName:    v.Name,
		Market:        market,
		MarketDate:    marketDate,
		Payments:      payments,
		Attended:      v.Data.Attended,
		Settlement:    settlement.Calculate(breakdown, sales.Amount),
	}
	if sales.Invoice != nil {
		row.InvoiceStatus = sales.Invoice.Status
		row.InvoiceTotal = sales.Invoice.Total
	}
	return row, nil
}
