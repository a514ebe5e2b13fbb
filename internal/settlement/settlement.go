// Package settlement computes the per-vendor money fields of a ledger row.
//
// Null policy: a null breakdown amount or a null reported total counts as
// zero in every sum. Rounding is half away from zero and is applied only to
// vendor_fee (cents) and checksum (whole units).
package settlement

import (
	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/shopspring/decimal"
)

// VendorFeeRate is the flat fee charged on total sales.
var VendorFeeRate = decimal.RequireFromString("0.06")

// selfSettled currencies are collected by the vendor directly and never
// reimbursed. Matching is case-sensitive.
var selfSettled = map[string]bool{
	"Cash":   true,
	"Charge": true,
	"Check":  true,
}

// IsReimbursable reports whether sales paid in currency are owed back to the vendor.
func IsReimbursable(currency string) bool {
	return !selfSettled[currency]
}

// OrZero applies the null policy to a single value.
func OrZero(v decimal.NullDecimal) decimal.Decimal {
	if v.Valid {
		return v.Decimal
	}
	return decimal.Zero
}

// Calculate derives the settlement fields for one stall's breakdown.
func Calculate(breakdown []domain.BreakdownEntry, reported decimal.NullDecimal) domain.Settlement {
	total := decimal.Zero
	reimbursements := decimal.Zero
	for _, e := range breakdown {
		amount := OrZero(e.Amount)
		total = total.Add(amount)
		if IsReimbursable(e.Currency) {
			reimbursements = reimbursements.Add(amount)
		}
	}

	fee := total.Mul(VendorFeeRate).Round(2)
	net := reimbursements.Sub(fee)

	// checksum is reported minus itemized, so an empty breakdown yields +reported.
	s := domain.Settlement{
		ReportedSales:    reported,
		TotalSales:       total,
		Checksum:         OrZero(reported).Sub(total).Round(0),
		VendorFee:        fee,
		Reimbursements:   reimbursements,
		ReimbursementFee: net,
		VendorOwes:       decimal.Zero,
		CitySeedOwes:     decimal.Zero,
	}
	if net.IsPositive() {
		s.CitySeedOwes = net
	} else {
		s.VendorOwes = net.Neg()
	}
	return s
}
