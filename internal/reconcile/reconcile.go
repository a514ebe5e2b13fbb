// Package reconcile diffs a ledger against the prior period's snapshot.
package reconcile

import (
	"context"

	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/jwerderits/farmspread/internal/logger"
	"github.com/shopspring/decimal"
)

// Reconcile left-joins current onto prior by transaction_id and returns a new
// ledger whose rows carry <field>_change deltas rounded to cents. Rows with no
// prior match get null deltas. When prior repeats a transaction_id the first
// occurrence is used. Neither input is modified.
func Reconcile(ctx context.Context, current, prior *domain.Ledger) *domain.Ledger {
	log := logger.FromContext(ctx)

	index := make(map[string]domain.Settlement, len(prior.Rows))
	duplicates := 0
	for _, r := range prior.Rows {
		if _, ok := index[r.TransactionID]; ok {
			duplicates++
			continue
		}
		index[r.TransactionID] = r.Settlement
	}
	if duplicates > 0 {
		log.Warn().
			Str("prior", prior.Name).
			Int("duplicates", duplicates).
			Msg("Prior snapshot repeats transaction ids, first occurrence used")
	}

	out := &domain.Ledger{
		Name:           current.Name,
		Rows:           make([]domain.TransactionRow, len(current.Rows)),
		Reconciled:     true,
		PaymentColumns: current.PaymentColumns,
	}

	matched := 0
	for i, r := range current.Rows {
		p, ok := index[r.TransactionID]
		if ok {
			matched++
		}
		r.Deltas = deltas(r.Settlement, p, ok)
		out.Rows[i] = r
	}

	log.Info().
		Str("prior", prior.Name).
		Int("rows", len(current.Rows)).
		Int("matched", matched).
		Msg("Reconciled against prior snapshot")

	return out
}

func deltas(cur, prior domain.Settlement, matched bool) *domain.Deltas {
	if !matched {
		return &domain.Deltas{}
	}
	return &domain.Deltas{
		Reimbursements:   change(cur.Reimbursements, prior.Reimbursements),
		ReimbursementFee: change(cur.ReimbursementFee, prior.ReimbursementFee),
		VendorOwes:       change(cur.VendorOwes, prior.VendorOwes),
		CitySeedOwes:     change(cur.CitySeedOwes, prior.CitySeedOwes),
	}
}

func change(cur, prior decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(cur.Sub(prior).Round(2))
}
