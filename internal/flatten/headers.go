package flatten

import (
	"strings"

	"github.com/jwerderits/farmspread/internal/domain"
)

var headerReplacer = strings.NewReplacer(
	"#", "number",
	" ", "_",
	"\t", "",
	"/", "_",
	"-", "_",
	".", "_",
)

// CleanHeader turns a payment-type name into a column header:
// "#" becomes "number", separators become "_", tabs are dropped and the
// result is lowercased. "Double Up Bucks" -> "double_up_bucks".
func CleanHeader(name string) string {
	return strings.ToLower(headerReplacer.Replace(strings.TrimSpace(name)))
}

// PaymentSuffix marks a payment column whose cleaned name would otherwise
// collide with a fixed ledger column.
const PaymentSuffix = "_payment"

var fixedColumns = func() map[string]bool {
	m := make(map[string]bool)
	for _, c := range domain.LeadColumns {
		m[c] = true
	}
	for _, c := range domain.SettlementColumns {
		m[c] = true
	}
	return m
}()

// PaymentHeader is CleanHeader for payment columns. Names that clash with a
// fixed column, or end in the change suffix, get PaymentSuffix appended:
// "Total Sales" -> "total_sales_payment".
func PaymentHeader(name string) string {
	h := CleanHeader(name)
	if fixedColumns[h] || strings.HasSuffix(h, domain.ChangeSuffix) {
		return h + PaymentSuffix
	}
	return h
}
