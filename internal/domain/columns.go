package domain

// Fixed ledger column names. Payment-type columns sit between LeadColumns
// and SettlementColumns.
const (
	ColTransactionID    = "transaction_id"
	ColVendorID         = "vendor_id"
	ColVendorName       = "vendor_name"
	ColMarket           = "market"
	ColMarketDate       = "market_date"
	ColReportedSales    = "reported_sales"
	ColTotalSales       = "total_sales"
	ColChecksum         = "checksum"
	ColVendorFee        = "vendor_fee"
	ColReimbursements   = "reimbursements"
	ColReimbursementFee = "reimbursement_fee"
	ColVendorOwes       = "vendor_owes"
	ColCitySeedOwes     = "city_seed_owes"

	ChangeSuffix = "_change"
)

var LeadColumns = []string{
	ColTransactionID,
	ColVendorID,
	ColVendorName,
	ColMarket,
	ColMarketDate,
}

var SettlementColumns = []string{
	ColReportedSales,
	ColTotalSales,
	ColChecksum,
	ColVendorFee,
	ColReimbursements,
	ColReimbursementFee,
	ColVendorOwes,
	ColCitySeedOwes,
}

// TrackedColumns are compared period over period.
var TrackedColumns = []string{
	ColReimbursements,
	ColReimbursementFee,
	ColVendorOwes,
	ColCitySeedOwes,
}

// ChangeColumns returns the "<field>_change" names for TrackedColumns.
func ChangeColumns() []string {
	out := make([]string, len(TrackedColumns))
	for i, c := range TrackedColumns {
		out[i] = c + ChangeSuffix
	}
	return out
}
