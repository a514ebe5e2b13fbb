package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EventRef identifies one dated market event discovered under a season.
type EventRef struct {
	URI       string
	StartTime time.Time // market-local
}

// ResourceRef is the minimal list element returned by the upstream API.
type ResourceRef struct {
	ResourceURI string `json:"resource_uri"`
}

// MarketDetail is the body of a market detail endpoint.
type MarketDetail struct {
	Seasons []ResourceRef `json:"seasons"`
}

// SeasonDetail is the body of a season detail endpoint.
type SeasonDetail struct {
	Events []SeasonEvent `json:"events"`
}

// SeasonEvent is an event descriptor nested under a season.
type SeasonEvent struct {
	ResourceURI   string `json:"resource_uri"`
	StartDatetime string `json:"start_datetime"`
}

// EventDetail is the body of an event detail endpoint.
type EventDetail struct {
	Market        string  `json:"market"`
	StartDatetime string  `json:"start_datetime"`
	EndDatetime   string  `json:"end_datetime"`
	Stalls        []Stall `json:"stalls"`
}

// Stall is one vendor's presence at one event. Vendor is nil for empty stalls.
type Stall struct {
	Vendor *Vendor `json:"vendor"`
}

type Vendor struct {
	ID   FlexString  `json:"id"`
	Name string      `json:"name"`
	Data *VendorData `json:"data"`
}

type VendorData struct {
	Attended bool   `json:"attended"`
	Sales    *Sales `json:"sales"`
}

// Sales is the vendor's sales report for one event.
// Breakdown is nil when the key is absent or null, and points to an empty
// slice when the vendor reported no payment lines.
type Sales struct {
	Amount          decimal.NullDecimal `json:"amount"`
	Breakdown       *[]BreakdownEntry   `json:"breakdown"`
	BreakdownTotals json.RawMessage     `json:"breakdown_totals,omitempty"`
	Invoice         *Invoice            `json:"invoice"`
}

// Transacted reports whether s is a sales report with payment lines to read.
// A missing, empty or breakdown-less report means the vendor did not sell.
func (s *Sales) Transacted() bool {
	return s != nil && s.Breakdown != nil
}

// BreakdownEntry records how much of a vendor's sales were paid in one currency.
type BreakdownEntry struct {
	Currency string              `json:"currency"`
	Amount   decimal.NullDecimal `json:"amount"`
}

type Invoice struct {
	Status string              `json:"status"`
	Total  decimal.NullDecimal `json:"total"`
}

// FlexString accepts a JSON string or number. Upstream vendor ids come as both.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("FlexString: %s is neither string nor number", data)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}
