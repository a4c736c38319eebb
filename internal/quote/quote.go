// Package quote defines the pricing boundary of the workflow engine.
// A Quote is captured once at prepare time and embedded verbatim into
// the pending action; execution uses the embedded quote and never
// re-quotes silently.
package quote

import (
	"context"
	"encoding/json"
	"time"
)

// Request describes the operation to price.
type Request struct {
	FromSymbol      string
	ToSymbol        string
	FromMint        string
	ToMint          string
	FromNetwork     string
	ToNetwork       string
	AmountBaseUnits uint64
	SlippageBps     int
}

// FeeItem is one line of a quote's fee breakdown.
type FeeItem struct {
	Label           string `json:"label"`
	AmountBaseUnits uint64 `json:"amount_base_units"`
	Asset           string `json:"asset"`
}

// Quote is a time-bounded estimate of an operation's outcome.
type Quote struct {
	Provider             string          `json:"provider"`
	FromSymbol           string          `json:"from_symbol"`
	ToSymbol             string          `json:"to_symbol"`
	InAmountBaseUnits    uint64          `json:"in_amount_base_units"`
	ExpectedOutBaseUnits uint64          `json:"expected_out_base_units"`
	OutDecimals          uint8           `json:"out_decimals"`
	PriceImpactPct       float64         `json:"price_impact_pct"`
	Fees                 []FeeItem       `json:"fees,omitempty"`
	ProviderFeeBaseUnits uint64          `json:"provider_fee_base_units"`
	ValidUntil           time.Time       `json:"valid_until"`
	DepositAddress       string          `json:"deposit_address,omitempty"`
	StatusRef            string          `json:"status_ref,omitempty"`
	Raw                  json.RawMessage `json:"raw,omitempty"`
}

// Expired reports whether the quote's validity window has passed.
func (q Quote) Expired(now time.Time) bool {
	return !q.ValidUntil.IsZero() && now.After(q.ValidUntil)
}

// Provider prices an operation. Implementations live in the jupiter and
// relay subpackages; callers wrap them with Resilient.
type Provider interface {
	Quote(ctx context.Context, req Request) (Quote, error)
}
