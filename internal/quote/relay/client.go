// Package relay prices cross-network swaps through a deposit-address
// bridge API: the quote names an address on the source network, funds
// sent there are swapped and settled on the destination network, and a
// status endpoint reports settlement.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	clierr "solflow/internal/errors"
	"solflow/internal/httpx"
	"solflow/internal/quote"
)

const defaultBase = "https://api.relay.exchange/v1"

type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	now     func() time.Time
}

func New(httpClient *httpx.Client, baseURL, apiKey string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBase
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		now:     time.Now,
	}
}

// SetBaseURL points the client at a different endpoint. Used by tests.
func (c *Client) SetBaseURL(base string) { c.baseURL = strings.TrimRight(base, "/") }

type bridgeQuoteRequest struct {
	FromToken   string `json:"from_token"`
	ToToken     string `json:"to_token"`
	FromNetwork string `json:"from_network"`
	ToNetwork   string `json:"to_network"`
	Amount      string `json:"amount"`
	Recipient   string `json:"recipient,omitempty"`
	SlippageBps int    `json:"slippage_bps"`
}

type bridgeQuoteResponse struct {
	QuoteID        string  `json:"quote_id"`
	DepositAddress string  `json:"deposit_address"`
	ExpectedOut    string  `json:"expected_out"`
	OutDecimals    uint8   `json:"out_decimals"`
	PriceImpactPct float64 `json:"price_impact_pct"`
	ValidUntil     string  `json:"valid_until"`
	Fees           []struct {
		Label  string `json:"label"`
		Amount string `json:"amount"`
		Asset  string `json:"asset"`
	} `json:"fees"`
}

func (c *Client) Quote(ctx context.Context, req quote.Request) (quote.Quote, error) {
	if req.FromNetwork == "" || req.ToNetwork == "" {
		return quote.Quote{}, clierr.New(clierr.CodeInternal, "bridge quote requires source and destination networks")
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}
	var resp bridgeQuoteResponse
	raw := bridgeQuoteRequest{
		FromToken:   req.FromSymbol,
		ToToken:     req.ToSymbol,
		FromNetwork: req.FromNetwork,
		ToNetwork:   req.ToNetwork,
		Amount:      strconv.FormatUint(req.AmountBaseUnits, 10),
		SlippageBps: req.SlippageBps,
	}
	if _, err := c.http.PostJSON(ctx, c.baseURL+"/quote", raw, headers, &resp); err != nil {
		return quote.Quote{}, err
	}
	if strings.TrimSpace(resp.DepositAddress) == "" {
		return quote.Quote{}, clierr.New(clierr.CodeNetwork, "bridge quote missing deposit address")
	}
	expectedOut, err := strconv.ParseUint(strings.TrimSpace(resp.ExpectedOut), 10, 64)
	if err != nil {
		return quote.Quote{}, clierr.New(clierr.CodeNetwork, "bridge quote missing expected output")
	}
	validUntil, err := time.Parse(time.RFC3339, resp.ValidUntil)
	if err != nil {
		validUntil = c.now().UTC().Add(2 * time.Minute)
	}

	q := quote.Quote{
		Provider:             "relay",
		FromSymbol:           req.FromSymbol,
		ToSymbol:             req.ToSymbol,
		InAmountBaseUnits:    req.AmountBaseUnits,
		ExpectedOutBaseUnits: expectedOut,
		OutDecimals:          resp.OutDecimals,
		PriceImpactPct:       resp.PriceImpactPct,
		ValidUntil:           validUntil,
		DepositAddress:       resp.DepositAddress,
		StatusRef:            resp.QuoteID,
	}
	for _, fee := range resp.Fees {
		amount, _ := strconv.ParseUint(strings.TrimSpace(fee.Amount), 10, 64)
		q.Fees = append(q.Fees, quote.FeeItem{Label: fee.Label, AmountBaseUnits: amount, Asset: fee.Asset})
		q.ProviderFeeBaseUnits += amount
	}
	if buf, err := json.Marshal(resp); err == nil {
		q.Raw = buf
	}
	return q, nil
}

// SettlementStatus is the bridge-side view of a deposit.
type SettlementStatus struct {
	State        string
	ActualOut    uint64
	DestTxHash   string
	FailureCause string
}

// Settled reports whether the bridge finished, successfully or not.
func (s SettlementStatus) Settled() bool {
	return s.State == "SUCCESS" || s.State == "FAILED" || s.State == "REFUNDED"
}

type statusResponse struct {
	Status     string `json:"status"`
	ActualOut  string `json:"actual_out"`
	DestTxHash string `json:"dest_tx_hash"`
	Error      string `json:"error"`
}

// Status polls the bridge for the settlement state of a quoted deposit.
func (c *Client) Status(ctx context.Context, statusRef string) (SettlementStatus, error) {
	if strings.TrimSpace(statusRef) == "" {
		return SettlementStatus{}, clierr.New(clierr.CodeInternal, "missing bridge status reference")
	}
	endpoint := fmt.Sprintf("%s/status?%s", c.baseURL, url.Values{"quote_id": {statusRef}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return SettlementStatus{}, clierr.Wrap(clierr.CodeInternal, "build bridge status request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	var resp statusResponse
	if _, err := c.http.DoJSON(ctx, req, &resp); err != nil {
		return SettlementStatus{}, err
	}
	actualOut, _ := strconv.ParseUint(strings.TrimSpace(resp.ActualOut), 10, 64)
	return SettlementStatus{
		State:        strings.ToUpper(strings.TrimSpace(resp.Status)),
		ActualOut:    actualOut,
		DestTxHash:   resp.DestTxHash,
		FailureCause: resp.Error,
	}, nil
}
