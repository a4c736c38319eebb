// Package jupiter prices and builds same-network swaps through the
// Jupiter aggregator API.
package jupiter

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
	"solflow/internal/registry"
)

const (
	defaultLiteBase = "https://lite-api.jup.ag/swap/v1"
	defaultProBase  = "https://api.jup.ag/swap/v1"

	defaultLitePriceBase = "https://lite-api.jup.ag/price/v2"
	defaultProPriceBase  = "https://api.jup.ag/price/v2"
)

type Client struct {
	http      *httpx.Client
	baseURL   string
	priceBase string
	apiKey    string
	quoteTTL  time.Duration
	now       func() time.Time
}

// New builds a Jupiter client. quoteTTL bounds how long a returned quote
// may be held pending before confirmation is refused.
func New(httpClient *httpx.Client, apiKey string, quoteTTL time.Duration) *Client {
	apiKey = strings.TrimSpace(apiKey)
	baseURL := defaultLiteBase
	priceBase := defaultLitePriceBase
	if apiKey != "" {
		baseURL = defaultProBase
		priceBase = defaultProPriceBase
	}
	if quoteTTL <= 0 {
		quoteTTL = 60 * time.Second
	}
	return &Client{
		http:      httpClient,
		baseURL:   baseURL,
		priceBase: priceBase,
		apiKey:    apiKey,
		quoteTTL:  quoteTTL,
		now:       time.Now,
	}
}

// SetBaseURL points the client at a different endpoint. Used by tests.
func (c *Client) SetBaseURL(base string) { c.baseURL = strings.TrimRight(base, "/") }

// SetPriceBaseURL points the price endpoint elsewhere. Used by tests.
func (c *Client) SetPriceBaseURL(base string) { c.priceBase = strings.TrimRight(base, "/") }

type quoteResponse struct {
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	PlatformFee    *struct {
		Amount string `json:"amount"`
		FeeBps int    `json:"feeBps"`
	} `json:"platformFee"`
	RoutePlan []struct {
		SwapInfo struct {
			Label string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

func (c *Client) Quote(ctx context.Context, req quote.Request) (quote.Quote, error) {
	if req.FromMint == "" || req.ToMint == "" {
		return quote.Quote{}, clierr.New(clierr.CodeInternal, "jupiter quote requires token mints")
	}

	vals := url.Values{}
	vals.Set("inputMint", req.FromMint)
	vals.Set("outputMint", req.ToMint)
	vals.Set("amount", strconv.FormatUint(req.AmountBaseUnits, 10))
	vals.Set("slippageBps", strconv.Itoa(req.SlippageBps))

	endpoint := fmt.Sprintf("%s/quote?%s", strings.TrimRight(c.baseURL, "/"), vals.Encode())
	hReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return quote.Quote{}, clierr.Wrap(clierr.CodeInternal, "build jupiter quote request", err)
	}
	if c.apiKey != "" {
		hReq.Header.Set("x-api-key", c.apiKey)
	}

	var raw json.RawMessage
	if _, err := c.http.DoJSON(ctx, hReq, &raw); err != nil {
		return quote.Quote{}, err
	}
	var resp quoteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return quote.Quote{}, clierr.Wrap(clierr.CodeNetwork, "decode jupiter quote", err)
	}
	outAmount, err := strconv.ParseUint(strings.TrimSpace(resp.OutAmount), 10, 64)
	if err != nil {
		return quote.Quote{}, clierr.New(clierr.CodeNetwork, "jupiter quote missing output amount")
	}

	outToken, _ := registry.LookupToken(req.ToSymbol)
	q := quote.Quote{
		Provider:             "jupiter",
		FromSymbol:           req.FromSymbol,
		ToSymbol:             req.ToSymbol,
		InAmountBaseUnits:    req.AmountBaseUnits,
		ExpectedOutBaseUnits: outAmount,
		OutDecimals:          outToken.Decimals,
		PriceImpactPct:       parsePriceImpactPct(resp.PriceImpactPct),
		ValidUntil:           c.now().UTC().Add(c.quoteTTL),
		Raw:                  raw,
	}
	if resp.PlatformFee != nil {
		fee, _ := strconv.ParseUint(strings.TrimSpace(resp.PlatformFee.Amount), 10, 64)
		q.ProviderFeeBaseUnits = fee
		q.Fees = append(q.Fees, quote.FeeItem{
			Label:           "jupiter platform fee",
			AmountBaseUnits: fee,
			Asset:           req.ToSymbol,
		})
	}
	return q, nil
}

type swapBuildRequest struct {
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	UserPublicKey    string          `json:"userPublicKey"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
}

type swapBuildResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// BuildSwap exchanges the stored quote for an unsigned, base64-encoded
// swap transaction. The quote payload is sent back verbatim so the
// executed route is exactly the one the user reviewed.
func (c *Client) BuildSwap(ctx context.Context, q quote.Quote, userPublicKey string) (string, error) {
	if len(q.Raw) == 0 {
		return "", clierr.New(clierr.CodeInternal, "stored quote has no provider payload")
	}
	endpoint := strings.TrimRight(c.baseURL, "/") + "/swap"
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["x-api-key"] = c.apiKey
	}
	var resp swapBuildResponse
	if _, err := c.http.PostJSON(ctx, endpoint, swapBuildRequest{
		QuoteResponse:    q.Raw,
		UserPublicKey:    userPublicKey,
		WrapAndUnwrapSol: true,
	}, headers, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.SwapTransaction) == "" {
		return "", clierr.New(clierr.CodeNetwork, "jupiter swap build returned no transaction")
	}
	return resp.SwapTransaction, nil
}

type priceResponse struct {
	Data map[string]struct {
		Price string `json:"price"`
	} `json:"data"`
}

// PriceUSD looks up the USD spot price of a mint. Callers treat this
// as advisory; a failure here never blocks an operation.
func (c *Client) PriceUSD(ctx context.Context, mint string) (float64, error) {
	endpoint := fmt.Sprintf("%s?%s", c.priceBase, url.Values{"ids": {mint}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeInternal, "build jupiter price request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	var resp priceResponse
	if _, err := c.http.DoJSON(ctx, req, &resp); err != nil {
		return 0, err
	}
	entry, ok := resp.Data[mint]
	if !ok {
		return 0, clierr.New(clierr.CodeNetwork, "jupiter returned no price for mint")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(entry.Price), 64)
	if err != nil || price <= 0 {
		return 0, clierr.New(clierr.CodeNetwork, "jupiter returned a malformed price")
	}
	return price, nil
}

func parsePriceImpactPct(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
