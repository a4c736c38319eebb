package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gagliardetto/solana-go"

	clierr "solflow/internal/errors"
	"solflow/internal/registry"
)

// Grammars are compiled once. Matching is case-insensitive over a
// whitespace-normalized message; the optional trailing group on the swap
// forms carries an explicit slippage tolerance in basis points.
var (
	transferPattern = regexp.MustCompile(
		`^(?:send|transfer|pay)\s+(\d+(?:\.\d+)?)\s+sol\s+to\s+([1-9A-HJ-NP-Za-km-z]{32,44})$`)

	swapBuyPattern = regexp.MustCompile(
		`^buy\s+(\d+(?:\.\d+)?)\s+sol\s+(?:of|worth\s+of)\s+\$?([a-zA-Z0-9]+)` + slippageSuffix)
	swapSellPattern = regexp.MustCompile(
		`^sell\s+(\d+(?:\.\d+)?)\s+\$?([a-zA-Z0-9]+)` + slippageSuffix)
	swapConvertPattern = regexp.MustCompile(
		`^(?:convert|swap)\s+(\d+(?:\.\d+)?)\s+\$?([a-zA-Z0-9]+)\s+(?:to|for)\s+\$?([a-zA-Z0-9]+)` + slippageSuffix)

	crossSwapPattern = regexp.MustCompile(
		`^swap\s+(\d+(?:\.\d+)?)\s+\$?([a-zA-Z0-9]+)\s+from\s+([a-zA-Z]+)\s+to\s+\$?([a-zA-Z0-9]+)\s+on\s+([a-zA-Z]+)` + destSuffix + slippageSuffix)
	crossBridgePattern = regexp.MustCompile(
		`^(?:bridge|transfer)\s+(\d+(?:\.\d+)?)\s+\$?([a-zA-Z0-9]+)\s+from\s+([a-zA-Z]+)\s+to\s+([a-zA-Z]+)` + destSuffix + slippageSuffix)
)

const (
	slippageSuffix = `(?:\s+with\s+(\d+)\s*bps\s+slippage)?$`
	destSuffix     = `(?:\s+address\s+(\S+))?`
)

// Parse classifies one inbound message. pending is the kind of the
// currently pending action for the session, or KindNone when idle;
// confirmation and cancellation phrases only parse against a live
// pending action, and they win over the action grammars so a message
// like "confirm transaction" is never re-read as a new command.
func Parse(raw string, pending Kind) Intent {
	text := normalize(raw)
	if text == "" {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}

	if pending != KindNone {
		switch ClassifyConfirmation(raw, pending) {
		case DecisionConfirm:
			return Intent{Type: TypeConfirm, Raw: raw}
		case DecisionCancel:
			return Intent{Type: TypeCancel, Raw: raw}
		}
	}

	// Most specific grammars first: the cross-chain forms also start
	// with "swap"/"transfer".
	if m := crossSwapPattern.FindStringSubmatch(text); m != nil {
		return crossChainIntent(raw, m[1], m[2], m[4], m[3], m[5], m[6], m[7])
	}
	if m := crossBridgePattern.FindStringSubmatch(text); m != nil {
		return crossChainIntent(raw, m[1], m[2], m[2], m[3], m[4], m[5], m[6])
	}
	if m := transferPattern.FindStringSubmatch(text); m != nil {
		return transferIntent(raw, m[1], m[2])
	}
	if m := swapBuyPattern.FindStringSubmatch(text); m != nil {
		return swapIntent(raw, m[1], "SOL", m[2], m[3])
	}
	if m := swapSellPattern.FindStringSubmatch(text); m != nil {
		return swapIntent(raw, m[1], m[2], "SOL", m[3])
	}
	if m := swapConvertPattern.FindStringSubmatch(text); m != nil {
		return swapIntent(raw, m[1], m[2], m[3], m[4])
	}
	return Intent{Type: TypeUnrecognized, Raw: raw}
}

func transferIntent(raw, amount, recipient string) Intent {
	lamports, err := ParseAmount(amount, 9)
	if err != nil {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}
	if _, err := solana.PublicKeyFromBase58(recipient); err != nil {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}
	return Intent{
		Type: TypeTransfer,
		Raw:  raw,
		Transfer: &Transfer{
			Lamports:   lamports,
			AmountText: amount,
			Recipient:  recipient,
		},
	}
}

func swapIntent(raw, amount, fromSymbol, toSymbol, slippage string) Intent {
	fromToken, ok := registry.LookupToken(fromSymbol)
	if !ok {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}
	toToken, ok := registry.LookupToken(toSymbol)
	if !ok {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}
	if fromToken.Mint == toToken.Mint {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}
	baseUnits, err := ParseAmount(amount, fromToken.Decimals)
	if err != nil {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}
	return Intent{
		Type: TypeSwap,
		Raw:  raw,
		Swap: &Swap{
			AmountBaseUnits: baseUnits,
			AmountText:      amount,
			FromToken:       fromToken,
			ToToken:         toToken,
			SlippageBps:     parseSlippage(slippage),
		},
	}
}

func crossChainIntent(raw, amount, fromSymbol, toSymbol, fromChain, toChain, dest, slippage string) Intent {
	fromToken, ok := registry.LookupToken(fromSymbol)
	if !ok {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}
	fromNetwork, ok := registry.LookupNetwork(fromChain)
	if !ok {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}
	toNetwork, ok := registry.LookupNetwork(toChain)
	if !ok {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}
	if fromNetwork.Slug == toNetwork.Slug {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}
	baseUnits, err := ParseAmount(amount, fromToken.Decimals)
	if err != nil {
		return Intent{Type: TypeUnrecognized, Raw: raw}
	}
	return Intent{
		Type: TypeCrossChain,
		Raw:  raw,
		CrossChain: &CrossChainSwap{
			AmountBaseUnits:    baseUnits,
			AmountText:         amount,
			FromToken:          fromToken,
			ToTokenSymbol:      strings.ToUpper(toSymbol),
			FromNetwork:        fromNetwork,
			ToNetwork:          toNetwork,
			DestinationAddress: dest,
			SlippageBps:        parseSlippage(slippage),
		},
	}
}

// ValidateDestination checks an explicit cross-chain destination address
// against the destination network's address scheme. An empty address is
// allowed; the engine substitutes the owner's own wallet.
func (c *CrossChainSwap) ValidateDestination() error {
	if strings.TrimSpace(c.DestinationAddress) == "" {
		return nil
	}
	return registry.ValidateAddress(c.ToNetwork, c.DestinationAddress)
}

func parseSlippage(v string) int {
	if v == "" {
		return 0
	}
	var bps int
	if _, err := fmt.Sscanf(v, "%d", &bps); err != nil {
		return 0
	}
	return bps
}

func normalize(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.TrimSpace(raw)), " "))
}

// ParseError builds the re-prompt error for unrecognized input.
func ParseError(raw string) error {
	return clierr.New(clierr.CodeParse, fmt.Sprintf("could not understand %q", strings.TrimSpace(raw)))
}
