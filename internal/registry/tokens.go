package registry

import "strings"

// Token describes an SPL asset the engine can trade.
type Token struct {
	Symbol   string
	Mint     string
	Decimals uint8
}

// NativeSOL is the wrapped-SOL mint used by swap routers for the native asset.
const NativeSOLMint = "So11111111111111111111111111111111111111112"

var tokens = map[string]Token{
	"SOL":  {Symbol: "SOL", Mint: NativeSOLMint, Decimals: 9},
	"USDC": {Symbol: "USDC", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6},
	"USDT": {Symbol: "USDT", Mint: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Decimals: 6},
	"JUP":  {Symbol: "JUP", Mint: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", Decimals: 6},
	"BONK": {Symbol: "BONK", Mint: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Decimals: 5},
	"RAY":  {Symbol: "RAY", Mint: "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", Decimals: 6},
}

var tokenAliases = map[string]string{
	"WSOL":    "SOL",
	"SOLANA":  "SOL",
	"$BONK":   "BONK",
	"JUPITER": "JUP",
}

// LookupToken resolves a user-supplied symbol to a known token.
func LookupToken(symbol string) (Token, bool) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if canonical, ok := tokenAliases[key]; ok {
		key = canonical
	}
	token, ok := tokens[key]
	return token, ok
}
