package intent

import (
	"fmt"
	"math/big"
	"strings"

	clierr "solflow/internal/errors"
)

// ParseAmount converts a decimal amount string into base units for an
// asset with the given number of decimals. Parsing goes through big.Rat
// so user-facing decimal amounts never pick up float drift.
func ParseAmount(text string, decimals uint8) (uint64, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return 0, clierr.New(clierr.CodeParse, "empty amount")
	}
	rat, ok := new(big.Rat).SetString(clean)
	if !ok {
		return 0, clierr.New(clierr.CodeParse, fmt.Sprintf("invalid amount %q", text))
	}
	if rat.Sign() <= 0 {
		return 0, clierr.New(clierr.CodeParse, "amount must be greater than zero")
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat.Mul(rat, new(big.Rat).SetInt(scale))
	if !rat.IsInt() {
		return 0, clierr.New(clierr.CodeParse, fmt.Sprintf("amount %q has more than %d decimal places", text, decimals))
	}
	num := rat.Num()
	if !num.IsUint64() {
		return 0, clierr.New(clierr.CodeParse, fmt.Sprintf("amount %q is out of range", text))
	}
	return num.Uint64(), nil
}

// FormatAmount renders base units back into a decimal string.
func FormatAmount(baseUnits uint64, decimals uint8) string {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(new(big.Int).SetUint64(baseUnits), scale)
	out := rat.FloatString(int(decimals))
	if strings.Contains(out, ".") {
		out = strings.TrimRight(out, "0")
		out = strings.TrimSuffix(out, ".")
	}
	if out == "" {
		return "0"
	}
	return out
}
