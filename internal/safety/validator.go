// Package safety enforces the pre-flight limits an operation must pass
// before it may be held pending. Rules run in a fixed order and the
// first failure wins; the ceiling rule runs before any network call is
// made on the operation's behalf.
package safety

import (
	"fmt"
	"math/big"
	"strconv"

	clierr "solflow/internal/errors"
	"solflow/internal/intent"
)

// Limits carries the configured ceilings and slippage bounds. Ceilings
// are whole units of the asset being spent.
type Limits struct {
	MaxTransferUnits   float64
	MaxSwapUnits       float64
	MaxCrossChainUnits float64
	MinSlippageBps     int
	MaxSlippageBps     int
}

// AmountTooLarge is returned when an amount exceeds the per-kind ceiling.
type AmountTooLarge struct {
	Kind     intent.Kind
	MaxUnits float64
}

func (e AmountTooLarge) Error() string {
	return fmt.Sprintf("amount exceeds the %s limit of %g units", intent.Describe(e.Kind), e.MaxUnits)
}

// InsufficientBalance is returned when the spendable balance cannot
// cover the amount plus estimated fees. Amounts are base units of the
// asset named by Asset.
type InsufficientBalance struct {
	Asset string
	Have  uint64
	Need  uint64
}

func (e InsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient %s balance: have %d, need %d base units", e.Asset, e.Have, e.Need)
}

// SlippageOutOfRange is returned when a requested tolerance falls
// outside the configured bounds.
type SlippageOutOfRange struct {
	MinBps    int
	MaxBps    int
	Requested int
}

func (e SlippageOutOfRange) Error() string {
	return fmt.Sprintf("slippage %d bps is outside the allowed range [%d, %d]", e.Requested, e.MinBps, e.MaxBps)
}

// Check is one candidate operation plus the balances and fee estimate
// it will be judged against.
type Check struct {
	Kind            intent.Kind
	AmountBaseUnits uint64
	AssetSymbol     string
	AssetDecimals   uint8
	SpendsNative    bool
	AssetBalance    uint64
	NativeBalance   uint64
	FeeLamports     uint64
	SlippageBps     int
}

type Validator struct {
	limits Limits
}

func New(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// ValidateAmount applies the rules that need no chain state: a
// positive amount under the per-kind ceiling. It runs before any
// balance or quote lookup.
func (v *Validator) ValidateAmount(kind intent.Kind, amountBaseUnits uint64, decimals uint8) error {
	if amountBaseUnits == 0 {
		return clierr.New(clierr.CodeValidation, "amount must be greater than zero")
	}
	ceiling := v.ceilingFor(kind)
	if max, ok := ceilingBaseUnits(ceiling, decimals); ok && amountBaseUnits > max {
		reason := AmountTooLarge{Kind: kind, MaxUnits: ceiling}
		return clierr.Wrap(clierr.CodeValidation, reason.Error(), reason)
	}
	return nil
}

// Validate applies the safety rules in order: positive amount and
// per-kind ceiling, balance plus fee sufficiency, then slippage bounds
// for swap kinds.
func (v *Validator) Validate(check Check) error {
	if err := v.ValidateAmount(check.Kind, check.AmountBaseUnits, check.AssetDecimals); err != nil {
		return err
	}

	if check.SpendsNative {
		need := check.AmountBaseUnits + check.FeeLamports
		if check.NativeBalance < need {
			reason := InsufficientBalance{Asset: "SOL", Have: check.NativeBalance, Need: need}
			return clierr.Wrap(clierr.CodeInsufficientBalance, reason.Error(), reason)
		}
	} else {
		if check.AssetBalance < check.AmountBaseUnits {
			reason := InsufficientBalance{Asset: check.AssetSymbol, Have: check.AssetBalance, Need: check.AmountBaseUnits}
			return clierr.Wrap(clierr.CodeInsufficientBalance, reason.Error(), reason)
		}
		if check.NativeBalance < check.FeeLamports {
			reason := InsufficientBalance{Asset: "SOL", Have: check.NativeBalance, Need: check.FeeLamports}
			return clierr.Wrap(clierr.CodeInsufficientBalance, reason.Error(), reason)
		}
	}

	if check.Kind == intent.KindSwap || check.Kind == intent.KindCrossChain {
		if check.SlippageBps < v.limits.MinSlippageBps || check.SlippageBps > v.limits.MaxSlippageBps {
			reason := SlippageOutOfRange{
				MinBps:    v.limits.MinSlippageBps,
				MaxBps:    v.limits.MaxSlippageBps,
				Requested: check.SlippageBps,
			}
			return clierr.Wrap(clierr.CodeValidation, reason.Error(), reason)
		}
	}
	return nil
}

func (v *Validator) ceilingFor(kind intent.Kind) float64 {
	switch kind {
	case intent.KindTransfer:
		return v.limits.MaxTransferUnits
	case intent.KindSwap:
		return v.limits.MaxSwapUnits
	case intent.KindCrossChain:
		return v.limits.MaxCrossChainUnits
	default:
		return 0
	}
}

func ceilingBaseUnits(units float64, decimals uint8) (uint64, bool) {
	if units <= 0 {
		return 0, false
	}
	rat, ok := new(big.Rat).SetString(strconv.FormatFloat(units, 'f', -1, 64))
	if !ok {
		return 0, false
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat.Mul(rat, new(big.Rat).SetInt(scale))
	out := new(big.Int).Quo(rat.Num(), rat.Denom())
	if !out.IsUint64() {
		return 0, false
	}
	return out.Uint64(), true
}
