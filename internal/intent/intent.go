// Package intent turns free-form chat text into typed commands for the
// transaction workflow engine. Each inbound message produces exactly one
// Intent; parsing never touches the network.
package intent

import "solflow/internal/registry"

// Kind identifies the action family of a prepared or requested operation.
type Kind string

const (
	KindNone       Kind = ""
	KindTransfer   Kind = "transfer"
	KindSwap       Kind = "swap"
	KindCrossChain Kind = "cross_chain_swap"
)

// Type tags the parsed intent union.
type Type string

const (
	TypeTransfer     Type = "transfer"
	TypeSwap         Type = "swap"
	TypeCrossChain   Type = "cross_chain_swap"
	TypeConfirm      Type = "confirm"
	TypeCancel       Type = "cancel"
	TypeUnrecognized Type = "unrecognized"
)

// Transfer is a native SOL transfer request.
type Transfer struct {
	Lamports   uint64
	AmountText string
	Recipient  string
}

// Swap is a same-network token swap request.
type Swap struct {
	AmountBaseUnits uint64
	AmountText      string
	FromToken       registry.Token
	ToToken         registry.Token
	SlippageBps     int
}

// CrossChainSwap is a swap whose destination settles on another network.
type CrossChainSwap struct {
	AmountBaseUnits    uint64
	AmountText         string
	FromToken          registry.Token
	ToTokenSymbol      string
	FromNetwork        registry.Network
	ToNetwork          registry.Network
	DestinationAddress string
	SlippageBps        int
}

// Intent is the tagged union produced by Parse. Exactly one payload
// pointer is set for the action types; Confirm/Cancel/Unrecognized carry
// only the raw text.
type Intent struct {
	Type       Type
	Raw        string
	Transfer   *Transfer
	Swap       *Swap
	CrossChain *CrossChainSwap
}

// ActionKind maps an action intent to its pending-action kind.
func (i Intent) ActionKind() Kind {
	switch i.Type {
	case TypeTransfer:
		return KindTransfer
	case TypeSwap:
		return KindSwap
	case TypeCrossChain:
		return KindCrossChain
	default:
		return KindNone
	}
}

// Describe returns the human word for a kind, used in prompts and errors.
func Describe(kind Kind) string {
	switch kind {
	case KindTransfer:
		return "transfer"
	case KindSwap:
		return "swap"
	case KindCrossChain:
		return "cross-chain swap"
	default:
		return "action"
	}
}

// Usage is returned alongside parse failures so the caller can re-prompt.
const Usage = `I can help with:
  send <amount> SOL to <address>
  buy <amount> SOL of <token> | sell <amount> <token> | swap <amount> <token> to <token>
  bridge <amount> <token> from <chain> to <chain>
  swap <amount> <token> from <chain> to <token> on <chain>
Reply "confirm <action>" or "cancel <action>" when an action is pending.`
