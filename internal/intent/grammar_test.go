package intent

import "testing"

const validRecipient = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

func TestParseTransferForms(t *testing.T) {
	cases := []string{
		"send 0.5 SOL to " + validRecipient,
		"transfer 0.5 sol to " + validRecipient,
		"pay 0.5 SOL to " + validRecipient,
		"  Send   0.5 SOL   to " + validRecipient + "  ",
	}
	for _, raw := range cases {
		got := Parse(raw, KindNone)
		if got.Type != TypeTransfer {
			t.Fatalf("Parse(%q) = %s, want transfer", raw, got.Type)
		}
		if got.Transfer.Lamports != 500_000_000 {
			t.Fatalf("Parse(%q) lamports = %d", raw, got.Transfer.Lamports)
		}
		if got.Transfer.Recipient != validRecipient {
			t.Fatalf("Parse(%q) recipient = %s", raw, got.Transfer.Recipient)
		}
	}
}

func TestParseTransferRejectsBadInput(t *testing.T) {
	cases := []string{
		"send 0.5 SOL to short-address",
		"send 0.5 USDC to " + validRecipient,
		"send -1 SOL to " + validRecipient,
		"send 0 SOL to " + validRecipient,
		"send SOL to " + validRecipient,
	}
	for _, raw := range cases {
		if got := Parse(raw, KindNone); got.Type != TypeUnrecognized {
			t.Fatalf("Parse(%q) = %s, want unrecognized", raw, got.Type)
		}
	}
}

func TestParseSwapForms(t *testing.T) {
	cases := []struct {
		raw      string
		from, to string
		units    uint64
		slippage int
	}{
		{"buy 0.01 SOL of BONK", "SOL", "BONK", 10_000_000, 0},
		{"buy 2 sol worth of usdc", "SOL", "USDC", 2_000_000_000, 0},
		{"sell 15 USDC", "USDC", "SOL", 15_000_000, 0},
		{"convert 1.5 USDC to USDT", "USDC", "USDT", 1_500_000, 0},
		{"swap 0.25 SOL for JUP", "SOL", "JUP", 250_000_000, 0},
		{"swap 0.25 sol to usdc with 80 bps slippage", "SOL", "USDC", 250_000_000, 80},
	}
	for _, tc := range cases {
		got := Parse(tc.raw, KindNone)
		if got.Type != TypeSwap {
			t.Fatalf("Parse(%q) = %s, want swap", tc.raw, got.Type)
		}
		sw := got.Swap
		if sw.FromToken.Symbol != tc.from || sw.ToToken.Symbol != tc.to {
			t.Fatalf("Parse(%q) pair = %s->%s", tc.raw, sw.FromToken.Symbol, sw.ToToken.Symbol)
		}
		if sw.AmountBaseUnits != tc.units {
			t.Fatalf("Parse(%q) units = %d, want %d", tc.raw, sw.AmountBaseUnits, tc.units)
		}
		if sw.SlippageBps != tc.slippage {
			t.Fatalf("Parse(%q) slippage = %d, want %d", tc.raw, sw.SlippageBps, tc.slippage)
		}
	}
}

func TestParseSwapRejectsUnknownTokenAndSamePair(t *testing.T) {
	for _, raw := range []string{
		"swap 1 NOTATOKEN to USDC",
		"swap 1 USDC to NOTATOKEN",
		"swap 1 USDC to USDC",
	} {
		if got := Parse(raw, KindNone); got.Type != TypeUnrecognized {
			t.Fatalf("Parse(%q) = %s, want unrecognized", raw, got.Type)
		}
	}
}

func TestParseCrossChainForms(t *testing.T) {
	got := Parse("bridge 10 USDC from solana to ethereum", KindNone)
	if got.Type != TypeCrossChain {
		t.Fatalf("bridge form = %s, want cross-chain", got.Type)
	}
	cc := got.CrossChain
	if cc.FromToken.Symbol != "USDC" || cc.ToTokenSymbol != "USDC" {
		t.Fatalf("unexpected tokens: %s -> %s", cc.FromToken.Symbol, cc.ToTokenSymbol)
	}
	if cc.FromNetwork.Slug != "solana" || cc.ToNetwork.Slug != "ethereum" {
		t.Fatalf("unexpected networks: %s -> %s", cc.FromNetwork.Slug, cc.ToNetwork.Slug)
	}
	if cc.AmountBaseUnits != 10_000_000 {
		t.Fatalf("unexpected units: %d", cc.AmountBaseUnits)
	}

	got = Parse("swap 1 SOL from solana to USDC on arbitrum address 0x6B175474E89094C44Da98b954EedeAC495271d0F", KindNone)
	if got.Type != TypeCrossChain {
		t.Fatalf("cross-chain swap form = %s, want cross-chain", got.Type)
	}
	cc = got.CrossChain
	if cc.ToTokenSymbol != "USDC" || cc.ToNetwork.Slug != "arbitrum" {
		t.Fatalf("unexpected destination: %s on %s", cc.ToTokenSymbol, cc.ToNetwork.Slug)
	}
	if cc.DestinationAddress == "" {
		t.Fatal("expected destination address to be captured")
	}
	if err := cc.ValidateDestination(); err != nil {
		t.Fatalf("valid destination rejected: %v", err)
	}
}

func TestParseCrossChainRejectsSameNetwork(t *testing.T) {
	if got := Parse("bridge 10 USDC from solana to sol", KindNone); got.Type != TypeUnrecognized {
		t.Fatalf("same-network bridge parsed as %s", got.Type)
	}
}

func TestCrossChainDestinationValidation(t *testing.T) {
	got := Parse("bridge 10 USDC from solana to ethereum address not-hex", KindNone)
	if got.Type != TypeCrossChain {
		t.Fatalf("unexpected type %s", got.Type)
	}
	if err := got.CrossChain.ValidateDestination(); err == nil {
		t.Fatal("expected invalid EVM destination to be rejected")
	}
}

func TestConfirmPhrasesOnlyParseWithPendingAction(t *testing.T) {
	if got := Parse("confirm transaction", KindNone); got.Type != TypeUnrecognized {
		t.Fatalf("confirm with no pending action = %s, want unrecognized", got.Type)
	}
	if got := Parse("confirm transaction", KindTransfer); got.Type != TypeConfirm {
		t.Fatalf("confirm with pending transfer = %s, want confirm", got.Type)
	}
	if got := Parse("cancel cross-chain swap", KindCrossChain); got.Type != TypeCancel {
		t.Fatalf("cancel with pending cross-chain swap = %s, want cancel", got.Type)
	}
}

func TestConfirmPhraseWinsOverActionGrammar(t *testing.T) {
	// "transfer ..." could open a new command, but while a transfer is
	// pending the cancellation phrase must win.
	if got := Parse("cancel transfer", KindTransfer); got.Type != TypeCancel {
		t.Fatalf("got %s, want cancel", got.Type)
	}
}

func TestParseAmountPrecision(t *testing.T) {
	cases := []struct {
		text     string
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{"1", 9, 1_000_000_000, false},
		{"0.000000001", 9, 1, false},
		{"0.1", 6, 100_000, false},
		{"0.0000001", 6, 0, true},
		{"0", 9, 0, true},
		{"abc", 9, 0, true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.text, tc.decimals)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseAmount(%q) expected error", tc.text)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAmount(%q) failed: %v", tc.text, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAmount(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestFormatAmountRoundTrip(t *testing.T) {
	if got := FormatAmount(1_500_000_000, 9); got != "1.5" {
		t.Fatalf("FormatAmount = %s, want 1.5", got)
	}
	if got := FormatAmount(5000, 9); got != "0.000005" {
		t.Fatalf("FormatAmount = %s, want 0.000005", got)
	}
	if got := FormatAmount(0, 6); got != "0" {
		t.Fatalf("FormatAmount = %s, want 0", got)
	}
}
