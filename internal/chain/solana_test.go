package chain

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go/rpc"

	clierr "solflow/internal/errors"
)

func TestClassifyErrorText(t *testing.T) {
	cases := []struct {
		text string
		code clierr.Code
	}{
		{"Transaction simulation failed: Blockhash not found", clierr.CodeNetwork},
		{"Post \"https://rpc\": context deadline exceeded", clierr.CodeNetwork},
		{"dial tcp: connection refused", clierr.CodeNetwork},
		{"429 Too Many Requests", clierr.CodeNetwork},
		{"Transfer: insufficient lamports 100, need 200", clierr.CodeInsufficientBalance},
		{"custom program error: 0x1771", clierr.CodeExecution},
	}
	for _, tc := range cases {
		got := classify("send transaction", errors.New(tc.text))
		if clierr.CodeOf(got) != tc.code {
			t.Errorf("%q: got code %v, want %v", tc.text, clierr.CodeOf(got), tc.code)
		}
	}
}

func TestSettledAtCommitmentRanking(t *testing.T) {
	cases := []struct {
		status rpc.ConfirmationStatusType
		want   rpc.CommitmentType
		ok     bool
	}{
		{"processed", rpc.CommitmentConfirmed, false},
		{"confirmed", rpc.CommitmentConfirmed, true},
		{"finalized", rpc.CommitmentConfirmed, true},
		{"confirmed", rpc.CommitmentFinalized, false},
		{"finalized", rpc.CommitmentFinalized, true},
		{"", rpc.CommitmentConfirmed, false},
	}
	for _, tc := range cases {
		if got := settledAt(tc.status, tc.want); got != tc.ok {
			t.Errorf("settledAt(%q, %q) = %v, want %v", tc.status, tc.want, got, tc.ok)
		}
	}
}

func TestCommitmentFrom(t *testing.T) {
	if commitmentFrom("finalized") != rpc.CommitmentFinalized {
		t.Fatal("finalized not mapped")
	}
	if commitmentFrom("anything-else") != rpc.CommitmentConfirmed {
		t.Fatal("default must be confirmed")
	}
}
