package out

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"solflow/internal/engine"
	clierr "solflow/internal/errors"
	"solflow/internal/executor"
	"solflow/internal/intent"
)

func TestRenderPlainSuccess(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, engine.Result{OK: true, Message: "Prepared: send 0.5 SOL."}, "plain")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := buf.String(); got != "Prepared: send 0.5 SOL.\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRenderPlainFailureShowsCode(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, engine.Result{
		Code:    clierr.CodeQuoteExpired,
		Message: "That quote has expired.",
	}, "plain")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "quote_expired") {
		t.Fatalf("expected code in output, got %q", buf.String())
	}
}

func TestRenderJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	in := engine.Result{OK: true, Kind: intent.KindSwap, Message: "done", Signature: "sig"}
	if err := Render(&buf, in, "json"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var got engine.Result
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.Signature != "sig" || got.Kind != intent.KindSwap {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestRenderHistoryPlain(t *testing.T) {
	var buf bytes.Buffer
	records := []executor.Record{
		{
			Kind:      intent.KindTransfer,
			Status:    executor.StatusSettled,
			Summary:   "send 0.5 SOL to abc",
			Signature: "sig-1",
			CreatedAt: time.Now(),
		},
		{
			Kind:      intent.KindSwap,
			Status:    executor.StatusFailed,
			Summary:   "swap 1 SOL to USDC",
			ErrorText: "transaction failed on chain",
			CreatedAt: time.Now(),
		},
	}
	if err := RenderHistory(&buf, records, "plain"); err != nil {
		t.Fatalf("RenderHistory failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "sig-1") || !strings.Contains(out, "transaction failed on chain") {
		t.Fatalf("unexpected listing:\n%s", out)
	}
}

func TestRenderHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHistory(&buf, nil, "plain"); err != nil {
		t.Fatalf("RenderHistory failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No executions") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
