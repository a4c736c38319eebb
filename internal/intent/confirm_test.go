package intent

import "testing"

func TestClassifyConfirmationRelaxedRule(t *testing.T) {
	cases := []struct {
		raw     string
		pending Kind
		want    Decision
	}{
		{"yes swap", KindSwap, DecisionConfirm},
		{"ok do the swap", KindSwap, DecisionConfirm},
		{"yes, execute the transfer", KindTransfer, DecisionConfirm},
		{"approve the bridge", KindCrossChain, DecisionConfirm},
		{"no, stop the swap", KindSwap, DecisionCancel},
		{"cancel that transaction", KindTransfer, DecisionCancel},
		// Direction without a matching subject is not enough.
		{"yes", KindSwap, DecisionConfirm}, // canonical bare yes
		{"yes please", KindSwap, DecisionInvalid},
		{"sounds good", KindSwap, DecisionInvalid},
		// Subject mismatching the pending kind is rejected.
		{"confirm swap", KindTransfer, DecisionInvalid},
		{"yes transfer", KindSwap, DecisionInvalid},
	}
	for _, tc := range cases {
		if got := ClassifyConfirmation(tc.raw, tc.pending); got != tc.want {
			t.Fatalf("ClassifyConfirmation(%q, %s) = %s, want %s", tc.raw, tc.pending, got, tc.want)
		}
	}
}

func TestClassifyConfirmationCancelWinsOverConfirm(t *testing.T) {
	if got := ClassifyConfirmation("no don't confirm the swap", KindSwap); got != DecisionCancel {
		t.Fatalf("got %s, want cancel", got)
	}
}

func TestClassifyConfirmationNoPending(t *testing.T) {
	for _, raw := range []string{"confirm", "yes swap", "cancel transaction"} {
		if got := ClassifyConfirmation(raw, KindNone); got != DecisionInvalid {
			t.Fatalf("ClassifyConfirmation(%q, none) = %s, want invalid", raw, got)
		}
	}
}
