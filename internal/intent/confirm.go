package intent

import "strings"

// Decision is the classification of a follow-up message against the
// currently pending action.
type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionCancel  Decision = "cancel"
	DecisionInvalid Decision = "invalid"
)

// Phrase tables. Canonical phrases match the whole normalized message;
// the relaxed rule needs a direction token plus a subject token that
// fits the pending kind. "transaction"/"tx" are kind-neutral subjects.
var (
	canonicalConfirm = map[string]Kind{
		"confirm":                  KindNone,
		"yes":                      KindNone,
		"yes confirm":              KindNone,
		"confirm transaction":      KindNone,
		"confirm transfer":         KindTransfer,
		"confirm payment":          KindTransfer,
		"confirm swap":             KindSwap,
		"confirm trade":            KindSwap,
		"confirm cross-chain swap": KindCrossChain,
		"confirm cross chain swap": KindCrossChain,
		"confirm bridge":           KindCrossChain,
	}
	canonicalCancel = map[string]Kind{
		"cancel":                  KindNone,
		"no":                      KindNone,
		"no cancel":               KindNone,
		"cancel transaction":      KindNone,
		"cancel transfer":         KindTransfer,
		"cancel payment":          KindTransfer,
		"cancel swap":             KindSwap,
		"cancel trade":            KindSwap,
		"cancel cross-chain swap": KindCrossChain,
		"cancel cross chain swap": KindCrossChain,
		"cancel bridge":           KindCrossChain,
	}

	confirmTokens = tokenSet("confirm", "yes", "y", "ok", "okay", "approve", "proceed", "go", "execute")
	cancelTokens  = tokenSet("cancel", "no", "n", "stop", "abort", "reject", "nevermind")

	neutralSubjects = tokenSet("transaction", "tx", "it", "order")
	kindSubjects    = map[Kind]map[string]struct{}{
		KindTransfer:   tokenSet("transfer", "send", "payment"),
		KindSwap:       tokenSet("swap", "trade", "conversion"),
		KindCrossChain: tokenSet("swap", "bridge", "cross-chain"),
	}
)

// ClassifyConfirmation decides whether raw confirms or cancels the
// pending action. With no pending action every phrase is invalid; the
// caller uses that to answer "nothing to confirm" instead of replaying a
// stale command.
func ClassifyConfirmation(raw string, pending Kind) Decision {
	if pending == KindNone {
		return DecisionInvalid
	}
	text := normalize(raw)
	if text == "" {
		return DecisionInvalid
	}

	if kind, ok := canonicalCancel[text]; ok && kindMatches(kind, pending) {
		return DecisionCancel
	}
	if kind, ok := canonicalConfirm[text]; ok && kindMatches(kind, pending) {
		return DecisionConfirm
	}

	tokens := strings.Fields(text)
	if !hasSubjectFor(tokens, pending) {
		return DecisionInvalid
	}
	// Cancellation wins when both directions appear ("no, don't confirm").
	if hasAny(tokens, cancelTokens) {
		return DecisionCancel
	}
	if hasAny(tokens, confirmTokens) {
		return DecisionConfirm
	}
	return DecisionInvalid
}

func kindMatches(phraseKind, pending Kind) bool {
	return phraseKind == KindNone || phraseKind == pending
}

func hasSubjectFor(tokens []string, pending Kind) bool {
	subjects := kindSubjects[pending]
	for _, tok := range tokens {
		if _, ok := neutralSubjects[tok]; ok {
			return true
		}
		if _, ok := subjects[tok]; ok {
			return true
		}
	}
	return false
}

func hasAny(tokens []string, set map[string]struct{}) bool {
	for _, tok := range tokens {
		if _, ok := set[tok]; ok {
			return true
		}
	}
	return false
}

func tokenSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
