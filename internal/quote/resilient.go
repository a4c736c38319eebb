package quote

import (
	"context"
	"log/slog"

	clierr "solflow/internal/errors"
	"solflow/internal/logging"
	"solflow/internal/resilience"
)

// Resilient decorates a Provider with the engine's single retry and
// circuit-breaker policy. All quote call sites go through this type so
// backoff behavior is not scattered per adapter.
type Resilient struct {
	inner   Provider
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
	log     *slog.Logger
}

func NewResilient(inner Provider, retry resilience.RetryPolicy, breaker *resilience.CircuitBreaker, log *slog.Logger) *Resilient {
	if log == nil {
		log = logging.Discard()
	}
	return &Resilient{inner: inner, retry: retry, breaker: breaker, log: log}
}

// Quote short-circuits while the breaker is open, otherwise retries
// transient failures with the configured fixed backoff. Exhausted
// transient failures surface as QuoteUnavailable.
func (r *Resilient) Quote(ctx context.Context, req Request) (Quote, error) {
	if !r.breaker.Allow() {
		r.log.Warn("quote short-circuited, breaker open", "from", req.FromSymbol, "to", req.ToSymbol)
		return Quote{}, clierr.New(clierr.CodeQuoteUnavailable, "quote provider temporarily unavailable")
	}

	var out Quote
	err := r.retry.Do(ctx, func() error {
		var callErr error
		out, callErr = r.inner.Quote(ctx, req)
		return callErr
	})
	if err == nil {
		r.breaker.OnSuccess()
		return out, nil
	}
	if clierr.IsTransient(err) || clierr.CodeOf(err) == clierr.CodeQuoteUnavailable {
		r.breaker.OnFailure()
		return Quote{}, clierr.Wrap(clierr.CodeQuoteUnavailable, "quote provider failed after retries", err)
	}
	return Quote{}, err
}
