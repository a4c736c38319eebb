// Package engine orchestrates the prepare, confirm, execute workflow
// for chat-driven operations. One engine serves many chat sessions;
// each session (owner) holds at most one pending action and runs at
// most one execution at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"solflow/internal/chain"
	clierr "solflow/internal/errors"
	"solflow/internal/executor"
	"solflow/internal/intent"
	"solflow/internal/pending"
	"solflow/internal/quote"
	"solflow/internal/registry"
	"solflow/internal/safety"
)

// Balances is the slice of the chain adapter used at prepare time.
type Balances interface {
	Balance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
}

// Runner executes a claimed action to settlement.
type Runner interface {
	Execute(ctx context.Context, act *pending.Action) (executor.Result, error)
}

// PriceSource provides advisory USD prices. Failures are tolerated.
type PriceSource interface {
	PriceUSD(ctx context.Context, mint string) (float64, error)
}

// Config carries the engine's tunables.
type Config struct {
	PendingTTL         time.Duration
	DefaultSlippageBps int
}

// Result is the engine's answer to one inbound message.
type Result struct {
	OK        bool        `json:"ok"`
	Kind      intent.Kind `json:"kind,omitempty"`
	Code      clierr.Code `json:"code"`
	Message   string      `json:"message"`
	PendingID string      `json:"pending_id,omitempty"`
	Signature string      `json:"signature,omitempty"`
}

type Engine struct {
	store     *pending.Store
	validator *safety.Validator
	swaps     quote.Provider
	bridge    quote.Provider
	runner    Runner
	balances  Balances
	prices    PriceSource
	history   *executor.History
	wallet    solana.PublicKey
	cfg       Config
	log       *slog.Logger

	mu        sync.Mutex
	ownerMus  map[string]*sync.Mutex
	executing map[string]bool

	now   func() time.Time
	newID func() string
}

func New(store *pending.Store, validator *safety.Validator, swaps, bridge quote.Provider, runner Runner, balances Balances, prices PriceSource, history *executor.History, wallet solana.PublicKey, cfg Config, log *slog.Logger) *Engine {
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 2 * time.Minute
	}
	if cfg.DefaultSlippageBps <= 0 {
		cfg.DefaultSlippageBps = 50
	}
	return &Engine{
		store:     store,
		validator: validator,
		swaps:     swaps,
		bridge:    bridge,
		runner:    runner,
		balances:  balances,
		prices:    prices,
		history:   history,
		wallet:    wallet,
		cfg:       cfg,
		log:       log,
		ownerMus:  make(map[string]*sync.Mutex),
		executing: make(map[string]bool),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// HandleMessage processes one chat message for an owner. Messages from
// the same owner are serialized; unrelated owners proceed in parallel.
func (e *Engine) HandleMessage(ctx context.Context, owner, text string) Result {
	if e.isExecuting(owner) {
		return Result{
			Code:    clierr.CodeInProgress,
			Message: "An execution is already in progress for this session; please wait for it to finish.",
		}
	}

	mu := e.ownerMutex(owner)
	mu.Lock()
	unlocked := false
	unlock := func() {
		if !unlocked {
			unlocked = true
			mu.Unlock()
		}
	}
	defer unlock()

	pendingKind := intent.KindNone
	if act, ok := e.store.Get(owner); ok {
		pendingKind = act.Kind
	}

	parsed := intent.Parse(text, pendingKind)
	switch parsed.Type {
	case intent.TypeCancel:
		return e.cancel(owner)
	case intent.TypeConfirm:
		return e.confirmAndExecute(ctx, owner, unlock)
	case intent.TypeTransfer:
		return e.prepareTransfer(ctx, owner, parsed.Transfer)
	case intent.TypeSwap:
		return e.prepareSwap(ctx, owner, parsed.Swap)
	case intent.TypeCrossChain:
		return e.prepareCrossChain(ctx, owner, parsed.CrossChain)
	default:
		return Result{
			Code:    clierr.CodeParse,
			Message: fmt.Sprintf("Sorry, I could not understand that.\n%s", intent.Usage),
		}
	}
}

func (e *Engine) prepareTransfer(ctx context.Context, owner string, t *intent.Transfer) Result {
	if err := e.validator.ValidateAmount(intent.KindTransfer, t.Lamports, 9); err != nil {
		return e.failure(intent.KindTransfer, err)
	}

	balance, err := e.balances.Balance(ctx, e.wallet)
	if err != nil {
		return e.failure(intent.KindTransfer, err)
	}
	if err := e.validator.Validate(safety.Check{
		Kind:            intent.KindTransfer,
		AmountBaseUnits: t.Lamports,
		AssetSymbol:     "SOL",
		AssetDecimals:   9,
		SpendsNative:    true,
		NativeBalance:   balance,
		FeeLamports:     chain.BaseFeeLamports,
	}); err != nil {
		return e.failure(intent.KindTransfer, err)
	}

	var usdNote string
	if e.prices != nil {
		if price, err := e.prices.PriceUSD(ctx, registry.NativeSOLMint); err == nil {
			usd := price * float64(t.Lamports) / 1e9
			usdNote = fmt.Sprintf(" (~$%.2f)", usd)
		} else {
			// Price display is advisory; the transfer stays available.
			e.log.Debug("price lookup failed", "error", err)
		}
	}

	act := e.putAction(owner, intent.KindTransfer, t, nil, nil, nil)
	msg := fmt.Sprintf(
		"Prepared: send %s SOL%s to %s.\nNetwork fee: %s SOL. Expires in %s.\nReply \"confirm transfer\" to execute or \"cancel\" to discard.",
		t.AmountText, usdNote, t.Recipient,
		intent.FormatAmount(chain.BaseFeeLamports, 9),
		e.cfg.PendingTTL,
	)
	return Result{OK: true, Kind: intent.KindTransfer, Message: msg, PendingID: act.ID}
}

func (e *Engine) prepareSwap(ctx context.Context, owner string, s *intent.Swap) Result {
	if err := e.validator.ValidateAmount(intent.KindSwap, s.AmountBaseUnits, s.FromToken.Decimals); err != nil {
		return e.failure(intent.KindSwap, err)
	}
	if s.SlippageBps == 0 {
		s.SlippageBps = e.cfg.DefaultSlippageBps
	}

	check := safety.Check{
		Kind:            intent.KindSwap,
		AmountBaseUnits: s.AmountBaseUnits,
		AssetSymbol:     s.FromToken.Symbol,
		AssetDecimals:   s.FromToken.Decimals,
		FeeLamports:     chain.BaseFeeLamports,
		SlippageBps:     s.SlippageBps,
	}
	native, err := e.balances.Balance(ctx, e.wallet)
	if err != nil {
		return e.failure(intent.KindSwap, err)
	}
	check.NativeBalance = native
	if s.FromToken.Mint == registry.NativeSOLMint {
		check.SpendsNative = true
	} else {
		mint, err := solana.PublicKeyFromBase58(s.FromToken.Mint)
		if err != nil {
			return e.failure(intent.KindSwap, clierr.Wrap(clierr.CodeInternal, "bad mint in registry", err))
		}
		tokenBalance, err := e.balances.TokenBalance(ctx, e.wallet, mint)
		if err != nil {
			return e.failure(intent.KindSwap, err)
		}
		check.AssetBalance = tokenBalance
	}
	if err := e.validator.Validate(check); err != nil {
		return e.failure(intent.KindSwap, err)
	}

	q, err := e.swaps.Quote(ctx, quote.Request{
		FromSymbol:      s.FromToken.Symbol,
		ToSymbol:        s.ToToken.Symbol,
		FromMint:        s.FromToken.Mint,
		ToMint:          s.ToToken.Mint,
		FromNetwork:     "solana",
		ToNetwork:       "solana",
		AmountBaseUnits: s.AmountBaseUnits,
		SlippageBps:     s.SlippageBps,
	})
	if err != nil {
		return e.failure(intent.KindSwap, err)
	}

	act := e.putAction(owner, intent.KindSwap, nil, s, nil, &q)
	msg := fmt.Sprintf(
		"Prepared: swap %s %s for ~%s %s via %s.\nPrice impact: %.2f%%. Slippage tolerance: %d bps.%s\nQuote valid until %s.\nReply \"confirm swap\" to execute or \"cancel\" to discard.",
		s.AmountText, s.FromToken.Symbol,
		intent.FormatAmount(q.ExpectedOutBaseUnits, q.OutDecimals), s.ToToken.Symbol,
		q.Provider, q.PriceImpactPct, s.SlippageBps, feeLines(q),
		q.ValidUntil.Local().Format("15:04:05"),
	)
	return Result{OK: true, Kind: intent.KindSwap, Message: msg, PendingID: act.ID}
}

func (e *Engine) prepareCrossChain(ctx context.Context, owner string, cc *intent.CrossChainSwap) Result {
	if cc.FromNetwork.Slug != "solana" {
		return e.failure(intent.KindCrossChain, clierr.New(clierr.CodeUnsupported,
			"cross-network swaps can only be funded from Solana in this session"))
	}
	if cc.FromToken.Mint != registry.NativeSOLMint {
		return e.failure(intent.KindCrossChain, clierr.New(clierr.CodeUnsupported,
			"cross-network swaps can only be funded with SOL right now"))
	}
	if err := e.validator.ValidateAmount(intent.KindCrossChain, cc.AmountBaseUnits, cc.FromToken.Decimals); err != nil {
		return e.failure(intent.KindCrossChain, err)
	}
	if err := cc.ValidateDestination(); err != nil {
		return e.failure(intent.KindCrossChain, err)
	}
	if cc.DestinationAddress == "" {
		if cc.ToNetwork.Kind != registry.AddressKindSolana {
			return e.failure(intent.KindCrossChain, clierr.New(clierr.CodeValidation,
				fmt.Sprintf("a destination address on %s is required: add \"address <addr>\"", cc.ToNetwork.Name)))
		}
		cc.DestinationAddress = e.wallet.String()
	}
	if cc.SlippageBps == 0 {
		cc.SlippageBps = e.cfg.DefaultSlippageBps
	}

	native, err := e.balances.Balance(ctx, e.wallet)
	if err != nil {
		return e.failure(intent.KindCrossChain, err)
	}
	if err := e.validator.Validate(safety.Check{
		Kind:            intent.KindCrossChain,
		AmountBaseUnits: cc.AmountBaseUnits,
		AssetSymbol:     cc.FromToken.Symbol,
		AssetDecimals:   cc.FromToken.Decimals,
		SpendsNative:    true,
		NativeBalance:   native,
		FeeLamports:     chain.BaseFeeLamports,
		SlippageBps:     cc.SlippageBps,
	}); err != nil {
		return e.failure(intent.KindCrossChain, err)
	}

	q, err := e.bridge.Quote(ctx, quote.Request{
		FromSymbol:      cc.FromToken.Symbol,
		ToSymbol:        cc.ToTokenSymbol,
		FromMint:        cc.FromToken.Mint,
		FromNetwork:     cc.FromNetwork.Slug,
		ToNetwork:       cc.ToNetwork.Slug,
		AmountBaseUnits: cc.AmountBaseUnits,
		SlippageBps:     cc.SlippageBps,
	})
	if err != nil {
		return e.failure(intent.KindCrossChain, err)
	}
	if q.DepositAddress == "" {
		return e.failure(intent.KindCrossChain, clierr.New(clierr.CodeQuoteUnavailable,
			"the bridge did not return a deposit address"))
	}

	act := e.putAction(owner, intent.KindCrossChain, nil, nil, cc, &q)
	msg := fmt.Sprintf(
		"Prepared: swap %s %s on %s for ~%s %s on %s.\nDestination: %s.%s\nQuote valid until %s.\nReply \"confirm swap\" to execute or \"cancel\" to discard.",
		cc.AmountText, cc.FromToken.Symbol, cc.FromNetwork.Name,
		intent.FormatAmount(q.ExpectedOutBaseUnits, q.OutDecimals), cc.ToTokenSymbol, cc.ToNetwork.Name,
		cc.DestinationAddress, feeLines(q),
		q.ValidUntil.Local().Format("15:04:05"),
	)
	return Result{OK: true, Kind: intent.KindCrossChain, Message: msg, PendingID: act.ID}
}

func (e *Engine) cancel(owner string) Result {
	if e.store.Clear(owner) {
		return Result{
			OK:      true,
			Code:    clierr.CodeCancelled,
			Message: "Cancelled. Nothing was executed.",
		}
	}
	return Result{
		Code:    clierr.CodeNothingPending,
		Message: "There is nothing pending to cancel.",
	}
}

func (e *Engine) confirmAndExecute(ctx context.Context, owner string, unlock func()) Result {
	act, takeRes := e.store.Take(owner)
	switch takeRes {
	case pending.TakeNone:
		return Result{
			Code:    clierr.CodeNothingPending,
			Message: "There is nothing pending to confirm.",
		}
	case pending.TakeExpired:
		if act.Quote != nil {
			return Result{
				Kind:    act.Kind,
				Code:    clierr.CodeQuoteExpired,
				Message: "That quote has expired, so I won't execute it. Ask again to get a fresh quote.",
			}
		}
		return Result{
			Kind:    act.Kind,
			Code:    clierr.CodeNothingPending,
			Message: "That request expired before it was confirmed. Ask again if you still want it.",
		}
	}

	e.setExecuting(owner, true)
	defer e.setExecuting(owner, false)
	unlock()

	e.log.Info("executing action", "owner", owner, "id", act.ID, "kind", act.Kind)
	execRes, err := e.runner.Execute(ctx, act)

	rec := executor.Record{
		ID:          act.ID,
		Owner:       owner,
		Kind:        act.Kind,
		Summary:     actionSummary(act),
		Signature:   execRes.Signature,
		InBaseUnits: actionAmount(act),
		CreatedAt:   e.now().UTC(),
	}
	if err != nil {
		rec.Status = executor.StatusFailed
		rec.ErrorCode = clierr.CodeOf(err)
		rec.ErrorText = err.Error()
	} else {
		rec.Status = executor.StatusSettled
		rec.OutBaseUnits = execRes.OutBaseUnits
		rec.FeeLamports = execRes.FeeLamports
		rec.DestTxHash = execRes.DestTxHash
	}
	if e.history != nil {
		if saveErr := e.history.Save(rec); saveErr != nil {
			e.log.Warn("history write failed", "error", saveErr)
		}
	}

	if err != nil {
		e.log.Warn("execution failed", "owner", owner, "id", act.ID, "error", err)
		res := e.failure(act.Kind, err)
		res.Signature = execRes.Signature
		return res
	}

	msg := fmt.Sprintf("Done. The %s settled.\nSignature: %s", intent.Describe(act.Kind), execRes.Signature)
	if execRes.FeeLamports > 0 {
		msg += fmt.Sprintf("\nNetwork fee paid: %s SOL", intent.FormatAmount(execRes.FeeLamports, 9))
	}
	if execRes.DestTxHash != "" {
		msg += fmt.Sprintf("\nDestination transaction: %s", execRes.DestTxHash)
	}
	return Result{OK: true, Kind: act.Kind, Message: msg, Signature: execRes.Signature}
}

func (e *Engine) putAction(owner string, kind intent.Kind, t *intent.Transfer, s *intent.Swap, cc *intent.CrossChainSwap, q *quote.Quote) *pending.Action {
	now := e.now()
	expires := now.Add(e.cfg.PendingTTL)
	if q != nil && !q.ValidUntil.IsZero() && q.ValidUntil.Before(expires) {
		expires = q.ValidUntil
	}
	act := &pending.Action{
		ID:         e.newID(),
		Owner:      owner,
		Kind:       kind,
		Transfer:   t,
		Swap:       s,
		CrossChain: cc,
		Quote:      q,
		CreatedAt:  now,
		ExpiresAt:  expires,
	}
	e.store.Put(act)
	return act
}

func (e *Engine) failure(kind intent.Kind, err error) Result {
	msg := err.Error()
	var reason safety.InsufficientBalance
	if errors.As(err, &reason) {
		msg = fmt.Sprintf("Insufficient %s balance for that %s (including network fees).", reason.Asset, intent.Describe(kind))
	}
	var ce *clierr.Error
	if errors.As(err, &ce) && ce.Code == clierr.CodeQuoteUnavailable {
		msg = "Pricing is unavailable right now; please try again shortly."
	}
	return Result{Kind: kind, Code: clierr.CodeOf(err), Message: msg}
}

func (e *Engine) ownerMutex(owner string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	mu, ok := e.ownerMus[owner]
	if !ok {
		mu = &sync.Mutex{}
		e.ownerMus[owner] = mu
	}
	return mu
}

func (e *Engine) isExecuting(owner string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executing[owner]
}

func (e *Engine) setExecuting(owner string, v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v {
		e.executing[owner] = true
	} else {
		delete(e.executing, owner)
	}
}

func actionSummary(act *pending.Action) string {
	switch act.Kind {
	case intent.KindTransfer:
		return fmt.Sprintf("send %s SOL to %s", act.Transfer.AmountText, act.Transfer.Recipient)
	case intent.KindSwap:
		return fmt.Sprintf("swap %s %s to %s", act.Swap.AmountText, act.Swap.FromToken.Symbol, act.Swap.ToToken.Symbol)
	case intent.KindCrossChain:
		cc := act.CrossChain
		return fmt.Sprintf("swap %s %s from %s to %s on %s", cc.AmountText, cc.FromToken.Symbol, cc.FromNetwork.Slug, cc.ToTokenSymbol, cc.ToNetwork.Slug)
	default:
		return ""
	}
}

func actionAmount(act *pending.Action) uint64 {
	switch act.Kind {
	case intent.KindTransfer:
		return act.Transfer.Lamports
	case intent.KindSwap:
		return act.Swap.AmountBaseUnits
	case intent.KindCrossChain:
		return act.CrossChain.AmountBaseUnits
	default:
		return 0
	}
}

func feeLines(q quote.Quote) string {
	if len(q.Fees) == 0 {
		return ""
	}
	var b strings.Builder
	for _, fee := range q.Fees {
		fmt.Fprintf(&b, "\nFee: %d %s (%s)", fee.AmountBaseUnits, fee.Asset, fee.Label)
	}
	return b.String()
}
