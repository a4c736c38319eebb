// Package executor carries a confirmed action to settlement. By the
// time an action reaches this package the engine has already claimed
// it from the pending store, so an executor run is the only run for
// that action.
package executor

import (
	"context"
	"encoding/base64"
	"log/slog"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"solflow/internal/chain"
	"solflow/internal/custody"
	clierr "solflow/internal/errors"
	"solflow/internal/intent"
	"solflow/internal/pending"
	"solflow/internal/quote"
	"solflow/internal/quote/relay"
	"solflow/internal/resilience"
)

const baseFeeLamports = chain.BaseFeeLamports

// ChainClient is the slice of the chain adapter the executor needs.
type ChainClient interface {
	Balance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	BuildTransfer(ctx context.Context, from, to solana.PublicKey, lamports uint64) (*solana.Transaction, error)
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	AwaitSettlement(ctx context.Context, sig solana.Signature) error
}

// SwapBuilder turns a held quote into a signable transaction payload.
type SwapBuilder interface {
	BuildSwap(ctx context.Context, q quote.Quote, userPublicKey string) (string, error)
}

// BridgeWatcher reports the settlement state of a bridge deposit.
type BridgeWatcher interface {
	Status(ctx context.Context, statusRef string) (relay.SettlementStatus, error)
}

// Result is the settled outcome of one executed action.
type Result struct {
	Signature    string
	FeeLamports  uint64
	OutBaseUnits uint64
	DestTxHash   string
}

type Options struct {
	SubmitRetry        resilience.RetryPolicy
	BridgePollInterval time.Duration
	BridgeWait         time.Duration
}

type Executor struct {
	chain  ChainClient
	signer custody.Signer
	swaps  SwapBuilder
	bridge BridgeWatcher
	opts   Options
	log    *slog.Logger
	now    func() time.Time
}

func New(chain ChainClient, signer custody.Signer, swaps SwapBuilder, bridge BridgeWatcher, opts Options, log *slog.Logger) *Executor {
	if opts.BridgePollInterval <= 0 {
		opts.BridgePollInterval = 5 * time.Second
	}
	if opts.BridgeWait <= 0 {
		opts.BridgeWait = 10 * time.Minute
	}
	return &Executor{
		chain:  chain,
		signer: signer,
		swaps:  swaps,
		bridge: bridge,
		opts:   opts,
		log:    log,
		now:    time.Now,
	}
}

// Execute runs the claimed action to completion. Quotes held past
// their validity window fail with a quote-expired error and are never
// refreshed here.
func (e *Executor) Execute(ctx context.Context, act *pending.Action) (Result, error) {
	switch act.Kind {
	case intent.KindTransfer:
		return e.executeTransfer(ctx, act.Transfer)
	case intent.KindSwap:
		return e.executeSwap(ctx, act)
	case intent.KindCrossChain:
		return e.executeCrossChain(ctx, act)
	default:
		return Result{}, clierr.New(clierr.CodeInternal, "unknown action kind")
	}
}

func (e *Executor) executeTransfer(ctx context.Context, t *intent.Transfer) (Result, error) {
	owner := e.signer.PublicKey()

	// The balance may have moved since prepare time.
	pre, err := e.chain.Balance(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	need := t.Lamports + baseFeeLamports
	if pre < need {
		return Result{}, clierr.New(clierr.CodeInsufficientBalance, "balance changed since the transfer was prepared")
	}

	recipient, err := solana.PublicKeyFromBase58(t.Recipient)
	if err != nil {
		return Result{}, clierr.Wrap(clierr.CodeValidation, "invalid recipient address", err)
	}

	tx, err := e.chain.BuildTransfer(ctx, owner, recipient, t.Lamports)
	if err != nil {
		return Result{}, err
	}
	if err := e.signer.Sign(tx); err != nil {
		return Result{}, err
	}

	sig, err := e.submit(ctx, tx)
	if err != nil {
		return Result{}, err
	}
	if err := e.chain.AwaitSettlement(ctx, sig); err != nil {
		return Result{Signature: sig.String()}, err
	}

	res := Result{Signature: sig.String(), FeeLamports: baseFeeLamports}
	if post, err := e.chain.Balance(ctx, owner); err == nil && pre >= post+t.Lamports {
		res.FeeLamports = pre - post - t.Lamports
	}
	e.log.Info("transfer settled", "signature", res.Signature, "lamports", t.Lamports, "fee", res.FeeLamports)
	return res, nil
}

func (e *Executor) executeSwap(ctx context.Context, act *pending.Action) (Result, error) {
	q := act.Quote
	if q == nil {
		return Result{}, clierr.New(clierr.CodeInternal, "swap action has no quote")
	}
	if q.Expired(e.now()) {
		return Result{}, clierr.New(clierr.CodeQuoteExpired, "the held quote has expired; ask for a fresh one")
	}

	payload, err := e.swaps.BuildSwap(ctx, *q, e.signer.PublicKey().String())
	if err != nil {
		return Result{}, err
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Result{}, clierr.Wrap(clierr.CodeExecution, "decode swap transaction", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return Result{}, clierr.Wrap(clierr.CodeExecution, "deserialize swap transaction", err)
	}
	if err := e.signer.Sign(tx); err != nil {
		return Result{}, err
	}

	sig, err := e.submit(ctx, tx)
	if err != nil {
		return Result{}, err
	}
	if err := e.chain.AwaitSettlement(ctx, sig); err != nil {
		return Result{Signature: sig.String()}, err
	}
	e.log.Info("swap settled", "signature", sig.String(), "expected_out", q.ExpectedOutBaseUnits)
	return Result{
		Signature:    sig.String(),
		FeeLamports:  baseFeeLamports,
		OutBaseUnits: q.ExpectedOutBaseUnits,
	}, nil
}

func (e *Executor) executeCrossChain(ctx context.Context, act *pending.Action) (Result, error) {
	q := act.Quote
	if q == nil {
		return Result{}, clierr.New(clierr.CodeInternal, "cross-chain action has no quote")
	}
	if q.Expired(e.now()) {
		return Result{}, clierr.New(clierr.CodeQuoteExpired, "the held quote has expired; ask for a fresh one")
	}
	deposit, err := solana.PublicKeyFromBase58(q.DepositAddress)
	if err != nil {
		return Result{}, clierr.Wrap(clierr.CodeExecution, "bridge returned an unusable deposit address", err)
	}

	owner := e.signer.PublicKey()
	cc := act.CrossChain
	tx, err := e.chain.BuildTransfer(ctx, owner, deposit, cc.AmountBaseUnits)
	if err != nil {
		return Result{}, err
	}
	if err := e.signer.Sign(tx); err != nil {
		return Result{}, err
	}
	sig, err := e.submit(ctx, tx)
	if err != nil {
		return Result{}, err
	}
	if err := e.chain.AwaitSettlement(ctx, sig); err != nil {
		return Result{Signature: sig.String()}, err
	}
	e.log.Info("bridge deposit settled", "signature", sig.String(), "deposit_address", q.DepositAddress)

	status, err := e.awaitBridge(ctx, q.StatusRef)
	if err != nil {
		return Result{Signature: sig.String()}, err
	}
	return Result{
		Signature:    sig.String(),
		FeeLamports:  baseFeeLamports,
		OutBaseUnits: status.ActualOut,
		DestTxHash:   status.DestTxHash,
	}, nil
}

func (e *Executor) submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var sig solana.Signature
	err := e.opts.SubmitRetry.Do(ctx, func() error {
		var err error
		sig, err = e.chain.Submit(ctx, tx)
		return err
	})
	return sig, err
}

func (e *Executor) awaitBridge(ctx context.Context, statusRef string) (relay.SettlementStatus, error) {
	deadline := time.NewTimer(e.opts.BridgeWait)
	defer deadline.Stop()
	ticker := time.NewTicker(e.opts.BridgePollInterval)
	defer ticker.Stop()

	for {
		status, err := e.bridge.Status(ctx, statusRef)
		if err != nil {
			e.log.Debug("bridge status poll failed", "error", err)
		} else if status.Settled() {
			switch status.State {
			case "SUCCESS":
				return status, nil
			case "REFUNDED":
				return status, clierr.New(clierr.CodeExecution, "bridge refunded the deposit: "+status.FailureCause)
			default:
				return status, clierr.New(clierr.CodeExecution, "bridge reported failure: "+status.FailureCause)
			}
		}

		select {
		case <-ctx.Done():
			return relay.SettlementStatus{}, clierr.Wrap(clierr.CodeNetwork, "bridge wait interrupted", ctx.Err())
		case <-deadline.C:
			return relay.SettlementStatus{}, clierr.New(clierr.CodeNetwork, "bridge did not settle within the wait budget")
		case <-ticker.C:
		}
	}
}
