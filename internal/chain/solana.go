// Package chain is the submission and settlement boundary for Solana.
// All RPC calls and all provider error text interpretation live here;
// the rest of the engine sees taxonomy errors only.
package chain

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	clierr "solflow/internal/errors"
)

// BaseFeeLamports is the flat per-signature fee charged by the network.
const BaseFeeLamports = 5000

const settlePollInterval = 2 * time.Second

// Adapter wraps a Solana RPC endpoint.
type Adapter struct {
	client     *rpc.Client
	commitment rpc.CommitmentType
	settleWait time.Duration
	log        *slog.Logger
}

func New(rpcURL, commitment string, settleWait time.Duration, log *slog.Logger) *Adapter {
	return &Adapter{
		client:     rpc.New(rpcURL),
		commitment: commitmentFrom(commitment),
		settleWait: settleWait,
		log:        log,
	}
}

func commitmentFrom(name string) rpc.CommitmentType {
	switch strings.ToLower(name) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}

// Balance returns the wallet's lamport balance.
func (a *Adapter) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	out, err := a.client.GetBalance(ctx, owner, a.commitment)
	if err != nil {
		return 0, classify("get balance", err)
	}
	return out.Value, nil
}

// TokenBalance returns the wallet's balance of an SPL token in base
// units. A missing token account reads as zero.
func (a *Adapter) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	account, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeExecution, "derive token account", err)
	}
	out, err := a.client.GetTokenAccountBalance(ctx, account, a.commitment)
	if err != nil {
		if strings.Contains(err.Error(), "could not find account") || strings.Contains(err.Error(), "not found") {
			return 0, nil
		}
		return 0, classify("get token balance", err)
	}
	var amount uint64
	for _, c := range out.Value.Amount {
		if c < '0' || c > '9' {
			return 0, clierr.New(clierr.CodeExecution, "malformed token balance from rpc")
		}
		amount = amount*10 + uint64(c-'0')
	}
	return amount, nil
}

// BuildTransfer assembles an unsigned native transfer with a fresh
// blockhash.
func (a *Adapter) BuildTransfer(ctx context.Context, from, to solana.PublicKey, lamports uint64) (*solana.Transaction, error) {
	recent, err := a.client.GetLatestBlockhash(ctx, a.commitment)
	if err != nil {
		return nil, classify("get blockhash", err)
	}
	ix := system.NewTransferInstruction(lamports, from, to).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recent.Value.Blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeExecution, "build transfer", err)
	}
	return tx, nil
}

// Submit broadcasts a signed transaction.
func (a *Adapter) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := a.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: a.commitment,
	})
	if err != nil {
		return solana.Signature{}, classify("send transaction", err)
	}
	a.log.Debug("transaction submitted", "signature", sig.String())
	return sig, nil
}

// AwaitSettlement polls signature status until the transaction reaches
// the configured commitment, fails on-chain, or the wait budget runs
// out.
func (a *Adapter) AwaitSettlement(ctx context.Context, sig solana.Signature) error {
	deadline := time.NewTimer(a.settleWait)
	defer deadline.Stop()
	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()

	for {
		out, err := a.client.GetSignatureStatuses(ctx, false, sig)
		if err == nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return clierr.New(clierr.CodeExecution, "transaction failed on chain")
			}
			if settledAt(status.ConfirmationStatus, a.commitment) {
				return nil
			}
		} else if err != nil {
			a.log.Debug("status poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return clierr.Wrap(clierr.CodeNetwork, "settlement wait interrupted", ctx.Err())
		case <-deadline.C:
			return clierr.New(clierr.CodeNetwork, "transaction not settled within the wait budget")
		case <-ticker.C:
		}
	}
}

func settledAt(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case "processed":
			return 1
		case "confirmed":
			return 2
		case "finalized":
			return 3
		default:
			return 0
		}
	}
	return rank(string(status)) >= rank(string(want))
}

// classify maps RPC error text onto the taxonomy. Substring checks are
// confined to this function.
func classify(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"), strings.Contains(msg, "insufficient lamports"):
		return clierr.Wrap(clierr.CodeInsufficientBalance, op+": insufficient funds", err)
	case strings.Contains(msg, "blockhash not found"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "node is behind"):
		return clierr.Wrap(clierr.CodeNetwork, op+" failed", err)
	default:
		return clierr.Wrap(clierr.CodeExecution, op+" failed", err)
	}
}
