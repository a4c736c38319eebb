// Package app wires configuration, providers, custody, and the engine
// into the solflow command tree.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"solflow/internal/chain"
	"solflow/internal/config"
	"solflow/internal/custody"
	"solflow/internal/engine"
	clierr "solflow/internal/errors"
	"solflow/internal/executor"
	"solflow/internal/httpx"
	"solflow/internal/logging"
	"solflow/internal/pending"
	"solflow/internal/quote"
	"solflow/internal/quote/jupiter"
	"solflow/internal/quote/relay"
	"solflow/internal/resilience"
	"solflow/internal/safety"
	"solflow/internal/version"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{stdout: stdout, stderr: stderr}
}

type runtimeState struct {
	runner   *Runner
	flags    config.GlobalFlags
	settings config.Settings
}

func (r *Runner) Run(args []string) int {
	_ = godotenv.Load()

	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		fmt.Fprintf(r.stderr, "error: %v\n", err)
		return clierr.ExitCode(err)
	}
	return 0
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Chat-driven Solana transaction workflow",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeValidation, "load configuration", err)
			}
			s.settings = settings
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	flags.BoolVar(&s.flags.JSON, "json", false, "JSON output")
	flags.BoolVar(&s.flags.Plain, "plain", false, "Plain text output")
	flags.StringVar(&s.flags.Timeout, "timeout", "", "Per-request timeout (e.g. 15s)")
	flags.StringVar(&s.flags.RPCURL, "rpc-url", "", "Solana RPC endpoint")

	cmd.AddCommand(s.newChatCommand())
	cmd.AddCommand(s.newSendCommand())
	cmd.AddCommand(s.newHistoryCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.Long())
			return nil
		},
	}
}

// session bundles everything a live chat or one-shot message needs.
type session struct {
	engine  *engine.Engine
	history *executor.History
	cancel  context.CancelFunc
}

func (s *session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.history != nil {
		_ = s.history.Close()
	}
}

// buildSession assembles the full prepare/confirm/execute pipeline from
// settings. It needs a funded signer key in the environment.
func (s *runtimeState) buildSession() (*session, error) {
	cfg := s.settings
	log := logging.New(cfg.LogLevel, cfg.LogFormat, s.runner.stderr)

	signer, err := custody.FromEnv(cfg.SignerKeyEnv)
	if err != nil {
		return nil, err
	}

	httpClient := httpx.New(cfg.Timeout)
	jup := jupiter.New(httpClient, cfg.JupiterAPIKey, cfg.QuoteTTL)
	if cfg.JupiterBaseURL != "" {
		jup.SetBaseURL(cfg.JupiterBaseURL)
	}
	bridge := relay.New(httpClient, cfg.BridgeBaseURL, cfg.BridgeAPIKey)

	retry := resilience.NewRetryPolicy(cfg.Retries, cfg.RetryBackoff)
	var swapQuotes quote.Provider = quote.NewResilient(jup, retry,
		resilience.NewCircuitBreaker(cfg.BreakerFailures, cfg.BreakerCooldown), log)
	var bridgeQuotes quote.Provider = quote.NewResilient(bridge, retry,
		resilience.NewCircuitBreaker(cfg.BreakerFailures, cfg.BreakerCooldown), log)

	adapter := chain.New(cfg.RPCURL, cfg.Commitment, cfg.SettlementWait, log)
	exec := executor.New(adapter, signer, jup, bridge, executor.Options{
		SubmitRetry: retry,
	}, log)

	history, err := executor.OpenHistory(cfg.HistoryStorePath, cfg.HistoryLockPath)
	if err != nil {
		return nil, err
	}

	store := pending.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	store.StartSweeper(ctx, cfg.SweepInterval)

	validator := safety.New(safety.Limits{
		MaxTransferUnits:   cfg.MaxTransferUnits,
		MaxSwapUnits:       cfg.MaxSwapUnits,
		MaxCrossChainUnits: cfg.MaxCrossChainUnits,
		MinSlippageBps:     cfg.MinSlippageBps,
		MaxSlippageBps:     cfg.MaxSlippageBps,
	})

	eng := engine.New(store, validator, swapQuotes, bridgeQuotes, exec, adapter, jup, history,
		signer.PublicKey(),
		engine.Config{
			PendingTTL:         cfg.PendingTTL,
			DefaultSlippageBps: cfg.DefaultSlippageBps,
		}, log)

	return &session{engine: eng, history: history, cancel: cancel}, nil
}

func (s *runtimeState) outputMode() string {
	return s.settings.OutputMode
}

func messageTimeout(cfg config.Settings) time.Duration {
	// One message may cover quote, submit, and settlement waits.
	return cfg.Timeout + cfg.SettlementWait + 10*time.Minute
}
