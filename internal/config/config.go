package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	Plain      bool
	Timeout    string
	RPCURL     string
}

type Settings struct {
	OutputMode string
	LogLevel   string
	LogFormat  string

	RPCURL       string
	Commitment   string
	SignerKeyEnv string

	JupiterBaseURL string
	JupiterAPIKey  string
	BridgeBaseURL  string
	BridgeAPIKey   string

	MaxTransferUnits   float64
	MaxSwapUnits       float64
	MaxCrossChainUnits float64
	MinSlippageBps     int
	MaxSlippageBps     int
	DefaultSlippageBps int

	PendingTTL    time.Duration
	SweepInterval time.Duration
	QuoteTTL      time.Duration

	Retries         int
	RetryBackoff    time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration

	Timeout          time.Duration
	SettlementWait   time.Duration
	HistoryStorePath string
	HistoryLockPath  string
}

type fileConfig struct {
	Output string `yaml:"output"`
	Log    struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Timeout string `yaml:"timeout"`
	Solana  struct {
		RPCURL       string `yaml:"rpc_url"`
		Commitment   string `yaml:"commitment"`
		SignerKeyEnv string `yaml:"signer_key_env"`
	} `yaml:"solana"`
	Providers struct {
		Jupiter struct {
			BaseURL   string `yaml:"base_url"`
			APIKey    string `yaml:"api_key"`
			APIKeyEnv string `yaml:"api_key_env"`
		} `yaml:"jupiter"`
		Bridge struct {
			BaseURL   string `yaml:"base_url"`
			APIKey    string `yaml:"api_key"`
			APIKeyEnv string `yaml:"api_key_env"`
		} `yaml:"bridge"`
	} `yaml:"providers"`
	Limits struct {
		MaxTransfer   *float64 `yaml:"max_transfer"`
		MaxSwap       *float64 `yaml:"max_swap"`
		MaxCrossChain *float64 `yaml:"max_cross_chain"`
		MinSlippage   *int     `yaml:"min_slippage_bps"`
		MaxSlippage   *int     `yaml:"max_slippage_bps"`
		Slippage      *int     `yaml:"default_slippage_bps"`
	} `yaml:"limits"`
	Pending struct {
		TTL           string `yaml:"ttl"`
		SweepInterval string `yaml:"sweep_interval"`
		QuoteTTL      string `yaml:"quote_ttl"`
	} `yaml:"pending"`
	Resilience struct {
		Retries         *int   `yaml:"retries"`
		RetryBackoff    string `yaml:"retry_backoff"`
		BreakerFailures *int   `yaml:"breaker_failures"`
		BreakerCooldown string `yaml:"breaker_cooldown"`
	} `yaml:"resilience"`
	Execution struct {
		SettlementWait string `yaml:"settlement_wait"`
		HistoryPath    string `yaml:"history_path"`
		HistoryLock    string `yaml:"history_lock_path"`
	} `yaml:"execution"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.Timeout <= 0 {
		settings.Timeout = 15 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.MinSlippageBps < 0 || settings.MaxSlippageBps < settings.MinSlippageBps {
		return Settings{}, fmt.Errorf("slippage bounds [%d, %d] are inconsistent", settings.MinSlippageBps, settings.MaxSlippageBps)
	}
	if settings.DefaultSlippageBps < settings.MinSlippageBps || settings.DefaultSlippageBps > settings.MaxSlippageBps {
		return Settings{}, fmt.Errorf("default slippage %d bps is outside [%d, %d]", settings.DefaultSlippageBps, settings.MinSlippageBps, settings.MaxSlippageBps)
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	historyPath, lockPath, err := defaultHistoryPaths()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:         "plain",
		LogLevel:           "info",
		LogFormat:          "text",
		RPCURL:             "https://api.mainnet-beta.solana.com",
		Commitment:         "confirmed",
		SignerKeyEnv:       "SOLFLOW_PRIVATE_KEY",
		BridgeBaseURL:      "https://api.relay.exchange/v1",
		MaxTransferUnits:   1,
		MaxSwapUnits:       10,
		MaxCrossChainUnits: 100,
		MinSlippageBps:     10,
		MaxSlippageBps:     500,
		DefaultSlippageBps: 50,
		PendingTTL:         2 * time.Minute,
		SweepInterval:      30 * time.Second,
		QuoteTTL:           time.Minute,
		Retries:            2,
		RetryBackoff:       500 * time.Millisecond,
		BreakerFailures:    5,
		BreakerCooldown:    time.Minute,
		Timeout:            15 * time.Second,
		SettlementWait:     90 * time.Second,
		HistoryStorePath:   historyPath,
		HistoryLockPath:    lockPath,
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "solflow", "config.yaml"), nil
}

func defaultHistoryPaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "solflow")
	return filepath.Join(dir, "history.db"), filepath.Join(dir, "history.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Log.Level != "" {
		settings.LogLevel = strings.ToLower(cfg.Log.Level)
	}
	if cfg.Log.Format != "" {
		settings.LogFormat = strings.ToLower(cfg.Log.Format)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Solana.RPCURL != "" {
		settings.RPCURL = cfg.Solana.RPCURL
	}
	if cfg.Solana.Commitment != "" {
		settings.Commitment = strings.ToLower(cfg.Solana.Commitment)
	}
	if cfg.Solana.SignerKeyEnv != "" {
		settings.SignerKeyEnv = cfg.Solana.SignerKeyEnv
	}
	if cfg.Providers.Jupiter.BaseURL != "" {
		settings.JupiterBaseURL = cfg.Providers.Jupiter.BaseURL
	}
	if cfg.Providers.Jupiter.APIKey != "" {
		settings.JupiterAPIKey = cfg.Providers.Jupiter.APIKey
	}
	if cfg.Providers.Jupiter.APIKeyEnv != "" {
		settings.JupiterAPIKey = os.Getenv(cfg.Providers.Jupiter.APIKeyEnv)
	}
	if cfg.Providers.Bridge.BaseURL != "" {
		settings.BridgeBaseURL = cfg.Providers.Bridge.BaseURL
	}
	if cfg.Providers.Bridge.APIKey != "" {
		settings.BridgeAPIKey = cfg.Providers.Bridge.APIKey
	}
	if cfg.Providers.Bridge.APIKeyEnv != "" {
		settings.BridgeAPIKey = os.Getenv(cfg.Providers.Bridge.APIKeyEnv)
	}
	if cfg.Limits.MaxTransfer != nil {
		settings.MaxTransferUnits = *cfg.Limits.MaxTransfer
	}
	if cfg.Limits.MaxSwap != nil {
		settings.MaxSwapUnits = *cfg.Limits.MaxSwap
	}
	if cfg.Limits.MaxCrossChain != nil {
		settings.MaxCrossChainUnits = *cfg.Limits.MaxCrossChain
	}
	if cfg.Limits.MinSlippage != nil {
		settings.MinSlippageBps = *cfg.Limits.MinSlippage
	}
	if cfg.Limits.MaxSlippage != nil {
		settings.MaxSlippageBps = *cfg.Limits.MaxSlippage
	}
	if cfg.Limits.Slippage != nil {
		settings.DefaultSlippageBps = *cfg.Limits.Slippage
	}
	if cfg.Pending.TTL != "" {
		d, err := time.ParseDuration(cfg.Pending.TTL)
		if err != nil {
			return fmt.Errorf("config pending.ttl: %w", err)
		}
		settings.PendingTTL = d
	}
	if cfg.Pending.SweepInterval != "" {
		d, err := time.ParseDuration(cfg.Pending.SweepInterval)
		if err != nil {
			return fmt.Errorf("config pending.sweep_interval: %w", err)
		}
		settings.SweepInterval = d
	}
	if cfg.Pending.QuoteTTL != "" {
		d, err := time.ParseDuration(cfg.Pending.QuoteTTL)
		if err != nil {
			return fmt.Errorf("config pending.quote_ttl: %w", err)
		}
		settings.QuoteTTL = d
	}
	if cfg.Resilience.Retries != nil {
		settings.Retries = *cfg.Resilience.Retries
	}
	if cfg.Resilience.RetryBackoff != "" {
		d, err := time.ParseDuration(cfg.Resilience.RetryBackoff)
		if err != nil {
			return fmt.Errorf("config resilience.retry_backoff: %w", err)
		}
		settings.RetryBackoff = d
	}
	if cfg.Resilience.BreakerFailures != nil {
		settings.BreakerFailures = *cfg.Resilience.BreakerFailures
	}
	if cfg.Resilience.BreakerCooldown != "" {
		d, err := time.ParseDuration(cfg.Resilience.BreakerCooldown)
		if err != nil {
			return fmt.Errorf("config resilience.breaker_cooldown: %w", err)
		}
		settings.BreakerCooldown = d
	}
	if cfg.Execution.SettlementWait != "" {
		d, err := time.ParseDuration(cfg.Execution.SettlementWait)
		if err != nil {
			return fmt.Errorf("config execution.settlement_wait: %w", err)
		}
		settings.SettlementWait = d
	}
	if cfg.Execution.HistoryPath != "" {
		settings.HistoryStorePath = cfg.Execution.HistoryPath
	}
	if cfg.Execution.HistoryLock != "" {
		settings.HistoryLockPath = cfg.Execution.HistoryLock
	}

	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("SOLFLOW_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("SOLFLOW_LOG_LEVEL"); v != "" {
		settings.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SOLFLOW_LOG_FORMAT"); v != "" {
		settings.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("SOLFLOW_RPC_URL"); v != "" {
		settings.RPCURL = v
	}
	if v := os.Getenv("SOLFLOW_COMMITMENT"); v != "" {
		settings.Commitment = strings.ToLower(v)
	}
	if v := os.Getenv("SOLFLOW_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("SOLFLOW_JUPITER_API_KEY"); v != "" {
		settings.JupiterAPIKey = v
	}
	if v := os.Getenv("SOLFLOW_BRIDGE_API_KEY"); v != "" {
		settings.BridgeAPIKey = v
	}
	if v := os.Getenv("SOLFLOW_BRIDGE_BASE_URL"); v != "" {
		settings.BridgeBaseURL = v
	}
	if v := os.Getenv("SOLFLOW_PENDING_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.PendingTTL = d
		}
	}
	if v := os.Getenv("SOLFLOW_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("SOLFLOW_HISTORY_PATH"); v != "" {
		settings.HistoryStorePath = v
	}
	if v := os.Getenv("SOLFLOW_HISTORY_LOCK_PATH"); v != "" {
		settings.HistoryLockPath = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if flags.RPCURL != "" {
		settings.RPCURL = flags.RPCURL
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}
	return nil
}
