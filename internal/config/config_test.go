package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	settings, err := Load(GlobalFlags{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.MaxTransferUnits != 1 || settings.MaxSwapUnits != 10 || settings.MaxCrossChainUnits != 100 {
		t.Fatalf("unexpected ceilings: %+v", settings)
	}
	if settings.BreakerFailures != 5 || settings.BreakerCooldown != time.Minute {
		t.Fatalf("unexpected breaker defaults: %+v", settings)
	}
	if settings.PendingTTL != 2*time.Minute {
		t.Fatalf("unexpected pending ttl: %v", settings.PendingTTL)
	}
}

func TestLoadPrecedenceFlagsOverEnvOverFile(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	file := "output: json\nsolana:\n  rpc_url: https://file.example\nlimits:\n  max_transfer: 3\n"
	if err := os.WriteFile(configPath, []byte(file), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SOLFLOW_OUTPUT", "json")
	t.Setenv("SOLFLOW_RPC_URL", "https://env.example")

	flags := GlobalFlags{ConfigPath: configPath, Plain: true, RPCURL: "https://flag.example"}
	settings, err := Load(flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.OutputMode != "plain" {
		t.Fatalf("expected flag to win, got output=%s", settings.OutputMode)
	}
	if settings.RPCURL != "https://flag.example" {
		t.Fatalf("expected flag rpc url, got %s", settings.RPCURL)
	}
	if settings.MaxTransferUnits != 3 {
		t.Fatalf("expected ceiling from file, got %g", settings.MaxTransferUnits)
	}
}

func TestLoadRejectsInconsistentSlippageBounds(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	file := "limits:\n  min_slippage_bps: 100\n  max_slippage_bps: 50\n"
	if err := os.WriteFile(configPath, []byte(file), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(GlobalFlags{ConfigPath: configPath}); err == nil {
		t.Fatal("expected error for min > max slippage")
	}
}

func TestLoadRejectsDefaultSlippageOutsideBounds(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	file := "limits:\n  default_slippage_bps: 1000\n"
	if err := os.WriteFile(configPath, []byte(file), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(GlobalFlags{ConfigPath: configPath}); err == nil {
		t.Fatal("expected error for default slippage above max")
	}
}

func TestLoadMutuallyExclusiveOutputFlags(t *testing.T) {
	_, err := Load(GlobalFlags{JSON: true, Plain: true})
	if err == nil {
		t.Fatal("expected error with --json and --plain")
	}
}

func TestLoadDurationsFromFile(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	file := "pending:\n  ttl: 5m\n  quote_ttl: 45s\nresilience:\n  breaker_cooldown: 30s\n"
	if err := os.WriteFile(configPath, []byte(file), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	settings, err := Load(GlobalFlags{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.PendingTTL != 5*time.Minute || settings.QuoteTTL != 45*time.Second {
		t.Fatalf("unexpected pending durations: %+v", settings)
	}
	if settings.BreakerCooldown != 30*time.Second {
		t.Fatalf("unexpected cooldown: %v", settings.BreakerCooldown)
	}
}
