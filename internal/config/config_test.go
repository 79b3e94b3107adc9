package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studio.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv(EnvDataDir, "/tmp/studio-test")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.HistoryDepth() != 20 {
		t.Errorf("HistoryDepth() = %d, want 20", cfg.HistoryDepth())
	}
	if cfg.DBPath() != filepath.Join("/tmp/studio-test", DBFilename) {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
	if cfg.CloudEnabled() {
		t.Error("CloudEnabled() should be false without URL and token")
	}
	if cfg.Payment().Provider != "stripe" {
		t.Errorf("Payment().Provider = %q, want stripe", cfg.Payment().Provider)
	}
	if got := cfg.PlanLimits(entitlement.PlanBasic); got != entitlement.DefaultLimits(entitlement.PlanBasic) {
		t.Errorf("PlanLimits(BASIC) = %+v", got)
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9001")
	t.Setenv(EnvHistoryDepth, "5")
	t.Setenv(EnvPixelsPerSecond, "120.5")
	t.Setenv(EnvCloudURL, "https://api.example.com")
	t.Setenv(EnvCloudToken, "secret")
	t.Setenv(EnvPaymentProvider, "PayPal")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9001 || cfg.HistoryDepth() != 5 || cfg.PixelsPerSecond() != 120.5 {
		t.Errorf("overrides not applied: port=%d depth=%d pps=%v", cfg.Port(), cfg.HistoryDepth(), cfg.PixelsPerSecond())
	}
	if !cfg.CloudEnabled() {
		t.Error("CloudEnabled() should be true")
	}
	if cfg.Payment().Provider != "paypal" {
		t.Errorf("Payment().Provider = %q, want paypal", cfg.Payment().Provider)
	}
}

func TestNew_InvalidEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric port", EnvPort, "abc"},
		{"port out of range", EnvPort, "70000"},
		{"zero history depth", EnvHistoryDepth, "0"},
		{"negative scale", EnvPixelsPerSecond, "-4"},
		{"unknown log format", EnvLogFormat, "xml"},
		{"unknown provider", EnvPaymentProvider, "bitcoin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := New(); err == nil {
				t.Errorf("New() with %s=%q should fail", tt.key, tt.value)
			}
		})
	}
}

func TestNew_FileOverlay(t *testing.T) {
	path := writeConfigFile(t, `
port = 8800
history_depth = 30

[payment]
provider = "paypal"
paypal_client_id = "client-123"

[plans.basic]
max_projects = 3
storage_gb = 2.0

[plans.pro]
max_resolution = "1080p"
`)
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvHistoryDepth, "8")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 8800 {
		t.Errorf("Port() = %d, want 8800 from file", cfg.Port())
	}
	if cfg.HistoryDepth() != 8 {
		t.Errorf("HistoryDepth() = %d, env should win over file", cfg.HistoryDepth())
	}
	pay := cfg.Payment()
	if pay.Provider != "paypal" || pay.PayPalClientID != "client-123" || pay.PayPalMode != DefaultPayPalMode {
		t.Errorf("Payment() = %+v", pay)
	}

	basic := cfg.PlanLimits(entitlement.PlanBasic)
	if basic.MaxProjects != 3 || basic.StorageBytes != 2<<30 {
		t.Errorf("BASIC limits = %+v", basic)
	}
	if !basic.Watermark {
		t.Error("unset fields should keep the built-in value")
	}
	if pro := cfg.PlanLimits(entitlement.PlanPro); pro.MaxResolution != export.Resolution1080p {
		t.Errorf("PRO max resolution = %q", pro.MaxResolution)
	}
}

func TestNew_FileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "port = = 1", "line 1"},
		{"unknown plan", "[plans.gold]\nmax_projects = 1", "unknown plan"},
		{"bad resolution", "[plans.pro]\nmax_resolution = \"8K\"", "max_resolution"},
		{"bad projects", "[plans.basic]\nmax_projects = -5", "max_projects"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigFile, writeConfigFile(t, tt.body))
			_, err := New()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("New() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestNew_MissingFile(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.toml"))
	if _, err := New(); err == nil {
		t.Error("New() should fail when the config file is missing")
	}
}
