package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/luyandamncube/openclaw-mission-control/pkg/logging"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.PageSize != 50 {
		t.Errorf("PageSize = %d", cfg.PageSize)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("MC_API_BASE_URL", "https://mc.example.com")
	t.Setenv("MC_REDIS_ADDR", "redis:6379")
	t.Setenv("MC_CACHE_TTL", "90s")
	t.Setenv("MC_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIBaseURL != "https://mc.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if got := cfg.Logging().Level; got != logging.LevelDebug {
		t.Errorf("Logging().Level = %q", got)
	}
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	content := "MC_API_TOKEN=from-file\nMC_PAGE_SIZE=25\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MC_PAGE_SIZE", "10")
	// Register cleanup for the variable the file sets.
	t.Setenv("MC_API_TOKEN", "")
	os.Unsetenv("MC_API_TOKEN")

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIToken != "from-file" {
		t.Errorf("APIToken = %q, want value from .env", cfg.APIToken)
	}
	if cfg.PageSize != 10 {
		t.Errorf("PageSize = %d, environment should win over .env", cfg.PageSize)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"bad url", "MC_API_BASE_URL", "localhost:8000", "API_BASE_URL"},
		{"bad page size", "MC_PAGE_SIZE", "0", "PAGE_SIZE"},
		{"bad level", "MC_LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"not a duration", "MC_CACHE_TTL", "soon", "CACHE_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %s", err, tt.want)
			}
		})
	}
}
