package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 10 {
		t.Errorf("expected max_conns 10, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Approval.Timeout != 5*time.Minute {
		t.Errorf("expected approval timeout 5m, got %v", cfg.Approval.Timeout)
	}
	if cfg.Agents.ReportQuota != 1 {
		t.Errorf("expected report quota 1, got %d", cfg.Agents.ReportQuota)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
approval:
  timeout: 30s
agents:
  coordinator_max_steps: 10
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Approval.Timeout != 30*time.Second {
		t.Errorf("expected approval timeout 30s, got %v", cfg.Approval.Timeout)
	}
	if cfg.Agents.CoordinatorMaxSteps != 10 {
		t.Errorf("expected coordinator_max_steps 10, got %d", cfg.Agents.CoordinatorMaxSteps)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadYAMLMissingFile(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("DOCLENS_PORT", "7070")
	t.Setenv("DOCLENS_APPROVAL_TIMEOUT", "90s")
	t.Setenv("DOCLENS_REPORT_QUOTA", "3")
	t.Setenv("DOCLENS_MCP_ENABLED", "true")

	cfg := Defaults()
	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Approval.Timeout != 90*time.Second {
		t.Errorf("expected approval timeout 90s, got %v", cfg.Approval.Timeout)
	}
	if cfg.Agents.ReportQuota != 3 {
		t.Errorf("expected report quota 3, got %d", cfg.Agents.ReportQuota)
	}
	if !cfg.MCP.Enabled {
		t.Error("expected mcp enabled")
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}

	bad := Defaults()
	bad.Approval.Timeout = 0
	if err := validate(&bad); err == nil {
		t.Error("expected error for zero approval timeout")
	}

	bad = Defaults()
	bad.Agents.MaxParallel = 0
	if err := validate(&bad); err == nil {
		t.Error("expected error for zero max_parallel")
	}
}
