package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "doclens.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "DOCLENS_PORT")
	setString(&cfg.Server.CORSOrigin, "DOCLENS_CORS_ORIGIN")
	setString(&cfg.Server.APIKeyHash, "DOCLENS_API_KEY_HASH")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "DOCLENS_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "DOCLENS_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "DOCLENS_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "DOCLENS_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "DOCLENS_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Model.BaseURL, "DOCLENS_MODEL_BASE_URL")
	setString(&cfg.Model.APIKey, "DOCLENS_MODEL_API_KEY")
	setString(&cfg.Logging.Level, "DOCLENS_LOG_LEVEL")
	setString(&cfg.Logging.Service, "DOCLENS_LOG_SERVICE")
	setDuration(&cfg.Approval.Timeout, "DOCLENS_APPROVAL_TIMEOUT")
	setInt(&cfg.Approval.HistoryLimit, "DOCLENS_APPROVAL_HISTORY_LIMIT")
	setString(&cfg.Agents.CoordinatorModel, "DOCLENS_COORDINATOR_MODEL")
	setString(&cfg.Agents.WorkerModel, "DOCLENS_WORKER_MODEL")
	setInt(&cfg.Agents.CoordinatorMaxSteps, "DOCLENS_COORDINATOR_MAX_STEPS")
	setInt(&cfg.Agents.AnalysisMaxSteps, "DOCLENS_ANALYSIS_MAX_STEPS")
	setInt(&cfg.Agents.ReportMaxSteps, "DOCLENS_REPORT_MAX_STEPS")
	setDuration(&cfg.Agents.MaxDuration, "DOCLENS_AGENT_MAX_DURATION")
	setInt(&cfg.Agents.MaxParallel, "DOCLENS_AGENT_MAX_PARALLEL")
	setInt(&cfg.Agents.ReportQuota, "DOCLENS_REPORT_QUOTA")
	setDuration(&cfg.Agents.ToolTimeout, "DOCLENS_TOOL_TIMEOUT")
	setString(&cfg.Workspace.Root, "DOCLENS_WORKSPACE_ROOT")
	setString(&cfg.Search.GoogleAPIKey, "GOOGLE_API_KEY")
	setString(&cfg.Search.GoogleCSEID, "GOOGLE_CSE_ID")
	setInt(&cfg.Search.FetchMaxLen, "DOCLENS_FETCH_MAX_LEN")
	setInt64(&cfg.Cache.MaxSizeMB, "DOCLENS_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "DOCLENS_CACHE_TTL")
	setBool(&cfg.Cache.Shared, "DOCLENS_CACHE_SHARED")
	setBool(&cfg.MCP.Enabled, "DOCLENS_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "DOCLENS_MCP_ADDR")
	setBool(&cfg.Telemetry.Enabled, "DOCLENS_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Approval.Timeout <= 0 {
		return errors.New("approval.timeout must be positive")
	}
	if cfg.Agents.CoordinatorMaxSteps < 1 || cfg.Agents.AnalysisMaxSteps < 1 || cfg.Agents.ReportMaxSteps < 1 {
		return errors.New("agent step caps must be >= 1")
	}
	if cfg.Agents.MaxParallel < 1 {
		return errors.New("agents.max_parallel must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
