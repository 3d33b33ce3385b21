package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"civsandbox/internal/sim"
)

const DefaultPath = "civsandbox.yaml"

type ProjectConfig struct {
	Project      string             `yaml:"project"`
	Version      int                `yaml:"version"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Defaults     DefaultsConfig     `yaml:"defaults"`
	Server       ServerConfig       `yaml:"server"`
	Archive      ArchiveConfig      `yaml:"archive"`
	Journal      JournalConfig      `yaml:"journal"`
	Export       ExportConfig       `yaml:"export"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type OrchestratorConfig struct {
	ProcessingDelay time.Duration `yaml:"processing_delay"`
	HistoryLimit    int           `yaml:"history_limit"`
}

// DefaultsConfig fills parameters a request leaves out.
type DefaultsConfig struct {
	Directive     string `yaml:"directive"`
	Horizon       string `yaml:"horizon"`
	StepCount     int    `yaml:"step_count"`
	AutonomyLevel int    `yaml:"autonomy_level"`
	RiskTolerance int    `yaml:"risk_tolerance"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ArchiveConfig selects the run archive by DSN scheme: sqlite://,
// postgres:// or mysql://. Empty disables archiving.
type ArchiveConfig struct {
	DSN string `yaml:"dsn"`
}

// JournalConfig enables the compressed run journal when Dir is set.
type JournalConfig struct {
	Dir string `yaml:"dir"`
}

type ExportConfig struct {
	Dir      string `yaml:"dir"`
	Compress bool   `yaml:"compress"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Default() *ProjectConfig {
	d := sim.DefaultParameters()
	return &ProjectConfig{
		Project: "civsandbox",
		Version: 1,
		Orchestrator: OrchestratorConfig{
			ProcessingDelay: 2 * time.Second,
			HistoryLimit:    10,
		},
		Defaults: DefaultsConfig{
			Directive:     d.Directive,
			Horizon:       string(d.Horizon),
			StepCount:     d.StepCount,
			AutonomyLevel: d.AutonomyLevel,
			RiskTolerance: d.RiskTolerance,
		},
		Server:  ServerConfig{Addr: ":8000"},
		Export:  ExportConfig{Dir: "exports"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path when it exists and falls back to Default otherwise.
// Environment overrides apply in both cases.
func Load(path string) (*ProjectConfig, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		applyEnvOverrides(cfg)
		if err := validateProjectConfig(cfg); err != nil {
			return nil, fmt.Errorf("loading default config: %w", err)
		}
		return cfg, nil
	}
	return LoadProjectConfig(path)
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	cfg.Archive.DSN = expandEnvVars(cfg.Archive.DSN)
	applyEnvOverrides(cfg)

	if err := validateProjectConfig(cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return cfg, nil
}

// Parameters returns the configured defaults as validated parameters.
func (c *ProjectConfig) Parameters() (sim.Parameters, error) {
	h, err := sim.ParseHorizon(c.Defaults.Horizon)
	if err != nil {
		return sim.Parameters{}, err
	}
	return sim.NewParameters(c.Defaults.Directive, h, c.Defaults.StepCount, c.Defaults.AutonomyLevel, c.Defaults.RiskTolerance)
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if cfg.Orchestrator.ProcessingDelay < 0 {
		return fmt.Errorf("processing_delay must be non-negative, got %v", cfg.Orchestrator.ProcessingDelay)
	}
	if cfg.Orchestrator.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be at least 1, got %d", cfg.Orchestrator.HistoryLimit)
	}
	if _, err := cfg.Parameters(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	if dsn := cfg.Archive.DSN; dsn != "" && !hasArchiveScheme(dsn) {
		return fmt.Errorf("archive dsn must start with sqlite://, postgres://, postgresql:// or mysql://")
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true, "warn": true, "error": true}
	if c := strings.ToLower(cfg.Logging.Level); c != "" && !validLevels[c] {
		return fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace)", cfg.Logging.Level)
	}

	return nil
}

func hasArchiveScheme(dsn string) bool {
	for _, prefix := range []string{"sqlite://", "postgres://", "postgresql://", "mysql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return true
		}
	}
	return false
}

func applyEnvOverrides(cfg *ProjectConfig) {
	if v := os.Getenv("CIVSANDBOX_PROCESSING_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Orchestrator.ProcessingDelay = d
		}
	}
	if v := os.Getenv("CIVSANDBOX_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Orchestrator.HistoryLimit = n
		}
	}
	if v := os.Getenv("CIVSANDBOX_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CIVSANDBOX_ARCHIVE_DSN"); v != "" {
		cfg.Archive.DSN = v
	}
	if v := os.Getenv("CIVSANDBOX_JOURNAL_DIR"); v != "" {
		cfg.Journal.Dir = v
	}
	if v := os.Getenv("CIVSANDBOX_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("CIVSANDBOX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} so credentials can stay out of the file.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}

// Template is the starting civsandbox.yaml written by init.
func Template(project string) string {
	return fmt.Sprintf(`project: %s
version: 1

orchestrator:
  processing_delay: 2s
  history_limit: 10

defaults:
  directive: Implement Universal Basic Compute
  horizon: MEDIUM
  step_count: 50
  autonomy_level: 50
  risk_tolerance: 20

server:
  addr: ":8000"

archive:
  dsn: sqlite://civsandbox.db

journal:
  dir: ./journal

export:
  dir: ./exports
  compress: false

logging:
  level: info
`, project)
}
