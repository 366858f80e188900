// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < .env/env < flags
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tzl-ops/flightarchive/pkg/checkpoint"
	apperrors "github.com/tzl-ops/flightarchive/pkg/errors"
	"github.com/tzl-ops/flightarchive/pkg/ingest/sources"
	"github.com/tzl-ops/flightarchive/pkg/logging"
	"github.com/tzl-ops/flightarchive/pkg/storage/s3"
	"github.com/tzl-ops/flightarchive/pkg/telemetry"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLIGHTARCHIVE_"

// Config holds all flightarchive configuration.
type Config struct {
	Version int `yaml:"version"`

	Archive    ArchiveConfig    `yaml:"archive"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Output     OutputConfig     `yaml:"output"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	S3         s3.Config        `yaml:"s3"`
	Telemetry  telemetry.Config `yaml:"telemetry"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        logging.Config   `yaml:"log"`
}

// ArchiveConfig locates the workbook archive.
type ArchiveConfig struct {
	Root          string   `yaml:"root"`
	ReportDirs    []string `yaml:"report_dirs"`
	ExcludeMarker string   `yaml:"exclude_marker"`
}

// ExtractionConfig controls the extraction pipeline.
type ExtractionConfig struct {
	Workers     int    `yaml:"workers"` // 0 = auto
	HomeAirport string `yaml:"home_airport"`
	RoundTrip   string `yaml:"round_trip"`  // outbound | split
	OnFallback  string `yaml:"on_fallback"` // process | skip
	MaxErrors   int    `yaml:"max_errors"`
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	Path         string `yaml:"path"`
	Pretty       bool   `yaml:"pretty"`
	Reproducible bool   `yaml:"reproducible"`
	Parquet      string `yaml:"parquet"`
	CSV          string `yaml:"csv"`
	Quarantine   string `yaml:"quarantine"`
	Compression  string `yaml:"compression"` // snappy | zstd | gzip | none
	// Upload is an s3://bucket/prefix/ destination for every written file.
	Upload string `yaml:"upload"`
}

// CheckpointConfig selects the month checkpoint backend.
type CheckpointConfig struct {
	Backend string `yaml:"backend"` // none | file | redis
	Dir     string `yaml:"dir"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"-"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	TTL           time.Duration `yaml:"ttl"`
}

// MetricsConfig controls Prometheus metrics export.
type MetricsConfig struct {
	// Textfile is written after each run for the node_exporter textfile collector.
	Textfile string `yaml:"textfile"`
	// Listen serves /metrics while watching (e.g., ":9108").
	Listen string `yaml:"listen"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Version: 1,
		Archive: ArchiveConfig{
			ReportDirs:    append([]string(nil), sources.DefaultReportDirs...),
			ExcludeMarker: sources.DefaultExcludeMarker,
		},
		Extraction: ExtractionConfig{
			HomeAirport: "TZL",
			RoundTrip:   "outbound",
			OnFallback:  "process",
			MaxErrors:   100,
		},
		Output: OutputConfig{
			Path:         "flights.json",
			Pretty:       true,
			Reproducible: true,
			Compression:  "snappy",
		},
		Checkpoint: CheckpointConfig{
			Backend:     "none",
			Dir:         filepath.Join(homeDir, ".flightarchive", "checkpoints"),
			RedisPrefix: checkpoint.DefaultRedisConfig("").Prefix,
			TTL:         checkpoint.DefaultRedisConfig("").TTL,
		},
		S3:        s3.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
		Log:       logging.DefaultConfig(),
	}
}

// Validate checks enumerated values. Failures carry code E501.
func (c *Config) Validate() error {
	var errs apperrors.MultiError

	check := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if strings.EqualFold(value, a) {
				return
			}
		}
		errs.Add(apperrors.New(apperrors.CodeInvalidConfig,
			fmt.Sprintf("%s must be one of %s", field, strings.Join(allowed, ", "))).
			WithContext("value", value))
	}

	check("extraction.round_trip", c.Extraction.RoundTrip, "outbound", "split")
	check("extraction.on_fallback", c.Extraction.OnFallback, "process", "skip")
	check("output.compression", c.Output.Compression, "snappy", "zstd", "gzip", "none")
	check("checkpoint.backend", c.Checkpoint.Backend, "none", "file", "redis")
	check("log.format", c.Log.Format, "json", "console")

	if c.Extraction.Workers < 0 {
		errs.Add(apperrors.New(apperrors.CodeInvalidConfig, "extraction.workers must not be negative"))
	}
	if len(strings.TrimSpace(c.Extraction.HomeAirport)) != 3 {
		errs.Add(apperrors.New(apperrors.CodeInvalidConfig, "extraction.home_airport must be a 3-letter code").
			WithContext("value", c.Extraction.HomeAirport))
	}
	if strings.EqualFold(c.Checkpoint.Backend, "redis") && c.Checkpoint.RedisAddr == "" {
		errs.Add(apperrors.New(apperrors.CodeInvalidConfig, "checkpoint.redis_addr is required for the redis backend"))
	}
	if c.Output.Upload != "" && !s3.IsURL(c.Output.Upload) {
		errs.Add(apperrors.New(apperrors.CodeInvalidConfig, "output.upload must be an s3:// URL").
			WithContext("value", c.Output.Upload))
	}

	if !errs.HasErrors() {
		return nil
	}
	// The first error carries the code for the exit status.
	if len(errs.Errors) == 1 {
		return errs.Errors[0]
	}
	return apperrors.Wrap(&errs, apperrors.CodeInvalidConfig, "invalid configuration")
}

// OpenCheckpoint opens the configured checkpoint store. It returns nil for
// the none backend.
func (c CheckpointConfig) OpenCheckpoint(ctx context.Context) (checkpoint.Store, error) {
	switch strings.ToLower(c.Backend) {
	case "file":
		store, err := checkpoint.NewFileStore(c.Dir)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidConfig, "open checkpoint dir")
		}
		return store, nil
	case "redis":
		rc := checkpoint.DefaultRedisConfig(c.RedisAddr)
		rc.Password = c.RedisPassword
		rc.Database = c.RedisDB
		if c.RedisPrefix != "" {
			rc.Prefix = c.RedisPrefix
		}
		if c.TTL > 0 {
			rc.TTL = c.TTL
		}
		store, err := checkpoint.NewRedisStore(ctx, rc)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu      sync.RWMutex
	config  *Config
	paths   []string // Paths that were loaded
	search  []string
	envFile string
}

// NewManager creates a manager searching the standard config paths.
func NewManager() *Manager {
	return &Manager{config: Default(), search: DefaultPaths(), envFile: ".env"}
}

// NewManagerWithPaths creates a manager reading exactly the given config
// files (later overrides earlier) and env file ("" for none).
func NewManagerWithPaths(paths []string, envFile string) *Manager {
	return &Manager{config: Default(), search: paths, envFile: envFile}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range m.search {
		if err := m.loadFile(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return apperrors.Wrapf(err, apperrors.CodeInvalidConfig, "load %s", path)
		}
		m.paths = append(m.paths, path)
	}

	// godotenv never overrides variables already set in the environment.
	if m.envFile != "" {
		if err := godotenv.Load(m.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return apperrors.Wrapf(err, apperrors.CodeInvalidConfig, "load %s", m.envFile)
		}
	}
	return m.loadEnv()
}

// DefaultPaths returns the standard config file paths in priority order.
func DefaultPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/flightarchive/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".flightarchive", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".flightarchive.yaml"))
	}

	return paths
}

// loadFile decodes a config file over the current values. Keys absent from
// the file keep their value.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, m.config)
}

// loadEnv applies FLIGHTARCHIVE_* environment variables.
func (m *Manager) loadEnv() error {
	c := m.config

	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var bad []string
	setInt := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				bad = append(bad, EnvPrefix+name)
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				bad = append(bad, EnvPrefix+name)
				return
			}
			*dst = b
		}
	}

	setString("ROOT", &c.Archive.Root)
	setInt("WORKERS", &c.Extraction.Workers)
	setString("HOME_AIRPORT", &c.Extraction.HomeAirport)
	setString("ROUND_TRIP", &c.Extraction.RoundTrip)
	setString("ON_FALLBACK", &c.Extraction.OnFallback)
	setInt("MAX_ERRORS", &c.Extraction.MaxErrors)

	setString("OUTPUT", &c.Output.Path)
	setBool("PRETTY", &c.Output.Pretty)
	setBool("REPRODUCIBLE", &c.Output.Reproducible)
	setString("PARQUET", &c.Output.Parquet)
	setString("CSV", &c.Output.CSV)
	setString("QUARANTINE", &c.Output.Quarantine)
	setString("COMPRESSION", &c.Output.Compression)
	setString("UPLOAD", &c.Output.Upload)

	setString("CHECKPOINT", &c.Checkpoint.Backend)
	setString("CHECKPOINT_DIR", &c.Checkpoint.Dir)
	setString("REDIS_ADDR", &c.Checkpoint.RedisAddr)
	setString("REDIS_PASSWORD", &c.Checkpoint.RedisPassword)
	setInt("REDIS_DB", &c.Checkpoint.RedisDB)

	setString("S3_REGION", &c.S3.Region)
	setString("S3_ENDPOINT", &c.S3.Endpoint)
	setBool("S3_PATH_STYLE", &c.S3.UsePathStyle)
	setString("S3_ACCESS_KEY_ID", &c.S3.AccessKeyID)
	setString("S3_SECRET_ACCESS_KEY", &c.S3.SecretAccessKey)

	if v := os.Getenv(EnvPrefix + "OTEL_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}
	setBool("OTEL_ENABLED", &c.Telemetry.Enabled)

	setString("METRICS_TEXTFILE", &c.Metrics.Textfile)
	setString("METRICS_LISTEN", &c.Metrics.Listen)

	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)

	if len(bad) > 0 {
		return apperrors.New(apperrors.CodeInvalidConfig, "invalid environment values").
			WithContext("vars", strings.Join(bad, ","))
	}
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Marshal renders the current configuration as YAML.
func (m *Manager) Marshal() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return yaml.Marshal(m.config)
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".flightarchive")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0o644)
}
