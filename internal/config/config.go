package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultSeedsPerReplicate = 25
	DefaultHTTPPort          = 8080
	DefaultBroadcastInterval = 5 * time.Second
	DefaultOutputDir         = "."
	DefaultChartReplicates   = 6
	DefaultAuthHeader        = "x-api-key"
	DefaultPushBufferSize    = 64
)

// Config is the top-level configuration for both binaries.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Server   ServerConfig   `yaml:"server"`
}

// AnalysisConfig holds the batch-analysis settings read by the CLI and by
// the server's re-analysis loop.
type AnalysisConfig struct {
	// SeedsPerReplicate is the seeds sown per replicate, the denominator of
	// the germinability percentage.
	SeedsPerReplicate int `yaml:"seeds_per_replicate"`

	// DayColumn optionally pins the day-axis column by header name or "#N"
	// 1-based index. Empty means header sniffing.
	DayColumn string `yaml:"day_column"`

	// ReplicateColumns optionally pins the replicate columns. Empty means
	// header sniffing.
	ReplicateColumns []string `yaml:"replicate_columns"`

	// OutputDir is where reports, curve datasets and charts are written.
	OutputDir string `yaml:"output_dir"`

	// Workers caps the analysis worker pool. 0 means one per CPU.
	Workers int `yaml:"workers"`

	// Charts toggles PNG chart rendering.
	Charts bool `yaml:"charts"`

	// ChartReplicates caps how many replicate curves are drawn per chart.
	// Data tables always carry every replicate.
	ChartReplicates int `yaml:"chart_replicates"`

	// Formats selects the tabular outputs: csv, xlsx, or both.
	Formats []string `yaml:"formats"`

	// Push configures optional result delivery to a running germitrackd.
	Push PushConfig `yaml:"push"`
}

// PushConfig points the CLI at a germitrackd ingest endpoint.
type PushConfig struct {
	// Endpoint is the server base URL, e.g. "http://localhost:8080".
	// Empty disables pushing.
	Endpoint string `yaml:"endpoint"`

	// BufferSize caps how many results can queue for delivery while the
	// server is unreachable. The oldest result is evicted when full.
	BufferSize int `yaml:"buffer_size"`

	// Auth configures how the CLI authenticates to the server.
	Auth AuthConfig `yaml:"auth"`
}

// ServerConfig holds all germitrackd settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and metrics endpoint
	// listen on.
	HTTPPort int `yaml:"http_port"`

	// Inputs lists the observation files analyzed at startup and watched
	// for changes.
	Inputs []string `yaml:"inputs"`

	// BroadcastInterval controls how often the WebSocket hub pushes a
	// snapshot to connected clients.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// ResultTTL evicts treatments not refreshed within this duration.
	// Zero keeps results forever, which suits file-watch deployments where
	// results only change when an input changes.
	ResultTTL time.Duration `yaml:"result_ttl"`

	// Auth configures REST API and WebSocket authentication.
	Auth AuthConfig `yaml:"auth"`

	// Alerts holds alerting rule and webhook delivery configuration.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AuthConfig specifies an API-key authentication mode.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header carrying the key.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or DefaultAuthHeader.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultAuthHeader
}

// AlertsConfig holds all alerting rules and webhook targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines a threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier.
	Name string `yaml:"name"`

	// Condition is an expression like "germinability_pct < 50" or
	// "time_to_half_germination > 7".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration. The CLI falls back to it when
// no config file is given; germitrackd always loads a file.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			SeedsPerReplicate: DefaultSeedsPerReplicate,
			OutputDir:         DefaultOutputDir,
			Charts:            true,
			ChartReplicates:   DefaultChartReplicates,
			Formats:           []string{"csv", "xlsx"},
			Push:              PushConfig{BufferSize: DefaultPushBufferSize},
		},
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			BroadcastInterval: DefaultBroadcastInterval,
			Auth:              AuthConfig{Header: DefaultAuthHeader},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := &cfg.Analysis
	if a.SeedsPerReplicate <= 0 {
		return fmt.Errorf("analysis.seeds_per_replicate must be positive")
	}
	if a.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative")
	}
	if a.ChartReplicates <= 0 {
		return fmt.Errorf("analysis.chart_replicates must be positive")
	}
	if len(a.Formats) == 0 {
		return fmt.Errorf("analysis.formats must not be empty")
	}
	for _, f := range a.Formats {
		switch f {
		case "csv", "xlsx":
		default:
			return fmt.Errorf("analysis.formats: unknown format %q", f)
		}
	}

	s := &cfg.Server
	if s.HTTPPort < 1 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", s.HTTPPort)
	}
	if s.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if s.ResultTTL < 0 {
		return fmt.Errorf("server.result_ttl must not be negative")
	}
	if err := validateAuth("server.auth", s.Auth); err != nil {
		return err
	}
	if err := validateAuth("analysis.push.auth", a.Push.Auth); err != nil {
		return err
	}
	if a.Push.BufferSize <= 0 {
		return fmt.Errorf("analysis.push.buffer_size must be positive")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		if r.Cooldown < 0 {
			return fmt.Errorf("alerts.rules[%d] %q: cooldown must not be negative", i, r.Name)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "teams", "slack", "pagerduty", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}

func validateAuth(field string, a AuthConfig) error {
	switch a.Mode {
	case "apikey", "none", "":
		return nil
	default:
		return fmt.Errorf("%s: unknown mode %q", field, a.Mode)
	}
}
