package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the query orchestrator.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, the Cube API secret) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Cube semantic layer API
	Cube CubeConfig `yaml:"cube"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Resolution engine tuning
	Resolution ResolutionConfig `yaml:"resolution"`

	// ResultsDir is where CSV exports of executed queries are written.
	ResultsDir string `yaml:"results_dir" env:"RESULTS_DIR" env-default:"results"`
}

// CubeConfig holds connection settings for the Cube REST API.
type CubeConfig struct {
	BaseURL string `yaml:"base_url" env:"CUBE_BASE_URL" env-default:"http://localhost:4000"`
	// APISecret signs the short-lived JWT sent with every Cube request.
	APISecret string `yaml:"-" env:"CUBEJS_API_SECRET"` // Secret - not in YAML
	// ViewName is the Cube view the orchestrator queries against.
	ViewName string `yaml:"view_name" env:"CUBE_VIEW_NAME" env-default:"EventsAnalytics"`
	// TimeoutSeconds bounds a single Cube API call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"CUBE_TIMEOUT_SECONDS" env-default:"30"`
	// FallbackSchemaPath is a static view YAML used when the metadata
	// endpoint is unreachable at startup.
	FallbackSchemaPath string `yaml:"fallback_schema_path" env:"CUBE_FALLBACK_SCHEMA_PATH" env-default:""`
}

// LLMConfig holds LLM provider settings.
// Provider selects the backend: "openai" (any OpenAI-compatible endpoint)
// or "anthropic".
type LLMConfig struct {
	Provider    string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint    string  `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model       string  `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	APIKey      string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.2"`
	// TimeoutSeconds bounds a single generation call. A timed-out call is a
	// fault for that turn and still counts against the correction budget.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"60"`
}

// ResolutionConfig tunes the ambiguity resolution engine.
type ResolutionConfig struct {
	// MaxRetries is the number of regeneration attempts after the first
	// validation failure (total attempts = MaxRetries + 1).
	MaxRetries int `yaml:"max_retries" env:"RESOLUTION_MAX_RETRIES" env-default:"2"`
	// MaxTurnHistory is the rolling conversation window per session.
	MaxTurnHistory int `yaml:"max_turn_history" env:"RESOLUTION_MAX_TURN_HISTORY" env-default:"6"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. If config.yaml does not exist, configuration comes from the
// environment alone. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Resolution.MaxRetries < 0 {
		return fmt.Errorf("resolution.max_retries must be >= 0, got %d", c.Resolution.MaxRetries)
	}
	if c.Resolution.MaxTurnHistory < 2 {
		return fmt.Errorf("resolution.max_turn_history must be >= 2, got %d", c.Resolution.MaxTurnHistory)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be \"openai\" or \"anthropic\", got %q", c.LLM.Provider)
	}
	return nil
}

// BaseURL returns the address clients should use to reach this server.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%s", c.BindAddr, c.Port)
}
