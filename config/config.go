// Package config holds the complyforge configuration, loaded with Viper
// from a yaml file plus COMPLYFORGE_* environment variables.
package config

// Config is the root configuration for the generation engine.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
}

// DatabaseConfig configures the SQLite database that backs jobs, documents
// and the audit log.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// EngineConfig configures the generation job workers and the circuit
// breakers guarding provider calls.
type EngineConfig struct {
	Workers             int     `mapstructure:"workers"`               // concurrent job workers (default: 2)
	PollIntervalSeconds int     `mapstructure:"poll_interval_seconds"` // queue poll cadence (default: 1)
	CallTimeoutSeconds  int     `mapstructure:"call_timeout_seconds"`  // hard upper bound per provider call (default: 90)
	BreakerThreshold    int     `mapstructure:"breaker_threshold"`     // consecutive failures before a breaker opens (default: 5)
	BreakerCooldownSecs int     `mapstructure:"breaker_cooldown_seconds"`
	RequestsPerMinute   float64 `mapstructure:"requests_per_minute"` // provider-call rate limit across all jobs
	RequestBurst        int     `mapstructure:"request_burst"`
}

// GuardrailsConfig configures the pre-call content screening.
type GuardrailsConfig struct {
	MaxContentBytes int `mapstructure:"max_content_bytes"` // payloads above this are blocked
	BlockSeverity   int `mapstructure:"block_severity"`    // severity at or above this blocks the call
}

// AnthropicConfig configures the long-form narrative provider.
type AnthropicConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// OpenAIConfig configures the technical/procedural provider.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// GeminiConfig configures the high-context provider.
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}
