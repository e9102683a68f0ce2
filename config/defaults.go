package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "complyforge.db")

	// Server defaults
	v.SetDefault("server.port", 8710)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8710"})

	// Engine defaults
	v.SetDefault("engine.workers", 2)
	v.SetDefault("engine.poll_interval_seconds", 1)
	v.SetDefault("engine.call_timeout_seconds", 90)
	v.SetDefault("engine.breaker_threshold", 5)
	v.SetDefault("engine.breaker_cooldown_seconds", 30)
	v.SetDefault("engine.requests_per_minute", 30) // polite default across all jobs
	v.SetDefault("engine.request_burst", 5)

	// Guardrails defaults
	v.SetDefault("guardrails.max_content_bytes", 65536)
	v.SetDefault("guardrails.block_severity", 7)

	// Provider defaults. API keys come from the environment
	// (COMPLYFORGE_ANTHROPIC_API_KEY etc.), never from defaults.
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.temperature", 0.2)
	v.SetDefault("anthropic.max_tokens", 4096)

	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.max_tokens", 4096)

	v.SetDefault("gemini.model", "gemini-1.5-pro")
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.max_tokens", 8192)
}
