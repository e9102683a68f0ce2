package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/complyforge/complyforge/errors"
)

// Load reads configuration from defaults, an optional complyforge.yaml in
// the working directory, and COMPLYFORGE_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("COMPLYFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindSensitiveEnvVars(v)

	SetDefaults(v)

	v.SetConfigName("complyforge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/complyforge")

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine - defaults plus env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

// bindSensitiveEnvVars binds API keys explicitly so they resolve even when
// no config file mentions them. AutomaticEnv only resolves keys that viper
// already knows about.
func bindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("anthropic.api_key", "COMPLYFORGE_ANTHROPIC_API_KEY")
	v.BindEnv("openai.api_key", "COMPLYFORGE_OPENAI_API_KEY")
	v.BindEnv("gemini.api_key", "COMPLYFORGE_GEMINI_API_KEY")
}
