package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FLOWSIM_STORE_DRIVER.
const EnvPrefix = "FLOWSIM"

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply. A path that does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// the file does not mention.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("simulation.min_delay", d.Simulation.MinDelay)
	v.SetDefault("simulation.max_delay", d.Simulation.MaxDelay)
	v.SetDefault("approval.mode", d.Approval.Mode)
	v.SetDefault("approval.rate", d.Approval.Rate)
	v.SetDefault("approval.seed", d.Approval.Seed)
	v.SetDefault("approval.provider", d.Approval.Provider)
	v.SetDefault("approval.model", d.Approval.Model)
	v.SetDefault("approval.api_key", d.Approval.APIKey)
	v.SetDefault("approval.timeout", d.Approval.Timeout)
	v.SetDefault("approval.retries", d.Approval.Retries)
	v.SetDefault("catalog.file", d.Catalog.File)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
}

var validate = validator.New()

// Validate checks cfg and returns every problem in one error.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	var problems []string
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validation error: %w", err)
		}
		for _, e := range fieldErrs {
			problems = append(problems, formatFieldError(e))
		}
	}

	if cfg.Simulation.MaxDelay < cfg.Simulation.MinDelay {
		problems = append(problems, fmt.Sprintf("simulation.max_delay (%s) must not be less than simulation.min_delay (%s)",
			cfg.Simulation.MaxDelay, cfg.Simulation.MinDelay))
	}
	if cfg.Approval.Mode == "llm" && cfg.Approval.Provider == "" {
		problems = append(problems, "approval.provider is required when approval.mode is 'llm'")
	}
	if (cfg.Store.Driver == "mysql" || cfg.Store.Driver == "postgres") && cfg.Store.DSN == "" {
		problems = append(problems, fmt.Sprintf("store.dsn is required for driver %q", cfg.Store.Driver))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func formatFieldError(e validator.FieldError) string {
	field := fieldPath(e.Namespace())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", field, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", field, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", field, e.Tag(), e.Value())
	}
}

// fieldPath converts "Config.Approval.Mode" to "approval.mode" and
// "Config.Simulation.MinDelay" to "simulation.min_delay".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	isUpper := func(b byte) bool { return b >= 'A' && b <= 'Z' }
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUpper(c) {
			// Break before a word start: "MinDelay" and the "Key" in "APIKey".
			if i > 0 && (!isUpper(s[i-1]) || (i+1 < len(s) && !isUpper(s[i+1]))) {
				sb.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
