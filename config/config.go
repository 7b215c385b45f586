// Package config loads application settings for the scenariorun command from
// a YAML file and SCENARIOMESH_* environment variables. Library users
// configure the engine through functional options instead.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/scenariomesh/engine"
	"github.com/hupe1980/scenariomesh/logging"
	"github.com/hupe1980/scenariomesh/retry"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "SCENARIOMESH_"

// Supported providers.
const (
	ProviderEcho      = "echo"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// LogSettings selects the log level and handler format.
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text or pretty
}

// RetrySettings mirrors retry.Policy for files. Durations use Go syntax
// ("500ms", "5s").
type RetrySettings struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseWait    time.Duration `yaml:"base_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
}

// SlackSettings configures the Slack connector. Agent, when set, routes steps
// for that agent name to Slack instead of the model provider.
type SlackSettings struct {
	BotToken string `yaml:"bot_token"`
	BaseURL  string `yaml:"base_url"`
	Channel  string `yaml:"channel"`
	Agent    string `yaml:"agent"`
	// NotifySteps posts a summary of every step result to Channel.
	NotifySteps bool `yaml:"notify_steps"`
}

// Settings is the complete application configuration.
type Settings struct {
	Provider        string            `yaml:"provider"`
	Model           string            `yaml:"model"`
	OpenAIAPIKey    string            `yaml:"openai_api_key"`
	AnthropicAPIKey string            `yaml:"anthropic_api_key"`
	Instructions    map[string]string `yaml:"instructions"`

	Log   LogSettings   `yaml:"log"`
	Retry RetrySettings `yaml:"retry"`

	AllowDuplicateStepIDs bool `yaml:"allow_duplicate_step_ids"`
	MaxInvocations        int  `yaml:"max_invocations"`

	Slack SlackSettings `yaml:"slack"`
}

// Default returns settings that run scenarios against the echo provider with
// the default retry policy.
func Default() Settings {
	return Settings{
		Provider: ProviderEcho,
		Log:      LogSettings{Level: "info", Format: "pretty"},
		Retry: RetrySettings{
			MaxAttempts: retry.DefaultMaxAttempts,
			BaseWait:    retry.DefaultBaseWait,
			MaxWait:     retry.DefaultMaxWait,
		},
	}
}

// Load builds settings from defaults, the YAML file at path (skipped when
// path is empty) and the process environment, in that order, then validates
// the result.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Settings{}, fmt.Errorf("config: open %s: %w", path, err)
		}
		defer f.Close()

		if err := s.decode(f); err != nil {
			return Settings{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return Settings{}, err
	}
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from SCENARIOMESH_* variables found by lookup.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	str("PROVIDER", &s.Provider)
	str("MODEL", &s.Model)
	str("OPENAI_API_KEY", &s.OpenAIAPIKey)
	str("ANTHROPIC_API_KEY", &s.AnthropicAPIKey)
	str("LOG_LEVEL", &s.Log.Level)
	str("LOG_FORMAT", &s.Log.Format)
	str("SLACK_BOT_TOKEN", &s.Slack.BotToken)
	str("SLACK_BASE_URL", &s.Slack.BaseURL)
	str("SLACK_CHANNEL", &s.Slack.Channel)
	str("SLACK_AGENT", &s.Slack.Agent)

	var errs []error
	parse := func(name string, fn func(string) error) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return
		}
		if err := fn(v); err != nil {
			errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
		}
	}

	parse("RETRY_MAX_ATTEMPTS", func(v string) (err error) {
		s.Retry.MaxAttempts, err = strconv.Atoi(v)
		return err
	})
	parse("RETRY_BASE_WAIT", func(v string) (err error) {
		s.Retry.BaseWait, err = time.ParseDuration(v)
		return err
	})
	parse("RETRY_MAX_WAIT", func(v string) (err error) {
		s.Retry.MaxWait, err = time.ParseDuration(v)
		return err
	})
	parse("MAX_INVOCATIONS", func(v string) (err error) {
		s.MaxInvocations, err = strconv.Atoi(v)
		return err
	})
	parse("ALLOW_DUPLICATE_STEP_IDS", func(v string) (err error) {
		s.AllowDuplicateStepIDs, err = strconv.ParseBool(v)
		return err
	})
	parse("SLACK_NOTIFY_STEPS", func(v string) (err error) {
		s.Slack.NotifySteps, err = strconv.ParseBool(v)
		return err
	})

	return errors.Join(errs...)
}

// Validate reports every inconsistent setting.
func (s Settings) Validate() error {
	var errs []error

	switch s.Provider {
	case ProviderEcho:
	case ProviderOpenAI:
		if s.OpenAIAPIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
			errs = append(errs, errors.New("config: openai provider requires an API key"))
		}
	case ProviderAnthropic:
		if s.AnthropicAPIKey == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
			errs = append(errs, errors.New("config: anthropic provider requires an API key"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown provider %q", s.Provider))
	}

	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: log level: %w", err))
	}
	switch s.Log.Format {
	case "", "json", "text", "pretty":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log format %q", s.Log.Format))
	}

	if s.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("config: retry.max_attempts must be >= 1, got %d", s.Retry.MaxAttempts))
	}
	if s.Retry.BaseWait < 0 || s.Retry.MaxWait < 0 {
		errs = append(errs, errors.New("config: retry waits must not be negative"))
	}
	if s.Retry.MaxWait > 0 && s.Retry.BaseWait > s.Retry.MaxWait {
		errs = append(errs, errors.New("config: retry.base_wait exceeds retry.max_wait"))
	}
	if s.MaxInvocations < 0 {
		errs = append(errs, fmt.Errorf("config: max_invocations must be >= 0, got %d", s.MaxInvocations))
	}

	if (s.Slack.Agent != "" || s.Slack.NotifySteps) && s.Slack.BotToken == "" {
		errs = append(errs, errors.New("config: slack requires bot_token"))
	}
	if s.Slack.NotifySteps && s.Slack.Channel == "" {
		errs = append(errs, errors.New("config: slack.notify_steps requires slack.channel"))
	}

	return errors.Join(errs...)
}

// EngineConfig converts the settings into an engine configuration.
func (s Settings) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig
	cfg.Retry.MaxAttempts = s.Retry.MaxAttempts
	cfg.Retry.BaseWait = s.Retry.BaseWait
	cfg.Retry.MaxWait = s.Retry.MaxWait
	cfg.ValidateStepIDs = !s.AllowDuplicateStepIDs
	cfg.MaxInvocations = s.MaxInvocations
	return cfg
}

// LoggerConfig converts the log settings into a logging configuration
// writing to out. An unparsable level falls back to info.
func (s Settings) LoggerConfig(out io.Writer) *logging.LoggerConfig {
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		level = logging.LogLevelInfo
	}
	format := s.Log.Format
	if format == "" {
		format = "pretty"
	}
	return &logging.LoggerConfig{
		Level:     level,
		Format:    format,
		Output:    out,
		Component: "scenariorun",
	}
}
