package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultTrackerTimeout     = 30 * time.Second
	defaultTrackerMaxAttempts = 3
	defaultTrackerBackoff     = 500 * time.Millisecond
	defaultModelProvider      = ProviderOpenAI
	defaultModelProtocol      = ProtocolFunctions
	defaultOpenAIModel        = "gpt-4o-mini"
	defaultGeminiModel        = "gemini-2.0-flash"
	defaultModelTimeout       = 30 * time.Second
	defaultModelMaxAttempts   = 2
	defaultModelBackoff       = time.Second
	defaultMaxSteps           = 8
	defaultLogFormat          = LogFormatText
	defaultLogLevel           = slog.LevelInfo

	DefaultSystemPrompt = "You are a Jira assistant. Answer the operator's question about Jira issues " +
		"using the available tools. Use one tool at a time, and when you have enough information " +
		"reply with a concise final answer."
)

// ErrConfigurationMissing is returned when a required credential or site setting is absent.
var ErrConfigurationMissing = errors.New("configuration missing")

// Provider selects the model service.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Protocol selects how decisions are requested from the model.
type Protocol string

const (
	// ProtocolFunctions uses native function calling.
	ProtocolFunctions Protocol = "functions"
	// ProtocolText uses the Thought/Action/Observation text format with stop sequences.
	ProtocolText Protocol = "text"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Config is built once at startup and passed to constructors.
type Config struct {
	JiraDomain   string
	JiraEmail    string
	JiraAPIToken string

	TrackerTimeout     time.Duration
	TrackerMaxAttempts int
	TrackerBackoff     time.Duration

	ModelProvider    Provider
	ModelProtocol    Protocol
	ModelName        string
	ModelBaseURL     string
	OpenAIAPIKey     string
	GeminiAPIKey     string
	ModelTimeout     time.Duration
	ModelMaxAttempts int
	ModelBackoff     time.Duration

	MaxSteps     int
	SystemPrompt string

	LogFormat LogFormat
	LogLevel  slog.Level
}

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are ignored and variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Override adjusts a loaded Config before validation, typically from command-line flags.
type Override func(*Config) error

// Load reads configuration from defaults, an optional YAML file, environment variables,
// then overrides, and validates the result. An empty path falls back to JIRA_AGENT_CONFIG.
func Load(path string, overrides ...Override) (Config, error) {
	cfg, err := load(path, os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	for _, override := range overrides {
		if err := override(&cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path == "" {
		path, _ = lookup("JIRA_AGENT_CONFIG")
	}
	if path = strings.TrimSpace(path); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Default() Config {
	return Config{
		TrackerTimeout:     defaultTrackerTimeout,
		TrackerMaxAttempts: defaultTrackerMaxAttempts,
		TrackerBackoff:     defaultTrackerBackoff,
		ModelProvider:      defaultModelProvider,
		ModelProtocol:      defaultModelProtocol,
		ModelTimeout:       defaultModelTimeout,
		ModelMaxAttempts:   defaultModelMaxAttempts,
		ModelBackoff:       defaultModelBackoff,
		MaxSteps:           defaultMaxSteps,
		SystemPrompt:       DefaultSystemPrompt,
		LogFormat:          defaultLogFormat,
		LogLevel:           defaultLogLevel,
	}
}

// ResolvedModelName returns the configured model or the provider default.
func (c Config) ResolvedModelName() string {
	if name := strings.TrimSpace(c.ModelName); name != "" {
		return name
	}
	if c.ModelProvider == ProviderGemini {
		return defaultGeminiModel
	}
	return defaultOpenAIModel
}

// ModelAPIKey returns the credential for the selected provider.
func (c Config) ModelAPIKey() string {
	if c.ModelProvider == ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}
	str("JIRA_DOMAIN", &c.JiraDomain)
	str("EMAIL", &c.JiraEmail)
	str("API_TOKEN", &c.JiraAPIToken)
	str("OPENAI_API_KEY", &c.OpenAIAPIKey)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("MODEL_NAME", &c.ModelName)
	str("MODEL_BASE_URL", &c.ModelBaseURL)
	str("SYSTEM_PROMPT", &c.SystemPrompt)

	var errs []error
	if value, ok := lookup("MODEL_PROVIDER"); ok && strings.TrimSpace(value) != "" {
		parsed, err := ParseProvider(value)
		errs = append(errs, err)
		c.ModelProvider = parsed
	}
	if value, ok := lookup("MODEL_PROTOCOL"); ok && strings.TrimSpace(value) != "" {
		parsed, err := ParseProtocol(value)
		errs = append(errs, err)
		c.ModelProtocol = parsed
	}
	if value, ok := lookup("LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		parsed, err := parseLogLevel(value)
		errs = append(errs, err)
		c.LogLevel = parsed
	}
	if value, ok := lookup("LOG_FORMAT"); ok && strings.TrimSpace(value) != "" {
		parsed, err := parseLogFormat(value)
		errs = append(errs, err)
		c.LogFormat = parsed
	}

	errs = append(errs,
		envDuration(lookup, "TRACKER_TIMEOUT", &c.TrackerTimeout),
		envDuration(lookup, "TRACKER_BACKOFF", &c.TrackerBackoff),
		envDuration(lookup, "MODEL_TIMEOUT", &c.ModelTimeout),
		envDuration(lookup, "MODEL_BACKOFF", &c.ModelBackoff),
		envInt(lookup, "TRACKER_MAX_ATTEMPTS", &c.TrackerMaxAttempts),
		envInt(lookup, "MODEL_MAX_ATTEMPTS", &c.ModelMaxAttempts),
		envInt(lookup, "MAX_STEPS", &c.MaxSteps),
	)
	return errors.Join(errs...)
}

func envDuration(lookup func(string) (string, bool), name string, dst *time.Duration) error {
	value, ok := lookup(name)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := parseDuration(name, value)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

func envInt(lookup func(string) (string, bool), name string, dst *int) error {
	value, ok := lookup(name)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*dst = parsed
	return nil
}

func parseDuration(name, value string) (time.Duration, error) {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("parse %s: value must be > 0", name)
	}
	return parsed, nil
}

// Validate reports every missing required value at once, joined with invalid settings.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.JiraDomain) == "" {
		missing = append(missing, "JIRA_DOMAIN")
	}
	if strings.TrimSpace(c.JiraEmail) == "" {
		missing = append(missing, "EMAIL")
	}
	if strings.TrimSpace(c.JiraAPIToken) == "" {
		missing = append(missing, "API_TOKEN")
	}
	switch c.ModelProvider {
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", ")))
	}

	switch c.ModelProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf(
			"validate config: unsupported MODEL_PROVIDER %q (allowed: %q, %q)",
			c.ModelProvider,
			ProviderOpenAI,
			ProviderGemini,
		))
	}
	switch c.ModelProtocol {
	case ProtocolFunctions, ProtocolText:
	default:
		errs = append(errs, fmt.Errorf(
			"validate config: unsupported MODEL_PROTOCOL %q (allowed: %q, %q)",
			c.ModelProtocol,
			ProtocolFunctions,
			ProtocolText,
		))
	}
	if c.TrackerTimeout <= 0 {
		errs = append(errs, errors.New("validate config: TRACKER_TIMEOUT must be > 0"))
	}
	if c.ModelTimeout <= 0 {
		errs = append(errs, errors.New("validate config: MODEL_TIMEOUT must be > 0"))
	}
	if c.TrackerMaxAttempts < 1 {
		errs = append(errs, errors.New("validate config: TRACKER_MAX_ATTEMPTS must be >= 1"))
	}
	if c.ModelMaxAttempts < 1 {
		errs = append(errs, errors.New("validate config: MODEL_MAX_ATTEMPTS must be >= 1"))
	}
	if c.MaxSteps < 1 {
		errs = append(errs, errors.New("validate config: MAX_STEPS must be >= 1"))
	}

	switch c.LogLevel {
	case slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError:
	default:
		errs = append(errs, fmt.Errorf(
			"validate config: unsupported LOG_LEVEL %q (allowed: %q, %q, %q, %q)",
			c.LogLevel.String(),
			slog.LevelDebug.String(),
			slog.LevelInfo.String(),
			slog.LevelWarn.String(),
			slog.LevelError.String(),
		))
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf(
			"validate config: unsupported LOG_FORMAT %q (allowed: %q, %q)",
			c.LogFormat,
			LogFormatText,
			LogFormatJSON,
		))
	}
	return errors.Join(errs...)
}

func ParseProvider(input string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(input))) {
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderGemini:
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf(
			"parse MODEL_PROVIDER: unsupported value %q (allowed: %q, %q)",
			input,
			ProviderOpenAI,
			ProviderGemini,
		)
	}
}

func ParseProtocol(input string) (Protocol, error) {
	switch Protocol(strings.ToLower(strings.TrimSpace(input))) {
	case ProtocolFunctions:
		return ProtocolFunctions, nil
	case ProtocolText:
		return ProtocolText, nil
	default:
		return "", fmt.Errorf(
			"parse MODEL_PROTOCOL: unsupported value %q (allowed: %q, %q)",
			input,
			ProtocolFunctions,
			ProtocolText,
		)
	}
}

func parseLogLevel(input string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf(
			"parse LOG_LEVEL: unsupported value %q (allowed: %q, %q, %q, %q)",
			input,
			slog.LevelDebug.String(),
			slog.LevelInfo.String(),
			slog.LevelWarn.String(),
			slog.LevelError.String(),
		)
	}
}

func parseLogFormat(input string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf(
			"parse LOG_FORMAT: unsupported value %q (allowed: %q, %q)",
			input,
			LogFormatText,
			LogFormatJSON,
		)
	}
}

// SetLogLevel parses and applies a level name.
func (c *Config) SetLogLevel(input string) error {
	level, err := parseLogLevel(input)
	if err != nil {
		return err
	}
	c.LogLevel = level
	return nil
}
