package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config in the optional YAML file.
// Durations are strings in time.ParseDuration syntax.
type fileConfig struct {
	Jira struct {
		Domain      string `yaml:"domain"`
		Email       string `yaml:"email"`
		APIToken    string `yaml:"api_token"`
		Timeout     string `yaml:"timeout"`
		MaxAttempts int    `yaml:"max_attempts"`
		Backoff     string `yaml:"backoff"`
	} `yaml:"jira"`
	Model struct {
		Provider     string `yaml:"provider"`
		Protocol     string `yaml:"protocol"`
		Name         string `yaml:"name"`
		BaseURL      string `yaml:"base_url"`
		OpenAIAPIKey string `yaml:"openai_api_key"`
		GeminiAPIKey string `yaml:"gemini_api_key"`
		Timeout      string `yaml:"timeout"`
		MaxAttempts  int    `yaml:"max_attempts"`
		Backoff      string `yaml:"backoff"`
	} `yaml:"model"`
	Agent struct {
		MaxSteps     int    `yaml:"max_steps"`
		SystemPrompt string `yaml:"system_prompt"`
	} `yaml:"agent"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return c.applyFileConfig(file)
}

func (c *Config) applyFileConfig(file fileConfig) error {
	str := func(value string, dst *string) {
		if value = strings.TrimSpace(value); value != "" {
			*dst = value
		}
	}
	positive := func(value int, dst *int) {
		if value > 0 {
			*dst = value
		}
	}
	duration := func(name, value string, dst *time.Duration) error {
		if strings.TrimSpace(value) == "" {
			return nil
		}
		parsed, err := parseDuration(name, value)
		if err != nil {
			return err
		}
		*dst = parsed
		return nil
	}

	str(file.Jira.Domain, &c.JiraDomain)
	str(file.Jira.Email, &c.JiraEmail)
	str(file.Jira.APIToken, &c.JiraAPIToken)
	positive(file.Jira.MaxAttempts, &c.TrackerMaxAttempts)
	str(file.Model.Name, &c.ModelName)
	str(file.Model.BaseURL, &c.ModelBaseURL)
	str(file.Model.OpenAIAPIKey, &c.OpenAIAPIKey)
	str(file.Model.GeminiAPIKey, &c.GeminiAPIKey)
	positive(file.Model.MaxAttempts, &c.ModelMaxAttempts)
	positive(file.Agent.MaxSteps, &c.MaxSteps)
	str(file.Agent.SystemPrompt, &c.SystemPrompt)

	errs := []error{
		duration("jira.timeout", file.Jira.Timeout, &c.TrackerTimeout),
		duration("jira.backoff", file.Jira.Backoff, &c.TrackerBackoff),
		duration("model.timeout", file.Model.Timeout, &c.ModelTimeout),
		duration("model.backoff", file.Model.Backoff, &c.ModelBackoff),
	}
	if strings.TrimSpace(file.Model.Provider) != "" {
		parsed, err := ParseProvider(file.Model.Provider)
		errs = append(errs, err)
		c.ModelProvider = parsed
	}
	if strings.TrimSpace(file.Model.Protocol) != "" {
		parsed, err := ParseProtocol(file.Model.Protocol)
		errs = append(errs, err)
		c.ModelProtocol = parsed
	}
	if strings.TrimSpace(file.Log.Level) != "" {
		parsed, err := parseLogLevel(file.Log.Level)
		errs = append(errs, err)
		c.LogLevel = parsed
	}
	if strings.TrimSpace(file.Log.Format) != "" {
		parsed, err := parseLogFormat(file.Log.Format)
		errs = append(errs, err)
		c.LogFormat = parsed
	}
	return errors.Join(errs...)
}
