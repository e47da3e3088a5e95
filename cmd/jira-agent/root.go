package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Gurpartap/jiraagent/internal/config"
	"github.com/Gurpartap/jiraagent/internal/runtimewire"
)

type rootOptions struct {
	configPath string
	envFile    string
	verbose    bool
	provider   string
	protocol   string
	model      string
	maxSteps   int
	logLevel   string
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "jira-agent",
		Short: "Ask natural-language questions about your Jira issues",
		Long: "jira-agent answers free-form questions about Jira issues by letting a language model " +
			"pick among read-only issue searches.\n\nWithout a subcommand it starts an interactive session.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, opts)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (default $JIRA_AGENT_CONFIG)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "print the Thought/Action/Observation trace")
	flags.StringVar(&opts.provider, "provider", "", "model provider: openai or gemini")
	flags.StringVar(&opts.protocol, "protocol", "", "decision protocol: functions or text")
	flags.StringVar(&opts.model, "model", "", "model name")
	flags.IntVar(&opts.maxSteps, "max-steps", 0, "maximum decision steps per task")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newAskCommand(opts),
		newCapabilitiesCommand(opts),
		newMCPCommand(opts),
	)
	return root
}

func (o *rootOptions) overrides(cmd *cobra.Command) []config.Override {
	var out []config.Override
	flags := cmd.Flags()
	if flags.Changed("provider") {
		out = append(out, func(c *config.Config) error {
			provider, err := config.ParseProvider(o.provider)
			c.ModelProvider = provider
			return err
		})
	}
	if flags.Changed("protocol") {
		out = append(out, func(c *config.Config) error {
			protocol, err := config.ParseProtocol(o.protocol)
			c.ModelProtocol = protocol
			return err
		})
	}
	if flags.Changed("model") {
		out = append(out, func(c *config.Config) error {
			c.ModelName = strings.TrimSpace(o.model)
			return nil
		})
	}
	if flags.Changed("max-steps") {
		out = append(out, func(c *config.Config) error {
			c.MaxSteps = o.maxSteps
			return nil
		})
	}
	if flags.Changed("log-level") {
		out = append(out, func(c *config.Config) error {
			return c.SetLogLevel(o.logLevel)
		})
	}
	return out
}

// loadRuntime builds the runtime for one command. trace controls whether verbose output goes to stdout.
func loadRuntime(cmd *cobra.Command, opts *rootOptions, trace bool) (*runtimewire.Runtime, *slog.Logger, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(opts.configPath, opts.overrides(cmd)...)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	runtimeOpts := runtimewire.Options{Logger: logger}
	if trace && opts.verbose {
		runtimeOpts.Trace = cmd.OutOrStdout()
	}

	rt, err := runtimewire.New(cmd.Context(), cfg, runtimeOpts)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("runtime ready",
		"provider", cfg.ModelProvider,
		"protocol", cfg.ModelProtocol,
		"model", cfg.ResolvedModelName(),
		"max_steps", cfg.MaxSteps,
	)
	return rt, logger, nil
}
