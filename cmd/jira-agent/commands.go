package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Gurpartap/jiraagent/internal/mcpserver"
	"github.com/Gurpartap/jiraagent/internal/session"
	"github.com/Gurpartap/jiraagent/tooling/registry"
	"github.com/Gurpartap/jiraagent/tracker/jira"
)

func runSession(cmd *cobra.Command, opts *rootOptions) error {
	rt, _, err := loadRuntime(cmd, opts, true)
	if err != nil {
		return err
	}
	repl := session.NewREPL(
		cmd.InOrStdin(),
		session.NewRenderer(cmd.OutOrStdout(), session.DefaultPrompt),
		session.Handlers{
			Answer:  rt.Answer,
			History: rt.History,
			Trace:   rt.Replay,
		},
	)
	return repl.Run(cmd.Context())
}

func newAskCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <task...>",
		Short: "Answer one task and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, err := loadRuntime(cmd, opts, true)
			if err != nil {
				return err
			}
			answer, err := rt.Answer(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), answer)
			return err
		},
	}
}

func newCapabilitiesCommand(opts *rootOptions) *cobra.Command {
	capabilities := &cobra.Command{
		Use:   "capabilities",
		Short: "List the issue searches the agent can choose from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, id := range registry.IDs() {
				description, err := registry.Describe(id)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(out, "%s: %s\n", id, description); err != nil {
					return err
				}
			}
			return nil
		},
	}

	var text string
	run := &cobra.Command{
		Use:   "run <capability>",
		Short: "Run one capability directly, without the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := registry.ParseID(args[0])
			if err != nil {
				return err
			}
			rt, _, err := loadRuntime(cmd, opts, false)
			if err != nil {
				return err
			}

			var output string
			if strings.TrimSpace(text) == "" {
				capability, err := rt.Registry.Resolve(string(id))
				if err != nil {
					return err
				}
				output, err = capability.Invoke(cmd.Context(), "")
				if err != nil {
					return err
				}
			} else {
				records, err := rt.Registry.Query(cmd.Context(), id, text)
				if err != nil {
					return err
				}
				output = jira.Render(records)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
			return err
		},
	}
	run.Flags().StringVar(&text, "text", "", "narrow the search to issues whose text matches")

	capabilities.AddCommand(run)
	return capabilities
}

func newMCPCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the capabilities and the agent over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, logger, err := loadRuntime(cmd, opts, false)
			if err != nil {
				return err
			}
			s, err := mcpserver.New(rt.Registry, rt, version)
			if err != nil {
				return err
			}
			logger.Info("serving mcp over stdio")
			return mcpserver.Serve(s)
		},
	}
}
