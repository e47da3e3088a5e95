package runtimewire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Gurpartap/jiraagent/adapters/modelgemini"
	"github.com/Gurpartap/jiraagent/adapters/modelopenai"
	"github.com/Gurpartap/jiraagent/adapters/reacttext"
	"github.com/Gurpartap/jiraagent/agent"
	"github.com/Gurpartap/jiraagent/agentreact"
	eventinginmem "github.com/Gurpartap/jiraagent/eventing/inmem"
	"github.com/Gurpartap/jiraagent/eventing/logsink"
	"github.com/Gurpartap/jiraagent/eventing/trace"
	"github.com/Gurpartap/jiraagent/internal/config"
	"github.com/Gurpartap/jiraagent/policy/retry"
	runstoreinmem "github.com/Gurpartap/jiraagent/runstore/inmem"
	"github.com/Gurpartap/jiraagent/tooling/registry"
	"github.com/Gurpartap/jiraagent/tracker/jira"
)

// Options replaces boundaries for tests and adds optional outputs.
// Nil fields fall back to the configured providers.
type Options struct {
	Logger      *slog.Logger
	Trace       io.Writer
	Model       agent.Model
	Completer   agent.Completer
	Searcher    registry.Searcher
	IDGenerator agent.IDGenerator
}

// Runtime contains the composed runtime dependencies for one process.
type Runtime struct {
	Runner          *agent.Runner
	Registry        *registry.Registry
	RunStore        *runstoreinmem.Store
	Events          *eventinginmem.Sink
	ToolDefinitions []agent.ToolDefinition
	SystemPrompt    string
	MaxSteps        int
}

type provider interface {
	agent.Model
	agent.Completer
}

func New(ctx context.Context, cfg config.Config, opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	searcher := opts.Searcher
	if searcher == nil {
		client, err := jira.NewClient(jira.Config{
			BaseURL: cfg.JiraDomain,
			Account: cfg.JiraEmail,
			Token:   cfg.JiraAPIToken,
			Timeout: cfg.TrackerTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("new runtime tracker: %w", err)
		}
		searcher = client
	}

	capabilities, err := registry.New(searcher,
		registry.WithLogger(logger),
		registry.WithRetry(retry.Config{
			MaxAttempts: cfg.TrackerMaxAttempts,
			Backoff:     cfg.TrackerBackoff,
			ShouldRetry: retry.Temporary,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("new runtime registry: %w", err)
	}

	model, err := newModel(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("new runtime model: %w", err)
	}

	var traceSink agent.EventSink
	if opts.Trace != nil {
		traceSink = trace.New(opts.Trace)
	}
	events := eventinginmem.New()
	fanout := newFanoutSink(
		events,
		logsink.New(logger, cfg.LogFormat == config.LogFormatJSON),
		traceSink,
	)

	loop, err := agentreact.New(model, capabilities, fanout)
	if err != nil {
		return nil, fmt.Errorf("new runtime loop: %w", err)
	}

	idGen := opts.IDGenerator
	if idGen == nil {
		idGen = uuidGenerator{}
	}
	store := runstoreinmem.New()
	runner, err := agent.NewRunner(agent.Dependencies{
		IDGenerator: idGen,
		RunStore:    store,
		Engine:      loop,
		EventSink:   fanout,
	})
	if err != nil {
		return nil, fmt.Errorf("new runtime runner: %w", err)
	}

	return &Runtime{
		Runner:          runner,
		Registry:        capabilities,
		RunStore:        store,
		Events:          events,
		ToolDefinitions: capabilities.Definitions(),
		SystemPrompt:    cfg.SystemPrompt,
		MaxSteps:        cfg.MaxSteps,
	}, nil
}

// Answer runs one task to completion and returns the final answer.
func (r *Runtime) Answer(ctx context.Context, task string) (string, error) {
	result, err := r.Runner.Run(ctx, agent.RunInput{
		SystemPrompt: r.SystemPrompt,
		Task:         task,
		MaxSteps:     r.MaxSteps,
		Tools:        r.ToolDefinitions,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.State.Output), nil
}

// History returns every run of this process in creation order.
func (r *Runtime) History(ctx context.Context) []agent.RunState {
	return r.RunStore.List(ctx)
}

// Replay writes the reasoning trace of a finished run to w.
func (r *Runtime) Replay(ctx context.Context, runID agent.RunID, w io.Writer) error {
	events := r.Events.ForRun(runID)
	if len(events) == 0 {
		return fmt.Errorf("%w: %q", agent.ErrRunNotFound, runID)
	}
	sink := trace.New(w)
	for _, event := range events {
		if err := sink.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func newModel(ctx context.Context, cfg config.Config, opts Options) (agent.Model, error) {
	policy := retry.Config{
		MaxAttempts: cfg.ModelMaxAttempts,
		Backoff:     cfg.ModelBackoff,
		ShouldRetry: retryableModelError,
	}

	switch cfg.ModelProtocol {
	case config.ProtocolText:
		completer := opts.Completer
		if completer == nil {
			p, err := newProvider(ctx, cfg)
			if err != nil {
				return nil, err
			}
			completer = p
		}
		return reacttext.New(retry.WrapCompleter(completer, policy))
	case config.ProtocolFunctions:
		model := opts.Model
		if model == nil {
			p, err := newProvider(ctx, cfg)
			if err != nil {
				return nil, err
			}
			model = p
		}
		return retry.WrapModel(model, policy), nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", cfg.ModelProtocol)
	}
}

func newProvider(ctx context.Context, cfg config.Config) (provider, error) {
	switch cfg.ModelProvider {
	case config.ProviderGemini:
		return modelgemini.New(ctx, modelgemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.ResolvedModelName(),
			BaseURL: cfg.ModelBaseURL,
			Timeout: cfg.ModelTimeout,
		})
	case config.ProviderOpenAI:
		return modelopenai.New(modelopenai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.ResolvedModelName(),
			BaseURL: cfg.ModelBaseURL,
			Timeout: cfg.ModelTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.ModelProvider)
	}
}

func retryableModelError(err error) bool {
	return retry.NotMalformed(err) && retry.Temporary(err)
}

type fanoutSink struct {
	sinks []agent.EventSink
}

func newFanoutSink(sinks ...agent.EventSink) fanoutSink {
	filtered := make([]agent.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			filtered = append(filtered, sink)
		}
	}
	return fanoutSink{sinks: filtered}
}

func (s fanoutSink) Publish(ctx context.Context, event agent.Event) error {
	var result error
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			result = errors.Join(result, err)
		}
	}
	return result
}
