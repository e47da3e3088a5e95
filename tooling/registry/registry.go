package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Gurpartap/jiraagent/agent"
	"github.com/Gurpartap/jiraagent/policy/retry"
	"github.com/Gurpartap/jiraagent/tracker/jira"
)

var (
	// ErrUnknownCapability is returned when a name is outside the closed capability set.
	ErrUnknownCapability = agent.ErrUnknownCapability
	ErrMissingSearcher   = errors.New("missing issue searcher")
)

// ErrorObservationPrefix starts every observation produced from a failed search.
const ErrorObservationPrefix = "❌ Error while fetching Jira issues: "

// ID enumerates the capabilities the model may select.
type ID string

const (
	AllIssues             ID = "AllIssues"
	CurrentUserJiraIssues ID = "CurrentUserJiraIssues"
	UnassignedIssues      ID = "UnassignedIssues"
	UnresolvedIssues      ID = "UnresolvedIssues"
)

type binding struct {
	description string
	intent      jira.Intent
}

var bindings = map[ID]binding{
	AllIssues:             {description: "Fetch all issues from Jira.", intent: jira.IntentAll},
	CurrentUserJiraIssues: {description: "Fetch Jira issues assigned to the current user.", intent: jira.IntentCurrentUser},
	UnassignedIssues:      {description: "Fetch unassigned Jira issues.", intent: jira.IntentUnassigned},
	UnresolvedIssues:      {description: "Fetch unresolved Jira issues.", intent: jira.IntentUnresolved},
}

// IDs returns every capability in registration order.
func IDs() []ID {
	return []ID{AllIssues, CurrentUserJiraIssues, UnassignedIssues, UnresolvedIssues}
}

// ParseID resolves an exact, case-sensitive capability name.
func ParseID(name string) (ID, error) {
	id := ID(name)
	if _, ok := bindings[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCapability, name)
	}
	return id, nil
}

// Describe returns the description a capability presents to the model.
func Describe(id ID) (string, error) {
	s, ok := bindings[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCapability, id)
	}
	return s.description, nil
}

// Searcher is the tracker search boundary.
type Searcher interface {
	Search(ctx context.Context, expr jira.FilterExpression, fields []string) ([]jira.IssueRecord, error)
}

// Capability is one named retrieval bound to a fixed filter intent.
type Capability struct {
	ID          ID
	Description string
	Intent      jira.Intent

	registry *Registry
}

// Name is the identifier the model uses to select the capability.
func (c Capability) Name() string {
	return string(c.ID)
}

// Definition describes the capability to the model.
func (c Capability) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        c.Name(),
		Description: c.Description,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				agent.ToolInputArgument: map[string]any{
					"type":        "string",
					"description": "Unused. Pass an empty string.",
				},
			},
			"additionalProperties": false,
		},
	}
}

// Invoke runs the bound search and renders it for the model. The argument is ignored.
// Search failures become an error observation; only context errors are returned.
func (c Capability) Invoke(ctx context.Context, _ string) (string, error) {
	records, err := c.registry.query(ctx, c, "")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var retrievalErr *jira.RetrievalError
		if errors.As(err, &retrievalErr) {
			return ErrorObservationPrefix + retrievalErr.Error(), nil
		}
		return "", err
	}
	return jira.Render(records), nil
}

// Option configures a Registry.
type Option func(*Registry)

// WithRetry retries temporary search failures.
func WithRetry(cfg retry.Config) Option {
	return func(r *Registry) {
		r.retry = cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry is the fixed, read-only set of capabilities.
type Registry struct {
	searcher Searcher
	retry    retry.Config
	logger   *slog.Logger
	byID     map[ID]Capability
	order    []ID
}

func New(searcher Searcher, opts ...Option) (*Registry, error) {
	if searcher == nil {
		return nil, fmt.Errorf("new registry: %w", ErrMissingSearcher)
	}
	r := &Registry{
		searcher: searcher,
		retry:    retry.Config{MaxAttempts: 1},
		logger:   slog.New(slog.DiscardHandler),
		byID:     make(map[ID]Capability, len(bindings)),
		order:    IDs(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, id := range r.order {
		s := bindings[id]
		r.byID[id] = Capability{
			ID:          id,
			Description: s.description,
			Intent:      s.intent,
			registry:    r,
		}
	}
	return r, nil
}

var _ agent.ToolExecutor = (*Registry)(nil)

// List returns every capability in registration order.
func (r *Registry) List() []Capability {
	out := make([]Capability, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Resolve finds a capability by exact name.
func (r *Registry) Resolve(name string) (Capability, error) {
	id, err := ParseID(name)
	if err != nil {
		return Capability{}, err
	}
	return r.byID[id], nil
}

// Definitions returns the catalog handed to the decision loop.
func (r *Registry) Definitions() []agent.ToolDefinition {
	out := make([]agent.ToolDefinition, 0, len(r.order))
	for _, capability := range r.List() {
		out = append(out, capability.Definition())
	}
	return out
}

// Execute resolves the call by name and invokes it.
func (r *Registry) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return agent.ToolResult{}, ctxErr
	}
	capability, err := r.Resolve(call.Name)
	if err != nil {
		return agent.ToolResult{}, err
	}
	input, ok := agent.ToolCallInput(call)
	if !ok {
		return agent.ToolResult{}, fmt.Errorf(
			"%w: reason=input_not_string name=%q",
			agent.ErrMalformedDecision,
			call.Name,
		)
	}

	content, err := capability.Invoke(ctx, input)
	if err != nil {
		return agent.ToolResult{}, err
	}
	return agent.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: content,
		IsError: strings.HasPrefix(content, ErrorObservationPrefix),
	}, nil
}

// Query runs a capability's search narrowed by free text and returns the raw records.
func (r *Registry) Query(ctx context.Context, id ID, refinement string) ([]jira.IssueRecord, error) {
	capability, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCapability, id)
	}
	return r.query(ctx, capability, refinement)
}

func (r *Registry) query(ctx context.Context, capability Capability, refinement string) ([]jira.IssueRecord, error) {
	expr := jira.Translate(capability.Intent).Refine(refinement)
	records, err := retry.Do(ctx, r.retry, func(ctx context.Context) ([]jira.IssueRecord, error) {
		return r.searcher.Search(ctx, expr, jira.DefaultFields)
	})
	if err != nil {
		r.logger.WarnContext(ctx, "capability search failed",
			"capability", capability.ID,
			"jql", expr.String(),
			"err", err,
		)
		return nil, err
	}
	r.logger.DebugContext(ctx, "capability search",
		"capability", capability.ID,
		"jql", expr.String(),
		"issues", len(records),
	)
	return records, nil
}
