package modelgemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Gurpartap/jiraagent/agent"
)

const (
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 30 * time.Second
)

var ErrAPIKeyRequired = errors.New("api key is required")

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Adapter talks to the Gemini API through the genai SDK.
type Adapter struct {
	client      *genai.Client
	model       string
	temperature float32
}

var (
	_ agent.Model     = (*Adapter)(nil)
	_ agent.Completer = (*Adapter)(nil)
)

func New(ctx context.Context, cfg Config) (*Adapter, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("new gemini adapter: %w", ErrAPIKeyRequired)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: strings.TrimSpace(cfg.BaseURL)},
	})
	if err != nil {
		return nil, fmt.Errorf("new gemini adapter: %w", err)
	}
	return &Adapter{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

func (a *Adapter) Generate(ctx context.Context, request agent.ModelRequest) (agent.Message, error) {
	contents, system, err := toContents(request.Messages)
	if err != nil {
		return agent.Message{}, fmt.Errorf("provider request: %w", err)
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(a.temperature),
		Tools:             toTools(request.Tools),
	}

	response, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return agent.Message{}, providerError(ctx, err)
	}
	content, err := firstCandidate(response)
	if err != nil {
		return agent.Message{}, err
	}
	return toAgentMessage(content, countAssistant(request.Messages)+1), nil
}

// Complete sends the prompt as a single user turn and returns the raw text.
func (a *Adapter) Complete(ctx context.Context, request agent.CompletionRequest) (string, error) {
	response, err := a.client.Models.GenerateContent(
		ctx,
		a.model,
		[]*genai.Content{genai.NewContentFromText(request.Prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:   genai.Ptr(a.temperature),
			StopSequences: request.Stop,
		},
	)
	if err != nil {
		return "", providerError(ctx, err)
	}
	content, err := firstCandidate(response)
	if err != nil {
		return "", err
	}
	return textOf(content), nil
}

func firstCandidate(response *genai.GenerateContentResponse) (*genai.Content, error) {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return nil, fmt.Errorf("provider response decode: no candidates")
	}
	return response.Candidates[0].Content, nil
}

func toContents(messages []agent.Message) ([]*genai.Content, *genai.Content, error) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))
	callNames := make(map[string]string, len(messages))

	for i, message := range messages {
		switch message.Role {
		case agent.RoleSystem:
			system = genai.NewContentFromText(message.Content, genai.RoleUser)
		case agent.RoleUser:
			contents = append(contents, genai.NewContentFromText(message.Content, genai.RoleUser))
		case agent.RoleAssistant:
			parts := make([]*genai.Part, 0, 1+len(message.ToolCalls))
			if message.Content != "" {
				parts = append(parts, genai.NewPartFromText(message.Content))
			}
			for _, call := range message.ToolCalls {
				callNames[call.ID] = call.Name
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Name,
					Args: call.Arguments,
				}})
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case agent.RoleTool:
			name, ok := callNames[message.ToolCallID]
			if !ok {
				return nil, nil, fmt.Errorf(
					"decode messages: tool message at index %d references unknown tool_call_id %q",
					i,
					message.ToolCallID,
				)
			}
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{
					ID:       message.ToolCallID,
					Name:     name,
					Response: map[string]any{"output": message.Content},
				},
			}}, genai.RoleUser))
		default:
			return nil, nil, fmt.Errorf("unsupported message role %q", message.Role)
		}
	}
	return contents, system, nil
}

func toTools(definitions []agent.ToolDefinition) []*genai.Tool {
	if len(definitions) == 0 {
		return nil
	}
	declarations := make([]*genai.FunctionDeclaration, len(definitions))
	for i, definition := range definitions {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        definition.Name,
			Description: definition.Description,
			Parameters:  toSchema(definition.InputSchema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func toSchema(schema map[string]any) *genai.Schema {
	if len(schema) == 0 {
		return nil
	}
	out := &genai.Schema{}
	if kind, ok := schema["type"].(string); ok {
		out.Type = genai.Type(strings.ToUpper(kind))
	}
	if description, ok := schema["description"].(string); ok {
		out.Description = description
	}
	if properties, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(properties))
		for name, raw := range properties {
			if property, ok := raw.(map[string]any); ok {
				out.Properties[name] = toSchema(property)
			}
		}
	}
	switch required := schema["required"].(type) {
	case []string:
		out.Required = append([]string(nil), required...)
	case []any:
		for _, field := range required {
			if name, ok := field.(string); ok {
				out.Required = append(out.Required, name)
			}
		}
	}
	return out
}

func toAgentMessage(content *genai.Content, turn int) agent.Message {
	message := agent.Message{
		Role:    agent.RoleAssistant,
		Content: textOf(content),
	}
	for i, part := range content.Parts {
		if part == nil || part.FunctionCall == nil {
			continue
		}
		id := part.FunctionCall.ID
		if id == "" {
			id = fmt.Sprintf("gemini-%d-%d", turn, i)
		}
		arguments := part.FunctionCall.Args
		if arguments == nil {
			arguments = map[string]any{}
		}
		message.ToolCalls = append(message.ToolCalls, agent.ToolCall{
			ID:        id,
			Name:      part.FunctionCall.Name,
			Arguments: arguments,
		})
	}
	return message
}

func textOf(content *genai.Content) string {
	var b strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

func countAssistant(messages []agent.Message) int {
	n := 0
	for _, message := range messages {
		if message.Role == agent.RoleAssistant {
			n++
		}
	}
	return n
}
