package modelopenai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Gurpartap/jiraagent/agent"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	defaultEndpoint = "/chat/completions"
	defaultTimeout  = 30 * time.Second
	maxBodyBytes    = 2 << 20
)

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Adapter talks to an OpenAI-compatible chat completions API.
// Generate uses native function calling; Complete serves the text ReAct protocol.
type Adapter struct {
	apiKey      string
	model       string
	temperature float64
	endpointURL string
	httpClient  *http.Client
}

var (
	_ agent.Model     = (*Adapter)(nil)
	_ agent.Completer = (*Adapter)(nil)
)

func New(cfg Config) (*Adapter, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("new model adapter: %w", ErrAPIKeyRequired)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("new model adapter: %w", ErrModelRequired)
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	endpointURL := strings.TrimRight(baseURL, "/") + defaultEndpoint

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Adapter{
		apiKey:      apiKey,
		model:       model,
		temperature: cfg.Temperature,
		endpointURL: endpointURL,
		httpClient:  httpClient,
	}, nil
}

func (a *Adapter) Generate(ctx context.Context, request agent.ModelRequest) (agent.Message, error) {
	requestPayload, err := buildRequest(a.model, request)
	if err != nil {
		return agent.Message{}, fmt.Errorf("provider request: %w", err)
	}
	requestPayload.Temperature = &a.temperature

	parsed, err := a.send(ctx, requestPayload)
	if err != nil {
		return agent.Message{}, err
	}
	message, err := toAgentMessage(parsed.Choices[0].Message)
	if err != nil {
		return agent.Message{}, fmt.Errorf("provider response decode: %w", err)
	}
	return message, nil
}

// Complete sends the prompt as a single user turn and returns the raw text.
func (a *Adapter) Complete(ctx context.Context, request agent.CompletionRequest) (string, error) {
	parsed, err := a.send(ctx, chatCompletionRequest{
		Model:       a.model,
		Messages:    []chatMessage{{Role: "user", Content: request.Prompt}},
		Temperature: &a.temperature,
		Stop:        request.Stop,
	})
	if err != nil {
		return "", err
	}
	return parsed.Choices[0].Message.Content, nil
}

func (a *Adapter) send(ctx context.Context, requestPayload chatCompletionRequest) (chatCompletionResponse, error) {
	encoded, err := json.Marshal(requestPayload)
	if err != nil {
		return chatCompletionResponse{}, fmt.Errorf("provider request encode: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpointURL, bytes.NewReader(encoded))
	if err != nil {
		return chatCompletionResponse{}, fmt.Errorf("provider request build: %w", err)
	}
	httpRequest.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpRequest.Header.Set("Content-Type", "application/json")

	response, err := a.httpClient.Do(httpRequest)
	if err != nil {
		return chatCompletionResponse{}, &ProviderError{Err: err}
	}
	defer response.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(response.Body, maxBodyBytes))
	if err != nil {
		return chatCompletionResponse{}, &ProviderError{Err: fmt.Errorf("read body: %w", err)}
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return chatCompletionResponse{}, &ProviderError{
			StatusCode: response.StatusCode,
			Body:       strings.TrimSpace(string(bodyBytes)),
		}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return chatCompletionResponse{}, fmt.Errorf("provider response decode: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return chatCompletionResponse{}, fmt.Errorf("provider response decode: no choices")
	}
	return parsed, nil
}

type chatCompletionRequest struct {
	Model             string        `json:"model"`
	Messages          []chatMessage `json:"messages"`
	Tools             []chatTool    `json:"tools,omitempty"`
	ParallelToolCalls *bool         `json:"parallel_tool_calls,omitempty"`
	Temperature       *float64      `json:"temperature,omitempty"`
	Stop              []string      `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function chatToolCallFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

func buildRequest(model string, request agent.ModelRequest) (chatCompletionRequest, error) {
	if err := validateObservations(request.Messages); err != nil {
		return chatCompletionRequest{}, err
	}

	messages := make([]chatMessage, len(request.Messages))
	for i := range request.Messages {
		converted, err := toChatMessage(request.Messages[i])
		if err != nil {
			return chatCompletionRequest{}, err
		}
		messages[i] = converted
	}

	out := chatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if len(request.Tools) == 0 {
		return out, nil
	}

	out.Tools = make([]chatTool, len(request.Tools))
	for i := range request.Tools {
		out.Tools[i] = chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        request.Tools[i].Name,
				Description: request.Tools[i].Description,
				Parameters:  request.Tools[i].InputSchema,
			},
		}
	}
	parallel := false
	out.ParallelToolCalls = &parallel
	return out, nil
}

func validateObservations(messages []agent.Message) error {
	assistantToolCalls := make(map[string]struct{}, len(messages))
	for i := range messages {
		switch messages[i].Role {
		case agent.RoleAssistant:
			for _, call := range messages[i].ToolCalls {
				if call.ID != "" {
					assistantToolCalls[call.ID] = struct{}{}
				}
			}
		case agent.RoleTool:
			toolCallID := strings.TrimSpace(messages[i].ToolCallID)
			if toolCallID == "" {
				return fmt.Errorf("decode messages: tool message at index %d missing tool_call_id", i)
			}
			if _, ok := assistantToolCalls[toolCallID]; !ok {
				return fmt.Errorf(
					"decode messages: tool message at index %d references unknown tool_call_id %q",
					i,
					toolCallID,
				)
			}
		}
	}
	return nil
}

func toChatMessage(message agent.Message) (chatMessage, error) {
	role, err := toProviderRole(message.Role)
	if err != nil {
		return chatMessage{}, err
	}

	var toolCalls []chatToolCall
	for _, call := range message.ToolCalls {
		arguments := "{}"
		if len(call.Arguments) > 0 {
			encoded, err := json.Marshal(call.Arguments)
			if err != nil {
				return chatMessage{}, fmt.Errorf("encode tool call arguments: %w", err)
			}
			arguments = string(encoded)
		}
		toolCalls = append(toolCalls, chatToolCall{
			ID:   call.ID,
			Type: "function",
			Function: chatToolCallFunction{
				Name:      call.Name,
				Arguments: arguments,
			},
		})
	}

	return chatMessage{
		Role:       role,
		Content:    message.Content,
		Name:       message.Name,
		ToolCallID: message.ToolCallID,
		ToolCalls:  toolCalls,
	}, nil
}

func toProviderRole(role agent.Role) (string, error) {
	switch role {
	case agent.RoleSystem:
		return "system", nil
	case agent.RoleUser:
		return "user", nil
	case agent.RoleAssistant:
		return "assistant", nil
	case agent.RoleTool:
		return "tool", nil
	default:
		return "", fmt.Errorf("unsupported message role %q", role)
	}
}

func toAgentMessage(message chatMessage) (agent.Message, error) {
	if message.Role != "assistant" {
		return agent.Message{}, fmt.Errorf("expected assistant message role, got %q", message.Role)
	}

	var toolCalls []agent.ToolCall
	for _, call := range message.ToolCalls {
		arguments := map[string]any{}
		if strings.TrimSpace(call.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &arguments); err != nil {
				return agent.Message{}, fmt.Errorf(
					"%w: reason=undecodable_arguments name=%q: %w",
					agent.ErrMalformedDecision,
					call.Function.Name,
					err,
				)
			}
		}
		toolCalls = append(toolCalls, agent.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: arguments,
		})
	}

	return agent.Message{
		Role:      agent.RoleAssistant,
		Content:   message.Content,
		ToolCalls: toolCalls,
	}, nil
}
