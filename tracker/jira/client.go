package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

const (
	searchPath        = "/rest/api/3/search"
	maxErrorBodyBytes = 4 << 10
	defaultTimeout    = 30 * time.Second
)

// DefaultFields are requested on every capability search.
var DefaultFields = []string{"summary", "status", "priority"}

// Config holds the site URL and credentials for the search boundary.
type Config struct {
	BaseURL    string
	Account    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client performs read-only issue searches against Jira Cloud REST v3.
type Client struct {
	baseURL *url.URL
	account string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, fmt.Errorf("%w: reason=empty", ErrBaseURLInvalid)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBaseURLInvalid, err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("%w: reason=missing_host value=%q", ErrBaseURLInvalid, cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL: base,
		account: cfg.Account,
		token:   cfg.Token,
		http:    httpClient,
		logger:  logger,
	}, nil
}

type searchResponse struct {
	Issues []struct {
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
			Status  *struct {
				Name string `json:"name"`
			} `json:"status"`
			Priority *struct {
				Name string `json:"name"`
			} `json:"priority"`
		} `json:"fields"`
	} `json:"issues"`
}

type errorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

// Search runs the expression and returns the matching issues in response order.
// Every failure is reported as a *RetrievalError.
func (c *Client) Search(ctx context.Context, expr FilterExpression, fields []string) ([]IssueRecord, error) {
	jql, err := expr.JQL()
	if err != nil {
		return nil, &RetrievalError{Message: "invalid filter expression", Err: err, Permanent: true}
	}
	if len(fields) == 0 {
		fields = DefaultFields
	}

	endpoint := c.baseURL.JoinPath(searchPath)
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("fields", strings.Join(fields, ","))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &RetrievalError{Message: "build request", Err: err, Permanent: true}
	}
	req.SetBasicAuth(c.account, c.token)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "jira search failed", "jql", jql, "err", err)
		return nil, &RetrievalError{Err: err}
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "jira search",
		"jql", jql,
		"status", resp.StatusCode,
		"duration", time.Since(started),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &RetrievalError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(body),
		}
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &RetrievalError{
			StatusCode: resp.StatusCode,
			Message:    "decode response",
			Err:        err,
		}
	}

	records := make([]IssueRecord, 0, len(decoded.Issues))
	for _, issue := range decoded.Issues {
		record := IssueRecord{
			Key:     issue.Key,
			Summary: issue.Fields.Summary,
		}
		if issue.Fields.Status != nil {
			record.Status = issue.Fields.Status.Name
		}
		if issue.Fields.Priority != nil {
			record.Priority = issue.Fields.Priority.Name
		}
		records = append(records, record)
	}
	return records, nil
}

func upstreamMessage(body []byte) string {
	var decoded errorResponse
	if err := json.Unmarshal(body, &decoded); err == nil {
		parts := append([]string(nil), decoded.ErrorMessages...)
		for _, field := range slices.Sorted(maps.Keys(decoded.Errors)) {
			parts = append(parts, field+": "+decoded.Errors[field])
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return strings.TrimSpace(string(body))
}
