package jira

import (
	"fmt"
	"strings"
)

// NoIssuesFound is the rendering of an empty result set.
const NoIssuesFound = "No issues found."

// IssueRecord is the projection of one issue returned by a search.
type IssueRecord struct {
	Key      string
	Summary  string
	Status   string
	Priority string
}

// Render flattens records into the text observation seen by the model.
// Priority is fetched for ordering but not rendered.
func Render(records []IssueRecord) string {
	if len(records) == 0 {
		return NoIssuesFound
	}
	lines := make([]string, len(records))
	for i, record := range records {
		lines[i] = fmt.Sprintf("- %s: %s (Status: %s)", record.Key, record.Summary, record.Status)
	}
	return strings.Join(lines, "\n")
}
