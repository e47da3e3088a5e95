package jira

import (
	"fmt"
	"strings"
)

// Intent is the logical filter a capability is bound to.
type Intent string

const (
	IntentAll         Intent = "all"
	IntentCurrentUser Intent = "current_user"
	IntentUnassigned  Intent = "unassigned"
	IntentUnresolved  Intent = "unresolved"
)

const orderByPriority = "ORDER BY priority DESC"

var intentClauses = map[Intent]string{
	IntentAll:         "",
	IntentCurrentUser: "assignee=currentUser()",
	IntentUnassigned:  "assignee is EMPTY",
	IntentUnresolved:  "resolution=Unresolved",
}

// Intents lists every known intent in a stable order.
func Intents() []Intent {
	return []Intent{IntentAll, IntentCurrentUser, IntentUnassigned, IntentUnresolved}
}

// Valid reports whether the intent has a filter clause.
func (i Intent) Valid() bool {
	_, ok := intentClauses[i]
	return ok
}

// FilterExpression is a structured query handed to the search boundary.
type FilterExpression struct {
	Intent     Intent
	Refinement string
}

// Translate maps an intent to its filter expression. It performs no I/O.
func Translate(intent Intent) FilterExpression {
	return FilterExpression{Intent: intent}
}

// Refine returns a copy of the expression narrowed by free text.
func (e FilterExpression) Refine(text string) FilterExpression {
	e.Refinement = strings.TrimSpace(text)
	return e
}

// JQL renders the expression, always ordered by priority descending.
func (e FilterExpression) JQL() (string, error) {
	clause, ok := intentClauses[e.Intent]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownIntent, e.Intent)
	}

	conditions := make([]string, 0, 2)
	if e.Refinement != "" {
		conditions = append(conditions, fmt.Sprintf("text ~ %s", quoteJQL(e.Refinement)))
	}
	if clause != "" {
		conditions = append(conditions, clause)
	}
	if len(conditions) == 0 {
		return orderByPriority, nil
	}
	return strings.Join(conditions, " AND ") + " " + orderByPriority, nil
}

func (e FilterExpression) String() string {
	jql, err := e.JQL()
	if err != nil {
		return fmt.Sprintf("invalid(%s)", e.Intent)
	}
	return jql
}

var jqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quoteJQL(text string) string {
	return `"` + jqlEscaper.Replace(text) + `"`
}
