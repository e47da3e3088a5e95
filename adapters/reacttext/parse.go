package reacttext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Gurpartap/jiraagent/agent"
)

const finalAnswerMarker = "Final Answer:"

var actionPattern = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)

// Decision is one parsed completion: either an action or a final answer.
type Decision struct {
	Thought     string
	Action      string
	ActionInput string
	FinalAnswer string
	Final       bool
}

// Parse reads a completion in the Thought/Action/Action Input/Final Answer format.
func Parse(text string) (Decision, error) {
	text = truncateAtStop(text)
	finalIndex := strings.Index(text, finalAnswerMarker)
	match := actionPattern.FindStringSubmatchIndex(text)

	switch {
	case match != nil && finalIndex >= 0:
		return Decision{}, fmt.Errorf("%w: reason=action_and_final_answer", agent.ErrMalformedDecision)
	case finalIndex >= 0:
		return Decision{
			Thought:     thought(text[:finalIndex]),
			FinalAnswer: strings.TrimSpace(text[finalIndex+len(finalAnswerMarker):]),
			Final:       true,
		}, nil
	case match != nil:
		action := strings.TrimSpace(text[match[2]:match[3]])
		input := strings.Trim(strings.TrimSpace(text[match[4]:match[5]]), `"`)
		if action == "" {
			return Decision{}, fmt.Errorf("%w: reason=empty_action", agent.ErrMalformedDecision)
		}
		return Decision{
			Thought:     thought(text[:match[0]]),
			Action:      action,
			ActionInput: input,
		}, nil
	default:
		return Decision{}, fmt.Errorf(
			"%w: reason=no_action_or_final_answer output=%q",
			agent.ErrMalformedDecision,
			abbreviate(text, 200),
		)
	}
}

func truncateAtStop(text string) string {
	if i := strings.Index(text, StopSequence); i >= 0 {
		return text[:i]
	}
	return text
}

func thought(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "Thought:")
	return strings.TrimSpace(text)
}

func abbreviate(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
