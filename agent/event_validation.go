package agent

import "fmt"

// ValidateEvent checks event payload invariants before publish boundaries.
// Lifecycle events carry their task or failure reason in Description.
func ValidateEvent(event Event) error {
	if event.Type == "" {
		return fmt.Errorf("%w: field=type reason=empty", ErrEventInvalid)
	}
	if event.RunID == "" {
		return fmt.Errorf("%w: field=run_id reason=empty type=%s", ErrEventInvalid, event.Type)
	}
	if event.Step < 0 {
		return fmt.Errorf(
			"%w: field=step reason=negative value=%d type=%s run_id=%q",
			ErrEventInvalid,
			event.Step,
			event.Type,
			event.RunID,
		)
	}

	switch event.Type {
	case EventTypeRunStarted, EventTypeRunFailed, EventTypeRunCancelled:
		if event.Description == "" {
			return invalidEvent(event, "description", "empty")
		}
	case EventTypeAssistantMessage:
		if event.Message == nil {
			return invalidEvent(event, "message", "nil")
		}
		if event.Message.Role != RoleAssistant {
			return invalidEvent(event, "message.role", "not_assistant")
		}
	case EventTypeToolResult:
		switch {
		case event.ToolResult == nil:
			return invalidEvent(event, "tool_result", "nil")
		case event.ToolResult.CallID == "":
			return invalidEvent(event, "tool_result.call_id", "empty")
		case event.ToolResult.Name == "":
			return invalidEvent(event, "tool_result.name", "empty")
		}
	}
	return nil
}

func invalidEvent(event Event, field, reason string) error {
	return fmt.Errorf(
		"%w: field=%s reason=%s type=%s run_id=%q step=%d",
		ErrEventInvalid,
		field,
		reason,
		event.Type,
		event.RunID,
		event.Step,
	)
}
