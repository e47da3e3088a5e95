package reacttext

import (
	"fmt"
	"strings"

	"github.com/Gurpartap/jiraagent/agent"
	"github.com/Gurpartap/jiraagent/agentreact"
)

// StopSequence ends a completion before the model invents its own observation.
const StopSequence = "\nObservation:"

// DefaultPrefix opens the prompt when the run has no system message.
const DefaultPrefix = "Answer the following questions as best you can."

// ToolsLeadIn always introduces the tool list.
const ToolsLeadIn = "You have access to the following tools:"

const formatInstructions = `Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [%s]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question`

// Format renders the zero-shot ReAct prompt for the transcript so far.
func Format(messages []agent.Message, tools []agent.ToolDefinition) string {
	var b strings.Builder

	prefix := DefaultPrefix
	if system, ok := agent.FirstMessage(messages, agent.RoleSystem); ok && strings.TrimSpace(system.Content) != "" {
		prefix = strings.TrimSpace(system.Content)
	}
	b.WriteString(prefix)
	b.WriteString(" ")
	b.WriteString(ToolsLeadIn)
	b.WriteString("\n\n")

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
		fmt.Fprintf(&b, "%s: %s\n", tool.Name, tool.Description)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, formatInstructions, strings.Join(names, ", "))
	b.WriteString("\n\nBegin!\n\n")

	task, _ := agent.FirstMessage(messages, agent.RoleUser)
	fmt.Fprintf(&b, "Question: %s\nThought:", task.Content)
	b.WriteString(scratchpad(agentreact.Steps(messages)))
	return b.String()
}

func scratchpad(steps []agentreact.DecisionStep) string {
	var b strings.Builder
	for _, step := range steps {
		if step.Final || !step.Observed {
			continue
		}
		if step.Thought != "" {
			b.WriteString(" ")
			b.WriteString(step.Thought)
		}
		fmt.Fprintf(&b, "\nAction: %s\nAction Input: %s", step.Capability, step.ActionInput)
		fmt.Fprintf(&b, "%s %s\nThought:", StopSequence, step.Observation)
	}
	return b.String()
}
