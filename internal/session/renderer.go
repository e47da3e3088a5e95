package session

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	Banner        = "🧠 Jira AI Agent is ready. Type your task or type 'exit' to quit.\n"
	DefaultPrompt = "\n_______________________________________\n📥 Enter task:\n> "
	Goodbye       = "👋 Exiting. Goodbye!"
	answerHeader  = "\n📤 Agent's Response:"
	errorPrefix   = "❌ Error: "
)

// Renderer serializes everything the session writes to the operator.
type Renderer struct {
	out    io.Writer
	prompt string
	mu     sync.Mutex
}

func NewRenderer(out io.Writer, prompt string) *Renderer {
	if out == nil {
		out = io.Discard
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	return &Renderer{
		out:    out,
		prompt: prompt,
	}
}

func (r *Renderer) ShowPrompt() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := io.WriteString(r.out, r.prompt)
	return err
}

// Write lets other components print through the renderer.
func (r *Renderer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.out.Write(p)
}

func (r *Renderer) PrintLine(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := io.WriteString(r.out, strings.TrimRight(line, "\n")+"\n")
	return err
}

func (r *Renderer) PrintAnswer(answer string) error {
	return r.PrintLine(answerHeader + "\n" + answer)
}

func (r *Renderer) PrintError(err error) error {
	return r.PrintLine(fmt.Sprintf("%s%v", errorPrefix, err))
}
