// Package session drives the interactive read-answer loop.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Gurpartap/jiraagent/agent"
)

var ErrQuit = errors.New("quit session")

// Handlers are the runtime operations reachable from the prompt.
type Handlers struct {
	Answer  func(ctx context.Context, task string) (string, error)
	History func(ctx context.Context) []agent.RunState
	Trace   func(ctx context.Context, runID agent.RunID, w io.Writer) error
}

// REPL reads one task per line and prints its final answer or error.
// Failed tasks never end the session; exit or quit in any case does.
type REPL struct {
	in       *bufio.Reader
	renderer *Renderer
	handlers Handlers
}

func NewREPL(in io.Reader, renderer *Renderer, handlers Handlers) *REPL {
	if in == nil {
		in = strings.NewReader("")
	}
	if renderer == nil {
		renderer = NewRenderer(io.Discard, DefaultPrompt)
	}
	return &REPL{
		in:       bufio.NewReader(in),
		renderer: renderer,
		handlers: handlers,
	}
}

type readResult struct {
	line string
	err  error
}

// Run returns nil on exit, end of input, or cancellation of ctx.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.renderer.PrintLine(Banner); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	lines := r.readLines(done)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := r.renderer.ShowPrompt(); err != nil {
			return err
		}

		var read readResult
		select {
		case <-ctx.Done():
			return nil
		case result, ok := <-lines:
			if !ok {
				return nil
			}
			read = result
		}
		if read.err != nil && !errors.Is(read.err, io.EOF) {
			return read.err
		}

		trimmed := strings.TrimSpace(read.line)
		if trimmed == "" {
			if errors.Is(read.err, io.EOF) {
				return nil
			}
			continue
		}

		dispatchErr := r.dispatch(ctx, trimmed)
		switch {
		case dispatchErr == nil:
		case errors.Is(dispatchErr, ErrQuit):
			return r.renderer.PrintLine(Goodbye)
		default:
			if writeErr := r.renderer.PrintError(dispatchErr); writeErr != nil {
				return writeErr
			}
		}

		if errors.Is(read.err, io.EOF) {
			return nil
		}
	}
}

// readLines feeds input lines until EOF, a read error, or done is closed.
func (r *REPL) readLines(done <-chan struct{}) <-chan readResult {
	lines := make(chan readResult)
	go func() {
		defer close(lines)
		for {
			line, err := r.in.ReadString('\n')
			select {
			case lines <- readResult{line: line, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}

func (r *REPL) dispatch(ctx context.Context, line string) error {
	switch strings.ToLower(line) {
	case "exit", "quit", "/quit":
		return ErrQuit
	case "/history":
		return r.history(ctx)
	}
	if strings.HasPrefix(line, "/") {
		command, args, _ := strings.Cut(line, " ")
		if command == "/trace" {
			return r.trace(ctx, strings.TrimSpace(args))
		}
		return fmt.Errorf("unsupported command %q", command)
	}

	if r.handlers.Answer == nil {
		return errors.New("answer command is not configured")
	}
	answer, err := r.handlers.Answer(ctx, line)
	if err != nil {
		return err
	}
	return r.renderer.PrintAnswer(answer)
}

func (r *REPL) history(ctx context.Context) error {
	if r.handlers.History == nil {
		return errors.New("history command is not configured")
	}
	runs := r.handlers.History(ctx)
	if len(runs) == 0 {
		return r.renderer.PrintLine("No tasks yet.")
	}
	for _, run := range runs {
		task, _ := agent.FirstMessage(run.Messages, agent.RoleUser)
		line := fmt.Sprintf("- %s [%s] steps=%d: %s", run.ID, run.Status, run.Step, task.Content)
		if err := r.renderer.PrintLine(line); err != nil {
			return err
		}
	}
	return nil
}

// trace replays one run's reasoning; an empty ID selects the most recent run.
func (r *REPL) trace(ctx context.Context, runID string) error {
	if r.handlers.Trace == nil {
		return errors.New("trace command is not configured")
	}
	if runID == "" {
		if r.handlers.History == nil {
			return errors.New("/trace requires a run id")
		}
		runs := r.handlers.History(ctx)
		if len(runs) == 0 {
			return r.renderer.PrintLine("No tasks yet.")
		}
		runID = string(runs[len(runs)-1].ID)
	}
	return r.handlers.Trace(ctx, agent.RunID(runID), r.renderer)
}
