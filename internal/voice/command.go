package voice

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
)

// CommandRecognizer runs an external speech-to-text program and treats
// each line it prints as one recognition event. Any offline recognizer
// that streams transcripts on stdout plugs in this way.
type CommandRecognizer struct {
	name string
	args []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewCommandRecognizer wraps the given program. Returns nil when the
// program is not installed, which callers treat as voice unsupported.
func NewCommandRecognizer(name string, args ...string) *CommandRecognizer {
	if name == "" {
		return nil
	}
	if _, err := exec.LookPath(name); err != nil {
		return nil
	}
	return &CommandRecognizer{name: name, args: args}
}

// Start launches the program and streams its stdout as events. The stream
// closes with an End event when the program exits cleanly.
func (r *CommandRecognizer) Start(ctx context.Context) (<-chan Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := exec.CommandContext(ctx, r.name, r.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrUnsupported
		}
		return nil, err
	}
	r.cmd = cmd

	events := make(chan Event)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			select {
			case events <- Event{Text: text + " "}:
			case <-ctx.Done():
				return
			}
		}
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			select {
			case events <- Event{Err: err}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case events <- Event{End: true}:
		case <-ctx.Done():
		}
	}()

	return events, nil
}

// Abort kills the running program, if any.
func (r *CommandRecognizer) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil && r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	r.cmd = nil
}
