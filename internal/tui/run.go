package tui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/korelabs/kore/internal/assistant"
	"github.com/korelabs/kore/internal/voice"
)

// EventRelay bridges out-of-loop notifications into the bubbletea program.
// The controller's notify function is fixed at construction, before any
// program exists, so the relay holds the seam between the two. Events
// arriving before a program attaches are dropped.
type EventRelay struct {
	mu   sync.Mutex
	sink func(tea.Msg)
}

// NewEventRelay returns a relay that drops events until a sink attaches.
func NewEventRelay() *EventRelay {
	return &EventRelay{}
}

// Notify forwards one controller event into the update loop.
func (r *EventRelay) Notify(ev assistant.Event) {
	r.send(controllerEventMsg{event: ev})
}

func (r *EventRelay) send(msg tea.Msg) {
	r.mu.Lock()
	sink := r.sink
	r.mu.Unlock()
	if sink != nil {
		sink(msg)
	}
}

func (r *EventRelay) attach(sink func(tea.Msg)) {
	r.mu.Lock()
	r.sink = sink
	r.mu.Unlock()
}

// Run drives the chat interface until the user quits. Controller events
// are forwarded into the bubbletea loop so the countdown renders live.
// A non-nil recognizer enables push-to-talk on ctrl+v.
func Run(ctx context.Context, session *assistant.Session, relay *EventRelay, recognizer voice.Recognizer) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []ModelOption{}
	voiceRelay := NewEventRelay()
	if recognizer != nil {
		capture := voice.NewCapture(recognizer,
			func(text string) { voiceRelay.send(voiceResultMsg{text: text}) },
			func(err error) { voiceRelay.send(voiceErrMsg{err: err}) },
			nil)
		defer capture.Close()
		opts = append(opts, WithCapture(capture))
	}

	p := tea.NewProgram(NewModel(ctx, session, opts...), tea.WithAltScreen())

	if relay != nil {
		relay.attach(p.Send)
	}
	voiceRelay.attach(p.Send)

	go func() {
		select {
		case <-sigChan:
			p.Quit()
		case <-ctx.Done():
		}
	}()

	_, err := p.Run()
	return err
}
