// Package voice wraps a streaming speech-to-text engine into a single-shot
// "utterance ready" event with silence-based auto-termination.
package voice

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// State identifies the capture adapter's position in its lifecycle.
type State int

const (
	// StateIdle means no recognition session is active.
	StateIdle State = iota
	// StateListening means a session is active and accumulating transcript.
	StateListening
	// StateFinalizing means the session is wrapping up before handoff.
	StateFinalizing
)

// Default timeouts. The initial-silence timeout aborts a session that never
// hears anything; the inter-utterance timeout finalizes after the speaker
// stops.
const (
	DefaultSilenceDelay   = 2 * time.Second
	DefaultInitialTimeout = 8 * time.Second
)

// Event is one recognition event from the underlying engine. Err and End
// are terminal; Text events carry the newest hypothesis fragment.
type Event struct {
	Err  error
	Text string
	End  bool
}

// Recognizer is the port to a streaming speech-to-text engine. Start opens
// a session whose events flow on the returned channel until the engine
// closes it; Abort tears a session down immediately.
type Recognizer interface {
	Start(ctx context.Context) (<-chan Event, error)
	Abort()
}

// Capture turns recognizer events into at most one finalized transcript per
// session. Only one session may be active; starting a new one aborts the
// previous session first.
type Capture struct {
	recognizer Recognizer
	logger     *slog.Logger
	onResult   func(transcript string)
	onError    func(err error)
	newTimer   func(time.Duration) timer

	silenceDelay   time.Duration
	initialTimeout time.Duration

	current *captureSession
	state   State
	mu      sync.Mutex
}

// captureSession is the per-Start state.
type captureSession struct {
	events   <-chan Event
	stopCh   chan struct{}
	parts    []string
	finished bool
}

// timer abstracts time.Timer so tests can fire timeouts deterministically.
type timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

func newRealTimer(d time.Duration) timer { return realTimer{t: time.NewTimer(d)} }

// CaptureOption configures a Capture.
type CaptureOption func(*Capture)

// WithSilenceDelay overrides the inter-utterance silence delay.
func WithSilenceDelay(d time.Duration) CaptureOption {
	return func(c *Capture) { c.silenceDelay = d }
}

// WithInitialTimeout overrides the no-speech hard timeout.
func WithInitialTimeout(d time.Duration) CaptureOption {
	return func(c *Capture) { c.initialTimeout = d }
}

// withTimerFactory overrides the timer source; test hook.
func withTimerFactory(fn func(time.Duration) timer) CaptureOption {
	return func(c *Capture) { c.newTimer = fn }
}

// NewCapture creates a capture adapter. onResult receives each finalized
// non-empty transcript exactly once; onError receives recognition failures.
func NewCapture(recognizer Recognizer, onResult func(string), onError func(error), logger *slog.Logger, opts ...CaptureOption) *Capture {
	if logger == nil {
		logger = slog.Default()
	}
	if onResult == nil {
		onResult = func(string) {}
	}
	if onError == nil {
		onError = func(error) {}
	}
	c := &Capture{
		recognizer:     recognizer,
		logger:         logger,
		onResult:       onResult,
		onError:        onError,
		newTimer:       newRealTimer,
		silenceDelay:   DefaultSilenceDelay,
		initialTimeout: DefaultInitialTimeout,
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the adapter's current state.
func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns the transcript accumulated so far in the active
// session.
func (c *Capture) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return strings.Join(c.current.parts, "")
}

// StartListening opens a recognition session, aborting any prior one. The
// transcript is reset; no two sessions ever race.
func (c *Capture) StartListening(ctx context.Context) error {
	if c.recognizer == nil {
		err := newRecognitionError(ErrorUnsupported, "")
		c.onError(err)
		return err
	}

	c.abortCurrent()

	events, err := c.recognizer.Start(ctx)
	if err != nil {
		rerr := classifyStartError(err)
		c.onError(rerr)
		return rerr
	}

	s := &captureSession{
		events: events,
		stopCh: make(chan struct{}),
	}

	c.mu.Lock()
	c.current = s
	c.state = StateListening
	c.mu.Unlock()

	go c.run(s)
	return nil
}

// StopListening ends the active session immediately. Accumulated transcript,
// if any, is still handed off: the user explicitly cut the recording short
// but the content stands.
func (c *Capture) StopListening() {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil {
		return
	}
	c.finalize(s, true)
}

// run consumes recognizer events for one session, driving the two timers:
// the no-speech hard timeout and the inter-utterance silence timer.
func (c *Capture) run(s *captureSession) {
	hard := c.newTimer(c.initialTimeout)
	defer hard.Stop()

	var silence timer
	var silenceC <-chan time.Time
	defer func() {
		if silence != nil {
			silence.Stop()
		}
	}()

	gotSpeech := false

	for {
		select {
		case <-s.stopCh:
			return

		case ev, ok := <-s.events:
			if !ok || ev.End {
				// Natural end of recognition.
				c.finalize(s, true)
				return
			}
			if ev.Err != nil {
				c.fail(s, ev.Err)
				return
			}

			c.mu.Lock()
			s.parts = append(s.parts, ev.Text)
			c.mu.Unlock()
			gotSpeech = true

			// Each event pushes the silence deadline out; last event wins.
			if silence != nil {
				silence.Stop()
			}
			silence = c.newTimer(c.silenceDelay)
			silenceC = silence.C()

		case <-hard.C():
			if !gotSpeech {
				c.fail(s, newRecognitionError(ErrorNoSpeech, ""))
				return
			}
			// Speech arrived at some point; let the silence timer decide.

		case <-silenceC:
			c.finalize(s, false)
			return
		}
	}
}

// finalize transitions Listening -> Finalizing -> Idle and hands off the
// transcript exactly once if it is non-empty.
func (c *Capture) finalize(s *captureSession, explicit bool) {
	c.mu.Lock()
	if c.current != s || s.finished {
		c.mu.Unlock()
		return
	}
	s.finished = true
	close(s.stopCh)
	c.state = StateFinalizing
	transcript := strings.TrimSpace(strings.Join(s.parts, ""))
	c.current = nil
	c.state = StateIdle
	c.mu.Unlock()

	c.recognizer.Abort()

	if transcript == "" {
		return
	}

	c.logger.Debug("transcript finalized",
		"explicit", explicit,
		"length", len(transcript))
	c.onResult(transcript)
}

// fail aborts the session and reports a distinct recognition condition.
func (c *Capture) fail(s *captureSession, err error) {
	c.mu.Lock()
	if c.current != s || s.finished {
		c.mu.Unlock()
		return
	}
	s.finished = true
	close(s.stopCh)
	c.current = nil
	c.state = StateIdle
	c.mu.Unlock()

	c.recognizer.Abort()
	c.onError(classifyStartError(err))
}

// abortCurrent silently discards any active session without handoff.
func (c *Capture) abortCurrent() {
	c.mu.Lock()
	s := c.current
	if s == nil || s.finished {
		c.mu.Unlock()
		return
	}
	s.finished = true
	close(s.stopCh)
	c.current = nil
	c.state = StateIdle
	c.mu.Unlock()

	c.recognizer.Abort()
}

// Close aborts any active session.
func (c *Capture) Close() {
	c.abortCurrent()
}
