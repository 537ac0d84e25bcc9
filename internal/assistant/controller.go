// Package assistant orchestrates the conversational flow: classifying
// utterances, confirming parsed transactions, and committing them to
// persistence.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/korelabs/kore/internal/model"
)

// State identifies where the confirmation controller is in its lifecycle.
type State int

const (
	// StateEmpty means no parse result is pending.
	StateEmpty State = iota
	// StateAwaiting means an add result is held and the countdown is running.
	StateAwaiting
	// StateCommitting means a commit is in flight.
	StateCommitting
)

// DefaultCountdown is how many one-second ticks a pending transaction waits
// before auto-committing.
const DefaultCountdown = 3

// ErrNothingPending is returned by Confirm when no result is awaiting
// confirmation.
var ErrNothingPending = errors.New("nothing pending confirmation")

// EventKind tags controller notifications.
type EventKind int

const (
	// EventTick reports the countdown decrementing.
	EventTick EventKind = iota
	// EventCommitted reports a successful commit.
	EventCommitted
	// EventCanceled reports an explicit cancel.
	EventCanceled
	// EventFailed reports a commit failure; the controller is Empty again.
	EventFailed
)

// Event is a controller notification, delivered synchronously to the
// configured notify function.
type Event struct {
	Err         error
	Transaction model.Transaction
	Kind        EventKind
	Remaining   int
	ID          int64
}

// CommitStore is the slice of the persistence contract the controller needs.
type CommitStore interface {
	CreateTransaction(ctx context.Context, txn model.Transaction) (int64, error)
}

// ticker abstracts time.Ticker so tests can drive the countdown manually.
type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) ticker { return realTicker{t: time.NewTicker(d)} }

// pending holds one awaiting parse result. done flips exactly once, on
// commit or cancel, which is what guarantees at most one commit per result.
type pending struct {
	ctx    context.Context
	ticker ticker
	stopCh chan struct{}
	result model.ParseResult
	left   int
	done   bool
}

// Controller implements the confirmation/commit protocol: show the parsed
// result, run a cancellable countdown, auto-commit on expiry or commit
// immediately on explicit confirmation.
type Controller struct {
	store     CommitStore
	logger    *slog.Logger
	notify    func(Event)
	newTicker func(time.Duration) ticker
	current   *pending
	countdown int
	state     State
	mu        sync.Mutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithCountdown overrides the number of countdown ticks.
func WithCountdown(ticks int) Option {
	return func(c *Controller) { c.countdown = ticks }
}

// WithNotify registers a function receiving controller events.
func WithNotify(fn func(Event)) Option {
	return func(c *Controller) { c.notify = fn }
}

// withTickerFactory overrides the ticker source; test hook.
func withTickerFactory(fn func(time.Duration) ticker) Option {
	return func(c *Controller) { c.newTicker = fn }
}

// NewController creates a controller committing to store.
func NewController(store CommitStore, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		store:     store,
		logger:    logger,
		countdown: DefaultCountdown,
		notify:    func(Event) {},
		newTicker: newRealTicker,
		state:     StateEmpty,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the held result and remaining ticks while awaiting
// confirmation.
func (c *Controller) Pending() (model.ParseResult, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.done {
		return model.ParseResult{}, 0, false
	}
	return c.current.result, c.current.left, true
}

// Propose hands an add-tagged parse result to the controller and starts the
// countdown. Any previously pending result is canceled first; only one may
// be active at a time.
func (c *Controller) Propose(ctx context.Context, result model.ParseResult) error {
	if !result.IsAdd() {
		return fmt.Errorf("only add results can be proposed, got %q", result.Intent)
	}

	c.Cancel()

	c.mu.Lock()
	p := &pending{
		result: result,
		left:   c.countdown,
		ticker: c.newTicker(time.Second),
		stopCh: make(chan struct{}),
		ctx:    ctx,
	}
	c.current = p
	c.state = StateAwaiting
	c.mu.Unlock()

	go c.run(p)
	return nil
}

// run drives the countdown for one pending result.
func (c *Controller) run(p *pending) {
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C():
			c.mu.Lock()
			if c.current != p || p.done {
				c.mu.Unlock()
				return
			}
			p.left--
			left := p.left
			c.mu.Unlock()

			c.notify(Event{Kind: EventTick, Remaining: left, Transaction: p.result.Transaction()})

			if left <= 0 {
				c.commit(p)
				return
			}
		}
	}
}

// Confirm commits the currently held result immediately, short-circuiting
// the countdown.
func (c *Controller) Confirm() error {
	c.mu.Lock()
	p := c.current
	if p == nil || p.done {
		c.mu.Unlock()
		return ErrNothingPending
	}
	c.mu.Unlock()

	c.commit(p)
	return nil
}

// commit performs the single allowed commit for p. The done flag resolves
// the race between countdown expiry and explicit confirmation: whichever
// arrives first wins and the other is a no-op.
func (c *Controller) commit(p *pending) {
	c.mu.Lock()
	if c.current != p || p.done {
		c.mu.Unlock()
		return
	}
	p.done = true
	p.ticker.Stop()
	close(p.stopCh)
	c.state = StateCommitting
	c.mu.Unlock()

	txn := p.result.Transaction()
	txn.Amount = model.SignedAmount(txn.Type, txn.Amount)

	id, err := c.store.CreateTransaction(p.ctx, txn)

	c.mu.Lock()
	if c.current == p {
		c.current = nil
	}
	c.state = StateEmpty
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("commit failed", "error", err, "category", txn.Category)
		c.notify(Event{Kind: EventFailed, Err: err, Transaction: txn})
		return
	}

	txn.ID = id
	c.logger.Info("transaction committed",
		"id", id,
		"type", txn.Type,
		"amount", txn.Amount,
		"category", txn.Category)
	c.notify(Event{Kind: EventCommitted, ID: id, Transaction: txn})
}

// Cancel discards the held result without persisting anything. Safe to call
// in any state.
func (c *Controller) Cancel() {
	c.mu.Lock()
	p := c.current
	if p == nil || p.done {
		c.mu.Unlock()
		return
	}
	p.done = true
	p.ticker.Stop()
	close(p.stopCh)
	c.current = nil
	c.state = StateEmpty
	result := p.result
	c.mu.Unlock()

	c.notify(Event{Kind: EventCanceled, Transaction: result.Transaction()})
}

// Close cancels any running countdown. Must be called on teardown so no
// timer fires into a destroyed context.
func (c *Controller) Close() {
	c.Cancel()
}
