package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/korelabs/kore/internal/llm"
	"github.com/korelabs/kore/internal/model"
	"github.com/korelabs/kore/internal/schema"
)

// ErrBusy is returned when an utterance arrives while a previous one is
// still being processed.
var ErrBusy = errors.New("assistant is busy")

// Classifier is the slice of the intent pipeline the session needs.
type Classifier interface {
	Classify(ctx context.Context, utterance string, history []model.HistoryEntry, today time.Time) (model.ParseResult, error)
}

// HistoryStore supplies the bounded context window for classification.
type HistoryStore interface {
	CommitStore
	RecentHistory(ctx context.Context, n int) ([]model.Transaction, error)
}

// Speaker voices confirmation text; best-effort, never fails.
type Speaker interface {
	Speak(ctx context.Context, text string)
}

// Sender identifies who produced a chat message.
type Sender string

const (
	// SenderUser marks messages typed or spoken by the user.
	SenderUser Sender = "user"
	// SenderAssistant marks responses from the assistant.
	SenderAssistant Sender = "assistant"
)

// Message is one entry of the conversation log.
type Message struct {
	ID     string
	Sender Sender
	Text   string
	Result *model.ParseResult
}

// Session ties the intent pipeline together for one conversation: history
// snapshot, classification, validation, confirmation, and speech output.
type Session struct {
	classifier Classifier
	store      HistoryStore
	validator  *schema.Validator
	controller *Controller
	speaker    Speaker
	logger     *slog.Logger
	now        func() time.Time
	messages   []Message
	busy       chan struct{}
	msgMu      sync.Mutex
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSpeaker voices assistant responses through sp.
func WithSpeaker(sp Speaker) SessionOption {
	return func(s *Session) { s.speaker = sp }
}

// WithNow overrides the session's time source; tests inject a fixed date.
func WithNow(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates a conversation session. The controller is owned by the
// session and must be the one committing to the same store.
func NewSession(classifier Classifier, store HistoryStore, controller *Controller, logger *slog.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		classifier: classifier,
		store:      store,
		validator:  schema.New(),
		controller: controller,
		logger:     logger,
		now:        time.Now,
		busy:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Controller exposes the confirmation controller for UI layers.
func (s *Session) Controller() *Controller { return s.controller }

// Messages returns a copy of the conversation log.
func (s *Session) Messages() []Message {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// HandleUtterance processes one typed or transcribed utterance end to end:
// snapshot the history window, classify, validate (for add), start the
// confirmation countdown, and voice the response. Only one utterance may be
// in flight; concurrent calls get ErrBusy.
func (s *Session) HandleUtterance(ctx context.Context, text string) (Message, error) {
	select {
	case s.busy <- struct{}{}:
	default:
		return Message{}, ErrBusy
	}
	defer func() { <-s.busy }()

	s.append(Message{ID: uuid.NewString(), Sender: SenderUser, Text: text})

	// The history window is captured once, before the async call, so the
	// classifier sees a consistent snapshot.
	recent, err := s.store.RecentHistory(ctx, model.HistoryWindowSize)
	if err != nil {
		return Message{}, fmt.Errorf("failed to load history: %w", err)
	}
	history := model.NewHistoryWindow(recent)

	result, err := s.classifier.Classify(ctx, text, history, s.now())
	if err != nil {
		return Message{}, s.describeFailure(err)
	}

	if s.speaker != nil && result.Response != "" {
		go s.speaker.Speak(ctx, result.Response)
	}

	if result.IsAdd() {
		if _, err := s.validator.Validate(schema.Candidate{
			Type:     string(result.Type),
			Amount:   result.Amount,
			Category: result.Category,
			Date:     result.Date,
			Note:     result.Note,
		}); err != nil {
			return Message{}, fmt.Errorf("parsed transaction is invalid: %w", err)
		}

		if err := s.controller.Propose(ctx, result); err != nil {
			return Message{}, err
		}
	}

	reply := Message{
		ID:     uuid.NewString(),
		Sender: SenderAssistant,
		Text:   result.Response,
		Result: &result,
	}
	s.append(reply)
	return reply, nil
}

// describeFailure maps pipeline errors to the messages users see. No failure
// ever leaves a pending confirmation dangling.
func (s *Session) describeFailure(err error) error {
	var malformed *llm.MalformedResponseError
	switch {
	case llm.IsUnavailable(err):
		return fmt.Errorf("assistant unavailable: %w", err)
	case errors.As(err, &malformed):
		return fmt.Errorf("could not understand the response: %w", err)
	default:
		return err
	}
}

// Close tears the session down, cancelling any pending confirmation.
func (s *Session) Close() {
	s.controller.Close()
}

func (s *Session) append(msg Message) {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()
	s.messages = append(s.messages, msg)
}
