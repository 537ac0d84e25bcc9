// Package speech voices assistant responses. The hosted provider is
// preferred; a local speech program covers rate-limited or failed calls,
// and when neither works the response stays text-only.
package speech

import (
	"context"
	"log/slog"
	"sync"

	"github.com/korelabs/kore/internal/ratelimit"
)

// Synthesizer converts text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Speaker speaks text best-effort: every failure degrades to the next
// tier and ultimately to silence. Speak never returns an error.
type Speaker struct {
	synth    Synthesizer
	player   Player
	fallback LocalVoice
	limiter  *ratelimit.Limiter
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSpeaker wires the synthesis tiers together. Any of synth, player and
// fallback may be nil; the Speaker skips tiers it cannot use.
func NewSpeaker(synth Synthesizer, player Player, fallback LocalVoice, limiter *ratelimit.Limiter, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		synth:    synth,
		player:   player,
		fallback: fallback,
		limiter:  limiter,
		logger:   logger,
	}
}

// Speak voices text. A new utterance interrupts whatever is still playing.
func (s *Speaker) Speak(ctx context.Context, text string) {
	if text == "" {
		return
	}

	ctx = s.beginUtterance(ctx)

	if s.trySynthesis(ctx, text) {
		return
	}
	s.tryFallback(ctx, text)
}

// beginUtterance cancels the previous playback and registers the new one.
func (s *Speaker) beginUtterance(ctx context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, s.cancel = context.WithCancel(ctx)
	return ctx
}

func (s *Speaker) trySynthesis(ctx context.Context, text string) bool {
	if s.synth == nil || s.player == nil {
		return false
	}
	if s.limiter != nil && !s.limiter.Check(ratelimit.KeySpeechSynthesis,
		ratelimit.SpeechSynthesisLimit, ratelimit.SpeechSynthesisWindow) {
		s.logger.Debug("speech synthesis rate limited, using fallback")
		return false
	}

	audio, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		s.logger.Debug("speech synthesis failed", "error", err)
		return false
	}
	if err := s.player.Play(ctx, audio); err != nil {
		if ctx.Err() != nil {
			// Interrupted by a newer utterance; nothing to recover.
			return true
		}
		s.logger.Debug("audio playback failed", "error", err)
		return false
	}
	return true
}

func (s *Speaker) tryFallback(ctx context.Context, text string) {
	if s.fallback == nil {
		return
	}
	if err := s.fallback.Say(ctx, text); err != nil && ctx.Err() == nil {
		s.logger.Debug("local speech failed", "error", err)
	}
}

// Stop interrupts any playback in flight.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
