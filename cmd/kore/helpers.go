package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/korelabs/kore/internal/config"
	"github.com/korelabs/kore/internal/llm"
	"github.com/korelabs/kore/internal/ratelimit"
	"github.com/korelabs/kore/internal/service"
	"github.com/korelabs/kore/internal/speech"
	"github.com/korelabs/kore/internal/storage"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "kore", "kore.db")
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initClassifier builds the Gemini-backed classifier from config. The API
// key comes from gemini.api_key or KORE_GEMINI_API_KEY.
func initClassifier(limiter *ratelimit.Limiter) (*llm.Classifier, error) {
	client, err := llm.NewGeminiClient(llm.Config{
		APIKey:      viper.GetString("gemini.api_key"),
		Model:       viper.GetString("gemini.model"),
		Timeout:     viper.GetDuration("gemini.timeout"),
		Temperature: viper.GetFloat64("gemini.temperature"),
	})
	if err != nil {
		return nil, err
	}
	return llm.NewClassifier(client, limiter, slog.Default()), nil
}

// initSpeaker assembles the optional speech output chain. Every tier may
// be absent; the caller receives a speaker that degrades accordingly.
func initSpeaker(limiter *ratelimit.Limiter) *speech.Speaker {
	var synth speech.Synthesizer
	client, err := speech.NewElevenLabsClient(speech.Config{
		APIKey:  viper.GetString("elevenlabs.api_key"),
		VoiceID: viper.GetString("elevenlabs.voice_id"),
		ModelID: viper.GetString("elevenlabs.model_id"),
		Timeout: viper.GetDuration("elevenlabs.timeout"),
	})
	if err == nil {
		synth = client
	} else {
		slog.Debug("hosted speech disabled", "error", err)
	}

	return speech.NewSpeaker(synth, speech.NewCommandPlayer(), speech.NewCommandVoice(), limiter, slog.Default())
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return &t, nil
}
