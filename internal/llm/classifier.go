// Package llm turns natural-language utterances into structured financial
// intents using an external text-generation service.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/korelabs/kore/internal/model"
	"github.com/korelabs/kore/internal/ratelimit"
)

// Classifier converts utterances plus a bounded history window into typed
// parse results. It is a pure function of its inputs apart from the
// nondeterministic upstream model; the current date is injected by the
// caller, never read from the system clock here.
type Classifier struct {
	client  Client
	limiter *ratelimit.Limiter
	cache   *suggestionCache
	logger  *slog.Logger
}

// NewClassifier creates a classifier over the given client. The rate limiter
// only gates the best-effort category-suggestion path; intent classification
// is always attempted.
func NewClassifier(client Client, limiter *ratelimit.Limiter, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		client:  client,
		limiter: limiter,
		cache:   newSuggestionCache(0),
		logger:  logger,
	}
}

// parseWire mirrors the JSON object the model is instructed to emit.
type parseWire struct {
	Intent   string  `json:"intent"`
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Note     string  `json:"note"`
	Date     string  `json:"date"`
	Response string  `json:"conversational_response"`
	Amount   float64 `json:"amount"`
}

// Classify analyzes an utterance against the supplied history snapshot and
// returns exactly one tagged result. Every call is a single attempt; there
// is no automatic retry.
func (c *Classifier) Classify(ctx context.Context, utterance string, history []model.HistoryEntry, today time.Time) (model.ParseResult, error) {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return model.ParseResult{}, fmt.Errorf("failed to serialize history: %w", err)
	}

	prompt := buildParsePrompt(utterance, string(historyJSON), today)

	raw, err := c.client.Generate(ctx, prompt)
	if err != nil {
		return model.ParseResult{}, fmt.Errorf("classification failed: %w", err)
	}

	clean := sanitizeResponse(raw)

	var wire parseWire
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return model.ParseResult{}, newMalformedResponseError(clean)
	}

	result, err := c.resultFromWire(wire, clean, today)
	if err != nil {
		return model.ParseResult{}, err
	}

	c.logger.Info("utterance classified",
		"intent", result.Intent,
		"category", result.Category,
		"amount", result.Amount)

	return result, nil
}

// resultFromWire validates the wire object against the output schema and
// applies the defaulting rules for the add path.
func (c *Classifier) resultFromWire(wire parseWire, raw string, today time.Time) (model.ParseResult, error) {
	if wire.Response == "" {
		return model.ParseResult{}, newMalformedResponseError(raw)
	}

	result := model.ParseResult{Response: wire.Response}

	switch model.Intent(wire.Intent) {
	case model.IntentQuery:
		result.Intent = model.IntentQuery
		return result, nil
	case model.IntentForecast:
		result.Intent = model.IntentForecast
		return result, nil
	case model.IntentAdd:
		result.Intent = model.IntentAdd
	default:
		return model.ParseResult{}, newMalformedResponseError(raw)
	}

	// Type defaults to expense when unclear.
	switch model.TransactionType(wire.Type) {
	case model.TypeIncome:
		result.Type = model.TypeIncome
	default:
		result.Type = model.TypeExpense
	}

	// The classifier always hands out a positive magnitude; the commit
	// controller applies the sign.
	if wire.Amount < 0 {
		wire.Amount = -wire.Amount
	}
	result.Amount = wire.Amount
	result.Note = wire.Note

	// The add path is constrained to the fixed vocabulary; anything the
	// model invents is coerced to Other. Free-form categories exist only in
	// the suggestion flow.
	if model.KnownCategory(wire.Category) {
		result.Category = wire.Category
	} else {
		c.logger.Debug("coercing unknown category", "category", wire.Category)
		result.Category = "Other"
	}

	// Dates must always resolve to a valid calendar date; default to today.
	if t, err := time.Parse(model.DateLayout, wire.Date); err == nil {
		result.Date = t.Format(model.DateLayout)
	} else {
		result.Date = today.Format(model.DateLayout)
	}

	return result, nil
}

// suggestionWire is the response shape of the category-suggestion call.
type suggestionWire struct {
	Category string `json:"category"`
}

// SuggestCategory returns a category for a free-text note: an existing one
// when it fits, otherwise a new single-word capitalized name. The call is
// best-effort: rate-limit denial, service failure, and malformed output all
// degrade to an empty string rather than an error.
func (c *Classifier) SuggestCategory(ctx context.Context, note string, existing []string) string {
	if strings.TrimSpace(note) == "" {
		return ""
	}

	if category, found := c.cache.get(note); found {
		return category
	}

	if c.limiter != nil && !c.limiter.Check(ratelimit.KeyCategorySuggestion, ratelimit.CategorySuggestionLimit, ratelimit.CategorySuggestionWindow) {
		c.logger.Debug("category suggestion skipped by rate limiter")
		return ""
	}

	raw, err := c.client.Generate(ctx, buildSuggestPrompt(note, existing))
	if err != nil {
		c.logger.Warn("category suggestion failed", "error", err)
		return ""
	}

	var wire suggestionWire
	if err := json.Unmarshal([]byte(sanitizeResponse(raw)), &wire); err != nil {
		c.logger.Warn("category suggestion returned malformed JSON")
		return ""
	}

	category := capitalize(strings.TrimSpace(wire.Category))
	if category != "" {
		c.cache.set(note, category)
	}
	return category
}

// Forecast projects the daily balance for the next 30 days from up to 90
// days of history and the current balance.
func (c *Classifier) Forecast(ctx context.Context, history []model.HistoryEntry, currentBalance float64, today time.Time) ([]model.ForecastPoint, error) {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize history: %w", err)
	}

	raw, err := c.client.Generate(ctx, buildForecastPrompt(string(historyJSON), currentBalance, today))
	if err != nil {
		return nil, fmt.Errorf("forecast failed: %w", err)
	}

	clean := sanitizeResponse(raw)

	var points []model.ForecastPoint
	if err := json.Unmarshal([]byte(clean), &points); err != nil {
		return nil, newMalformedResponseError(clean)
	}
	if len(points) == 0 {
		return nil, newMalformedResponseError(clean)
	}

	return points, nil
}

// Close releases background resources.
func (c *Classifier) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	return nil
}

// IsUnavailable reports whether err means the AI feature is not configured.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// capitalize upper-cases the first rune of a suggestion.
func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
