package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/korelabs/kore/internal/model"
	"github.com/korelabs/kore/internal/ratelimit"
	"github.com/korelabs/kore/internal/schema"
	"github.com/korelabs/kore/internal/service"
	"github.com/korelabs/kore/internal/speech"
)

// Assistant is the language-understanding surface the API depends on.
type Assistant interface {
	Classify(ctx context.Context, utterance string, history []model.HistoryEntry, today time.Time) (model.ParseResult, error)
	SuggestCategory(ctx context.Context, note string, existing []string) string
	Forecast(ctx context.Context, history []model.HistoryEntry, currentBalance float64, today time.Time) ([]model.ForecastPoint, error)
}

// Handlers holds the API's collaborators.
type Handlers struct {
	store     service.Storage
	assistant Assistant
	validator *schema.Validator
	synth     speech.Synthesizer
	limiter   *ratelimit.Limiter
	logger    *slog.Logger
	now       func() time.Time
}

// HandlerOption configures optional collaborators.
type HandlerOption func(*Handlers)

// WithSynthesizer enables the speech proxy endpoint.
func WithSynthesizer(s speech.Synthesizer) HandlerOption {
	return func(h *Handlers) { h.synth = s }
}

// WithNow overrides the wall clock; used by tests for a fixed "today".
func WithNow(now func() time.Time) HandlerOption {
	return func(h *Handlers) { h.now = now }
}

// NewHandlers wires the API handler set.
func NewHandlers(store service.Storage, assistant Assistant, limiter *ratelimit.Limiter, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		store:     store,
		assistant: assistant,
		validator: schema.New(),
		limiter:   limiter,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mount attaches all API routes under the given router.
func (h *Handlers) Mount(r chi.Router) {
	r.Post("/assistant", h.handleAssistant)
	r.Post("/categories/suggest", h.handleSuggestCategory)
	r.Get("/forecast", h.handleForecast)
	r.Post("/speech", h.handleSpeech)

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.handleListTransactions)
		r.Post("/", h.handleCreateTransaction)
		r.Get("/{id}", h.handleGetTransaction)
		r.Patch("/{id}", h.handleUpdateTransaction)
		r.Delete("/{id}", h.handleDeleteTransaction)
	})

	r.Get("/balance", h.handleBalance)
	r.Get("/summary", h.handleSummary)
}

// transactionWire is the API representation of a transaction.
type transactionWire struct {
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
	Note     string  `json:"note"`
	ID       int64   `json:"id,omitempty"`
	Amount   float64 `json:"amount"`
}

func toWire(t model.Transaction) transactionWire {
	return transactionWire{
		ID:       t.ID,
		Type:     string(t.Type),
		Category: t.Category,
		Date:     t.Date,
		Note:     t.Note,
		Amount:   t.Amount,
	}
}

type assistantRequest struct {
	Text string `json:"text"`
}

type assistantResponse struct {
	Intent      string           `json:"intent"`
	Response    string           `json:"response"`
	Transaction *transactionWire `json:"transaction,omitempty"`
}

// handleAssistant parses one utterance against the stored history. An add
// intent only returns the validated candidate; committing it is a separate
// POST to /transactions, so clients keep the confirmation step.
func (h *Handlers) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	history, err := h.store.RecentHistory(r.Context(), model.HistoryWindowSize)
	if err != nil {
		h.logger.Error("loading history", "error", err)
		writeDomainError(w, err)
		return
	}

	result, err := h.assistant.Classify(r.Context(), req.Text, model.NewHistoryWindow(history), h.now())
	if err != nil {
		h.logger.Warn("classification failed", "error", err)
		writeDomainError(w, err)
		return
	}

	resp := assistantResponse{Intent: string(result.Intent), Response: result.Response}
	if result.IsAdd() {
		txn, err := h.validator.Validate(schema.Candidate{
			Type:     string(result.Type),
			Category: result.Category,
			Date:     result.Date,
			Note:     result.Note,
			Amount:   result.Amount,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		wire := toWire(txn)
		resp.Transaction = &wire
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	category := h.assistant.SuggestCategory(r.Context(), req.Note, model.Categories)
	writeJSON(w, http.StatusOK, map[string]string{"category": category})
}

func (h *Handlers) handleForecast(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.RecentHistory(r.Context(), model.HistoryWindowSize)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	balance, err := h.store.Balance(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	points, err := h.assistant.Forecast(r.Context(), model.NewHistoryWindow(history), balance, h.now())
	if err != nil {
		h.logger.Warn("forecast failed", "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

// handleSpeech proxies text-to-speech so the provider key never reaches
// clients. Responses are raw audio.
func (h *Handlers) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if h.synth == nil {
		writeError(w, http.StatusServiceUnavailable, "speech synthesis is not configured")
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	if h.limiter != nil && !h.limiter.Check(ratelimit.KeySpeechSynthesis,
		ratelimit.SpeechSynthesisLimit, ratelimit.SpeechSynthesisWindow) {
		writeError(w, http.StatusTooManyRequests, "speech synthesis rate limit exceeded")
		return
	}

	audio, err := h.synth.Synthesize(r.Context(), req.Text)
	if err != nil {
		h.logger.Warn("speech synthesis failed", "error", err)
		writeError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func (h *Handlers) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txns, err := h.store.GetTransactions(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	wire := make([]transactionWire, 0, len(txns))
	for _, t := range txns {
		wire = append(wire, toWire(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": wire})
}

// handleCreateTransaction validates a manual entry and persists it with the
// sign convention applied.
func (h *Handlers) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var candidate schema.Candidate
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.validator.Validate(candidate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	txn.Amount = model.SignedAmount(txn.Type, txn.Amount)

	id, err := h.store.CreateTransaction(r.Context(), txn)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	txn.ID = id
	writeJSON(w, http.StatusCreated, toWire(txn))
}

func (h *Handlers) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	txn, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWire(*txn))
}

func (h *Handlers) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req struct {
		Type     *string  `json:"type"`
		Category *string  `json:"category"`
		Date     *string  `json:"date"`
		Note     *string  `json:"note"`
		Amount   *float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := service.TransactionUpdate{
		Amount:   req.Amount,
		Category: req.Category,
		Date:     req.Date,
		Note:     req.Note,
	}
	if req.Type != nil {
		typ := model.TransactionType(*req.Type)
		if typ != model.TypeIncome && typ != model.TypeExpense {
			writeError(w, http.StatusUnprocessableEntity, "Transaction type must be income or expense")
			return
		}
		update.Type = &typ
	}

	if err := h.store.UpdateTransaction(r.Context(), id, update); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handlers) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	if err := h.store.DeleteTransaction(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.store.Balance(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"balance": balance})
}

func (h *Handlers) handleSummary(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	start := now.AddDate(0, -1, 0)
	end := now
	var err error
	if s := r.URL.Query().Get("start"); s != "" {
		if start, err = time.Parse(model.DateLayout, s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if end, err = time.Parse(model.DateLayout, s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
	}

	summary, err := h.store.SummaryByCategory(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func idFromURL(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func filterFromQuery(r *http.Request) (service.TransactionFilter, error) {
	var filter service.TransactionFilter
	q := r.URL.Query()

	if s := q.Get("start"); s != "" {
		t, err := time.Parse(model.DateLayout, s)
		if err != nil {
			return filter, errInvalidQuery("start")
		}
		filter.StartDate = &t
	}
	if s := q.Get("end"); s != "" {
		t, err := time.Parse(model.DateLayout, s)
		if err != nil {
			return filter, errInvalidQuery("end")
		}
		filter.EndDate = &t
	}
	if s := q.Get("type"); s != "" {
		typ := model.TransactionType(s)
		if typ != model.TypeIncome && typ != model.TypeExpense {
			return filter, errInvalidQuery("type")
		}
		filter.Type = typ
	}
	filter.Category = q.Get("category")

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return filter, errInvalidQuery("limit")
		}
		filter.Limit = n
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return filter, errInvalidQuery("offset")
		}
		filter.Offset = n
	}
	return filter, nil
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string { return "invalid query parameter: " + string(e) }
