package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korelabs/kore/internal/model"
	"github.com/korelabs/kore/internal/ratelimit"
	"github.com/korelabs/kore/internal/storage"
)

// fakeAssistant returns scripted parse results.
type fakeAssistant struct {
	result    model.ParseResult
	err       error
	points    []model.ForecastPoint
	suggested string
}

func (f *fakeAssistant) Classify(_ context.Context, _ string, _ []model.HistoryEntry, _ time.Time) (model.ParseResult, error) {
	return f.result, f.err
}

func (f *fakeAssistant) SuggestCategory(_ context.Context, _ string, _ []string) string {
	return f.suggested
}

func (f *fakeAssistant) Forecast(_ context.Context, _ []model.HistoryEntry, _ float64, _ time.Time) ([]model.ForecastPoint, error) {
	return f.points, f.err
}

type fakeSynth struct {
	audio []byte
	err   error
}

func (f *fakeSynth) Synthesize(_ context.Context, _ string) ([]byte, error) {
	return f.audio, f.err
}

func newTestRouter(t *testing.T, assistant Assistant, opts ...HandlerOption) (*chi.Mux, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { store.Close() })

	opts = append([]HandlerOption{WithNow(func() time.Time {
		return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	})}, opts...)
	h := NewHandlers(store, assistant, ratelimit.New(), nil, opts...)

	r := chi.NewRouter()
	r.Route("/api", h.Mount)
	return r, store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestAssistantAddIntentReturnsCandidate(t *testing.T) {
	assistant := &fakeAssistant{result: model.ParseResult{
		Intent:   model.IntentAdd,
		Type:     model.TypeExpense,
		Category: "Food",
		Date:     "2025-03-10",
		Note:     "pizza",
		Amount:   50,
		Response: "Adding 50 to Food.",
	}}
	router, _ := newTestRouter(t, assistant)

	rec := doJSON(t, router, http.MethodPost, "/api/assistant", map[string]string{"text": "spent 50 on pizza"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp assistantResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "add", resp.Intent)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, "Food", resp.Transaction.Category)
	assert.Equal(t, 50.0, resp.Transaction.Amount, "candidate stays unsigned until commit")
}

func TestAssistantQueryIntentHasNoTransaction(t *testing.T) {
	assistant := &fakeAssistant{result: model.ParseResult{
		Intent:   model.IntentQuery,
		Response: "Ai cheltuit 80 pe Mâncare.",
	}}
	router, _ := newTestRouter(t, assistant)

	rec := doJSON(t, router, http.MethodPost, "/api/assistant", map[string]string{"text": "cât am cheltuit?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp assistantResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "query", resp.Intent)
	assert.Nil(t, resp.Transaction)
}

func TestAssistantRejectsEmptyText(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAssistant{})

	rec := doJSON(t, router, http.MethodPost, "/api/assistant", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssistantInvalidCandidateIs422(t *testing.T) {
	assistant := &fakeAssistant{result: model.ParseResult{
		Intent:   model.IntentAdd,
		Type:     model.TypeExpense,
		Category: "Food",
		Date:     "2025-03-10",
		Amount:   0,
		Response: "ok",
	}}
	router, _ := newTestRouter(t, assistant)

	rec := doJSON(t, router, http.MethodPost, "/api/assistant", map[string]string{"text": "spent nothing"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp["error"], "Amount")
}

func TestCreateTransactionAppliesSign(t *testing.T) {
	router, store := newTestRouter(t, &fakeAssistant{})

	rec := doJSON(t, router, http.MethodPost, "/api/transactions/", map[string]any{
		"type":     "expense",
		"category": "Food",
		"date":     "2025-03-09",
		"note":     "groceries",
		"amount":   120.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created transactionWire
	decodeBody(t, rec, &created)
	require.NotZero(t, created.ID)
	assert.Equal(t, -120.5, created.Amount)

	stored, err := store.GetTransaction(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, -120.5, stored.Amount)
}

func TestCreateTransactionValidation(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAssistant{})

	rec := doJSON(t, router, http.MethodPost, "/api/transactions/", map[string]any{
		"type":     "expense",
		"category": "Food",
		"date":     "2025-02-30",
		"amount":   10,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTransactionLifecycle(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAssistant{})

	rec := doJSON(t, router, http.MethodPost, "/api/transactions/", map[string]any{
		"type": "income", "category": "Salary", "date": "2025-03-01", "amount": 5000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created transactionWire
	decodeBody(t, rec, &created)

	path := "/api/transactions/" + itoa(created.ID)

	rec = doJSON(t, router, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, path, map[string]any{"note": "march salary"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, path, nil)
	var got transactionWire
	decodeBody(t, rec, &got)
	assert.Equal(t, "march salary", got.Note)

	rec = doJSON(t, router, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateRejectsUnknownType(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAssistant{})

	rec := doJSON(t, router, http.MethodPost, "/api/transactions/", map[string]any{
		"type": "expense", "category": "Food", "date": "2025-03-01", "amount": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created transactionWire
	decodeBody(t, rec, &created)

	rec = doJSON(t, router, http.MethodPatch, "/api/transactions/"+itoa(created.ID),
		map[string]any{"type": "transfer"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListTransactionsFilterByType(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAssistant{})

	for _, txn := range []map[string]any{
		{"type": "expense", "category": "Food", "date": "2025-03-01", "amount": 10},
		{"type": "income", "category": "Salary", "date": "2025-03-02", "amount": 5000},
	} {
		rec := doJSON(t, router, http.MethodPost, "/api/transactions/", txn)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/transactions/?type=income", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transactions []transactionWire `json:"transactions"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, "Salary", resp.Transactions[0].Category)
}

func TestBalanceEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAssistant{})

	doJSON(t, router, http.MethodPost, "/api/transactions/", map[string]any{
		"type": "income", "category": "Salary", "date": "2025-03-01", "amount": 100,
	})
	doJSON(t, router, http.MethodPost, "/api/transactions/", map[string]any{
		"type": "expense", "category": "Food", "date": "2025-03-02", "amount": 40,
	})

	rec := doJSON(t, router, http.MethodGet, "/api/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]float64
	decodeBody(t, rec, &resp)
	assert.Equal(t, 60.0, resp["balance"])
}

func TestSuggestCategoryEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAssistant{suggested: "Transport"})

	rec := doJSON(t, router, http.MethodPost, "/api/categories/suggest", map[string]string{"note": "uber"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Transport", resp["category"])
}

func TestForecastEndpoint(t *testing.T) {
	assistant := &fakeAssistant{points: []model.ForecastPoint{
		{Date: "2025-04-01", Reason: "salary", Balance: 5000},
	}}
	router, _ := newTestRouter(t, assistant)

	rec := doJSON(t, router, http.MethodGet, "/api/forecast", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Points []model.ForecastPoint `json:"points"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Points, 1)
	assert.Equal(t, 5000.0, resp.Points[0].Balance)
}

func TestSpeechEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAssistant{}, WithSynthesizer(&fakeSynth{audio: []byte("mp3")}))

	rec := doJSON(t, router, http.MethodPost, "/api/speech", map[string]string{"text": "salut"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte("mp3"), rec.Body.Bytes())
}

func TestSpeechEndpointRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAssistant{}, WithSynthesizer(&fakeSynth{audio: []byte("x")}))

	for i := 0; i < ratelimit.SpeechSynthesisLimit; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/speech", map[string]string{"text": "hi"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := doJSON(t, router, http.MethodPost, "/api/speech", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSpeechEndpointUnconfigured(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAssistant{})

	rec := doJSON(t, router, http.MethodPost, "/api/speech", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
