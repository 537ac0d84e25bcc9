package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/korelabs/kore/internal/llm"
	"github.com/korelabs/kore/internal/schema"
	"github.com/korelabs/kore/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Unrecognized
// errors become a generic 500 so internals never leak to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *schema.ValidationError
	var merr *llm.MalformedResponseError
	var serr *llm.ServiceError

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Message)
	case errors.Is(err, llm.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "assistant is not configured")
	case errors.As(err, &merr):
		writeError(w, http.StatusBadGateway, "assistant returned an unusable response")
	case errors.As(err, &serr):
		writeError(w, http.StatusBadGateway, "assistant service error")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
