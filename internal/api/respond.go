package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ignite/newsletter-engine/internal/domain"
)

// errorBody is the wire shape for all business-rule failures. The UI maps
// the code to a user-facing message; it never parses the message text.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("[api] encode response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// writeDomainError maps the workflow error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is a storage fault and surfaces as a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		validation   *domain.ValidationError
		notFound     *domain.NotFoundError
		invalidState *domain.InvalidStateError
		conflict     *domain.ConflictError
		notSupported *domain.MethodNotSupportedError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Code(), validation.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Code(), notFound.Error())
	case errors.As(err, &invalidState):
		writeError(w, http.StatusBadRequest, invalidState.Code(), invalidState.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, conflict.Code(), conflict.Error())
	case errors.As(err, &notSupported):
		writeError(w, http.StatusMethodNotAllowed, notSupported.Code(), notSupported.Error())
	default:
		log.Printf("[api] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
