package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"pf-challenge/internal/errs"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// WriteError maps the engine error taxonomy onto HTTP statuses. Races and
// already-terminal states come back as 409 so clients treat them as notices.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrInsufficientBalance):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errs.IsRecoverable(err):
		WriteJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}
