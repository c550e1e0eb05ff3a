package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/DukeRupert/kasir/internal/domain"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return domain.Errorf(domain.ETOOLARGE, op, "request body too large")
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "request body is empty")
		default:
			return domain.Invalid(op, "request body is not valid JSON")
		}
	}
	if dec.More() {
		return domain.Invalid(op, "request body must contain a single JSON object")
	}
	return nil
}
