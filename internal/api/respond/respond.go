// Package respond writes the JSON envelopes shared by handlers and middlewares.
package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/core"
)

type errorBody struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error maps err onto its HTTP status. Server-side failures are logged and
// reported with a generic message.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	status := core.StatusCode(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.Error("request failed", zap.Error(err))
		msg = http.StatusText(status)
	}
	JSON(w, status, errorBody{Error: msg})
}

// Redirect reports an error together with the page the client should show next.
func Redirect(w http.ResponseWriter, status int, msg, location string) {
	JSON(w, status, errorBody{Error: msg, Redirect: location})
}

// Decode reads a JSON request body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &decodeError{err}
	}
	return nil
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *decodeError) Unwrap() []error { return []error{core.ErrValidation, e.err} }
