// Package httputil holds the JSON request and response helpers shared by the
// API handlers and middleware.
package httputil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/R3E-Network/tracker/internal/errors"
)

// MaxBodyBytes caps request bodies read by ReadJSON.
const MaxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    errors.ErrorCode       `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteJSON writes data with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError maps err onto its service error and writes it. Errors outside
// the taxonomy become a generic 500 so internals never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		se = errors.Internal("internal server error", err)
	}
	status := se.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, ErrorResponse{Code: se.Code, Message: se.Message, Details: se.Details})
}

// ReadJSON decodes the request body into dst. Unknown fields are ignored;
// trailing data is rejected. Decode failures are validation errors.
func ReadJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.Validation("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.Validation("request body is required")
		}
		return errors.Validation("malformed JSON body: %s", err.Error())
	}
	if dec.More() {
		return errors.Validation("malformed JSON body: unexpected trailing data")
	}
	return nil
}
