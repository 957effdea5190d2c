// Package httputil centralizes JSON encoding and domain-error translation for
// HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "domio/pkg/domain-errors"
)

// Validatable is implemented by request types that validate and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError maps a coded domain error onto an HTTP status and JSON body.
// Internal errors omit the description so infrastructure details never leak
// to API callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)

	body := errorBody{Error: errorTag(code)}
	if code != dErrors.CodeInternal && code != dErrors.CodeUnavailable {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message
		}
	}
	WriteJSON(w, status, body)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvariantViolation:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodePartialFailure:
		// The operation neither fully succeeded nor cleanly failed; callers
		// must not blindly retry, so this is not a 5xx.
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorTag(code dErrors.Code) string {
	switch code {
	case dErrors.CodeInternal:
		return "internal_error"
	default:
		return string(code)
	}
}

// DecodeAndPrepare decodes the request body into T and runs its validation.
// On failure it writes the error response and returns ok=false; handlers can
// simply return.
func DecodeAndPrepare[T any, PT interface {
	Validatable
	*T
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "failed to decode request body",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	if err := PT(req).Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
