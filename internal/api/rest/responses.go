package rest

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/cosai-tools/risk-navigator/internal/domain/errors"
	"github.com/cosai-tools/risk-navigator/internal/infrastructure/cache"
)

// errorResponse is the error envelope returned by every endpoint.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps domain errors to HTTP responses. AppError carries its own
// status code; session-store misses become 404s; anything else is a 500.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var notFound cache.ErrSessionNotFound
	if stderrors.As(err, &notFound) {
		err = errors.NewNotFoundError("session").WithCause(err)
	}

	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		slog.ErrorContext(ctx, "unhandled error", "error", err)
		appErr = errors.NewInternalError("an internal error occurred")
	}

	body := errorResponse{
		Error: errorBody{
			Code:      appErr.Code,
			Message:   appErr.Message,
			Details:   appErr.Details,
			RequestID: requestIDFromContext(ctx),
		},
	}
	if appErr.Retryable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, appErr.StatusCode, body)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewValidationError("INVALID_JSON", "request body is not valid JSON").WithCause(err)
	}
	return nil
}
