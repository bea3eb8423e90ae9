package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/webbase/adminapi/internal/apperr"
	"github.com/webbase/adminapi/internal/auth"
)

// Error writes err as an envelope, choosing status and code from its type.
// Unrecognized errors are logged and reported as INTERNAL_ERROR with a
// generic message.
func Error(w http.ResponseWriter, err error, requestID string) {
	var (
		input    *apperr.ClientInputError
		notFound *apperr.NotFoundError
		conflict *apperr.ConflictError
		config   *apperr.ConfigurationError
	)

	switch {
	case errors.As(err, &input):
		status := http.StatusBadRequest
		if input.Code == "VALIDATION_ERROR" {
			status = http.StatusUnprocessableEntity
		}
		Err(w, status, input.Code, input.Message, requestID)
	case errors.As(err, &notFound):
		Err(w, http.StatusNotFound, "NOT_FOUND", notFound.Message, requestID)
	case errors.As(err, &conflict):
		if conflict.References != nil {
			ErrWithDetails(w, http.StatusBadRequest, "REFERENCE_CONFLICT", conflict.Message, conflict.References, requestID)
			return
		}
		Err(w, http.StatusConflict, "CONFLICT", conflict.Message, requestID)
	case errors.As(err, &config):
		slog.Error("configuration error", "error", err, "requestId", requestID)
		Err(w, http.StatusInternalServerError, "CONFIGURATION_ERROR", "The server is misconfigured", requestID)
	case errors.Is(err, auth.ErrInvalidCredentials):
		Err(w, http.StatusNotFound, "INVALID_CREDENTIALS", auth.ErrInvalidCredentials.Error(), requestID)
	case errors.Is(err, auth.ErrForbidden):
		Err(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", requestID)
	case errors.Is(err, auth.ErrUnauthorized):
		Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "A valid bearer token is required", requestID)
	default:
		slog.Error("unhandled error", "error", err, "requestId", requestID)
		Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", requestID)
	}
}
