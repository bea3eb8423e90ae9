package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/webbase/adminapi/internal/listquery"
)

// PaginationHeader carries list metadata so list bodies stay plain arrays.
const PaginationHeader = "X-Pagination"

// Meta holds metadata for every API response.
type Meta struct {
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// Pagination is serialized into the X-Pagination header of list responses.
type Pagination struct {
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
	PageIndex  int `json:"pageIndex"`
	PageSize   int `json:"pageSize"`
}

// APIError represents a structured API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the standard API response wrapper.
type Envelope struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
	Meta  Meta      `json:"meta"`
}

// NewMeta creates a Meta with a new UUID and current timestamp.
// If requestID is provided, it uses that instead of generating a new one.
func NewMeta(requestID string) Meta {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return Meta{
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// PaginationOf copies the metadata of a list result.
func PaginationOf[T any](res *listquery.Result[T]) Pagination {
	return Pagination{
		TotalCount: res.TotalCount,
		TotalPages: res.TotalPages,
		PageIndex:  res.PageIndex,
		PageSize:   res.PageSize,
	}
}

// JSON writes a JSON response with the given status code and envelope.
func JSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Success writes a successful JSON response.
func Success(w http.ResponseWriter, status int, data any, requestID string) {
	JSON(w, status, Envelope{
		Data:  data,
		Error: nil,
		Meta:  NewMeta(requestID),
	})
}

// Page writes a 200 list response: items in the body, pagination in the
// X-Pagination header.
func Page(w http.ResponseWriter, p Pagination, items any, requestID string) {
	header, err := json.Marshal(p)
	if err != nil {
		slog.Error("failed to encode pagination header", "error", err)
	} else {
		w.Header().Set(PaginationHeader, string(header))
	}
	Success(w, http.StatusOK, items, requestID)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Err writes an error JSON response.
func Err(w http.ResponseWriter, status int, code string, message string, requestID string) {
	JSON(w, status, Envelope{
		Data: nil,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: NewMeta(requestID),
	})
}

// ErrWithDetails writes an error JSON response with additional details.
func ErrWithDetails(w http.ResponseWriter, status int, code string, message string, details any, requestID string) {
	JSON(w, status, Envelope{
		Data: nil,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: NewMeta(requestID),
	})
}
