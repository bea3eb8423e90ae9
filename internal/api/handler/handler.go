package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jinzhu/copier"
	jsonpatch "gopkg.in/evanphx/json-patch.v4"

	"github.com/webbase/adminapi/internal/api/response"
	"github.com/webbase/adminapi/internal/api/validation"
	"github.com/webbase/adminapi/internal/apperr"
	"github.com/webbase/adminapi/internal/listquery"
)

const maxBodyBytes = 1 << 20

const timeLayout = "2006-01-02T15:04:05Z"

// copyOptions renders timestamps the way every response does.
var copyOptions = copier.Option{
	Converters: []copier.TypeConverter{
		{
			SrcType: time.Time{},
			DstType: copier.String,
			Fn: func(src any) (any, error) {
				t, ok := src.(time.Time)
				if !ok {
					return nil, fmt.Errorf("expected time.Time, got %T", src)
				}
				return t.UTC().Format(timeLayout), nil
			},
		},
	},
}

// copyInto maps between models and DTOs by field name.
func copyInto(dst, src any) error {
	return copier.CopyWithOption(dst, src, copyOptions)
}

// decodeJSON reads a bounded JSON body into dst and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return false
	}
	return true
}

// parseID reads the {id} path parameter and writes a 400 when it is not a
// positive integer.
func parseID(w http.ResponseWriter, r *http.Request, requestID string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a positive integer", requestID)
		return 0, false
	}
	return id, true
}

// queryInt64 reads an optional integer filter. Absent means zero.
func queryInt64(q url.Values, name string) (int64, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, apperr.ClientInput("INVALID_PARAM", listquery.ErrInvalidParam, "%s must be an integer", name)
	}
	return n, nil
}

// applyPatch applies the RFC 6902 document in the request body to the JSON
// form of current and decodes the result into dst.
func applyPatch(w http.ResponseWriter, r *http.Request, current, dst any, requestID string) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body could not be read", requestID)
		return false
	}

	patch, err := jsonpatch.DecodePatch(body)
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_PATCH", "Request body must be a JSON Patch document", requestID)
		return false
	}

	doc, err := json.Marshal(current)
	if err != nil {
		response.Error(w, fmt.Errorf("encoding patch target: %w", err), requestID)
		return false
	}

	patched, err := patch.Apply(doc)
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_PATCH", fmt.Sprintf("Patch could not be applied: %v", err), requestID)
		return false
	}

	if err := json.Unmarshal(patched, dst); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_PATCH", "Patched document has invalid field types", requestID)
		return false
	}
	return true
}

// validationFailed writes the 422 for field errors and reports whether it
// did. A checker error is written as a server error.
func validationFailed(w http.ResponseWriter, errs []validation.FieldError, err error, requestID string) bool {
	if err != nil {
		response.Error(w, err, requestID)
		return true
	}
	if len(errs) > 0 {
		response.ErrWithDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Input validation failed", errs, requestID)
		return true
	}
	return false
}

type batchDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type batchDeleteResponse struct {
	Deleted int64   `json:"deleted"`
	Skipped []int64 `json:"skipped,omitempty"`
}

// deleteEach runs del for every id in turn. Ids that are gone or still
// referenced, as classified by mapErr, are skipped and reported; any other
// error stops the batch.
func deleteEach(ctx context.Context, ids []int64, del func(context.Context, int64) error, mapErr func(error) error) (batchDeleteResponse, error) {
	var res batchDeleteResponse
	for _, id := range ids {
		err := del(ctx, id)
		if err == nil {
			res.Deleted++
			continue
		}

		var (
			notFound *apperr.NotFoundError
			conflict *apperr.ConflictError
		)
		err = mapErr(err)
		if errors.As(err, &notFound) || errors.As(err, &conflict) {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		return res, err
	}
	return res, nil
}

// batchDelete decodes and validates a batch body, then deletes through
// deleteEach.
func batchDelete(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error, mapErr func(error) error, requestID string) {
	var req batchDeleteRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateBatchIDs(req.IDs), nil, requestID) {
		return
	}

	res, err := deleteEach(r.Context(), req.IDs, del, mapErr)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}
	response.Success(w, http.StatusOK, res, requestID)
}
