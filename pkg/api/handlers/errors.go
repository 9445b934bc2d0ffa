// Package handlers implements the bucket and object HTTP endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dochive/dochive/internal/logger"
	"github.com/dochive/dochive/pkg/catalog/models"
	"github.com/dochive/dochive/pkg/engine"
)

// Error codes surfaced in the response envelope.
const (
	CodeBucketNotFound      = "BucketNotFound"
	CodeBucketAlreadyExists = "BucketAlreadyExists"
	CodeBucketNotEmpty      = "BucketNotEmpty"
	CodeInvalidBucketName   = "InvalidBucketName"
	CodeObjectNotFound      = "ObjectNotFound"
	CodeObjectAlreadyExists = "ObjectAlreadyExists"
	CodeInvalidFilename     = "InvalidFilename"
	CodeFileTooLarge        = "FileTooLarge"
	CodeInvalidContentType  = "InvalidContentType"
	CodeStorageError        = "StorageError"
	CodeInternalError       = "InternalError"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.Err(err))
	}
}

// WriteError writes the standard error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: errorBody{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// WriteDomainError maps engine and catalog errors onto status codes and
// envelope codes.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, CodeInternalError

	switch {
	case errors.Is(err, engine.ErrInvalidBucketName):
		status, code = http.StatusBadRequest, CodeInvalidBucketName
	case errors.Is(err, engine.ErrInvalidFilename):
		status, code = http.StatusBadRequest, CodeInvalidFilename
	case errors.Is(err, engine.ErrFileTooLarge):
		status, code = http.StatusBadRequest, CodeFileTooLarge
	case errors.Is(err, models.ErrBucketNotFound):
		status, code = http.StatusNotFound, CodeBucketNotFound
	case errors.Is(err, models.ErrObjectNotFound):
		status, code = http.StatusNotFound, CodeObjectNotFound
	case errors.Is(err, models.ErrDuplicateBucket):
		status, code = http.StatusConflict, CodeBucketAlreadyExists
	case errors.Is(err, models.ErrDuplicateObject):
		status, code = http.StatusConflict, CodeObjectAlreadyExists
	case errors.Is(err, models.ErrBucketNotEmpty):
		status, code = http.StatusConflict, CodeBucketNotEmpty
	case errors.Is(err, engine.ErrStorage):
		// The row exists but its blob does not: the object is effectively
		// gone from the caller's point of view.
		status, code = http.StatusNotFound, CodeStorageError
	}

	if status == http.StatusInternalServerError {
		logger.ErrorCtx(r.Context(), "request failed", logger.Err(err))
	}

	WriteError(w, r, status, code, err.Error())
}
