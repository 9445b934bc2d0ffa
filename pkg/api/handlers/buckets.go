package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dochive/dochive/pkg/engine"
)

// BucketHandler handles the bucket management endpoints.
type BucketHandler struct {
	engine *engine.Engine
}

// NewBucketHandler creates a BucketHandler.
func NewBucketHandler(e *engine.Engine) *BucketHandler {
	return &BucketHandler{engine: e}
}

// CreateBucketRequest is the request body for POST /api/buckets.
type CreateBucketRequest struct {
	Name string `json:"name"`
}

// ListBucketsResponse wraps the bucket listing.
type ListBucketsResponse struct {
	Buckets []*engine.BucketInfo `json:"buckets"`
}

// List handles GET /api/buckets.
func (h *BucketHandler) List(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.engine.ListBuckets(r.Context())
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	if buckets == nil {
		buckets = []*engine.BucketInfo{}
	}
	WriteJSON(w, http.StatusOK, ListBucketsResponse{Buckets: buckets})
}

// Create handles POST /api/buckets.
func (h *BucketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidBucketName, "invalid request body")
		return
	}

	info, err := h.engine.CreateBucket(r.Context(), req.Name)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, info)
}

// Ensure handles PUT /api/buckets/{bucket}: create if missing, return
// either way.
func (h *BucketHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.EnsureBucket(r.Context(), chi.URLParam(r, "bucket"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}

// Get handles GET /api/buckets/{bucket}.
func (h *BucketHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.GetBucket(r.Context(), chi.URLParam(r, "bucket"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}

// Delete handles DELETE /api/buckets/{bucket}. The bucket must be empty.
func (h *BucketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteBucket(r.Context(), chi.URLParam(r, "bucket")); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
