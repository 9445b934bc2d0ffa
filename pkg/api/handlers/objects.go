package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dochive/dochive/internal/logger"
	"github.com/dochive/dochive/pkg/engine"
	"github.com/dochive/dochive/pkg/naming"
)

// claimedTypeHeader carries the client's asserted content type on PUT
// uploads, where Content-Type describes the transport body instead.
const claimedTypeHeader = "X-Claimed-Content-Type"

// ObjectHandler handles the object endpoints.
type ObjectHandler struct {
	engine *engine.Engine
}

// NewObjectHandler creates an ObjectHandler.
func NewObjectHandler(e *engine.Engine) *ObjectHandler {
	return &ObjectHandler{engine: e}
}

// ListObjectsResponse wraps one page of an object listing.
type ListObjectsResponse struct {
	Objects  []*engine.ObjectInfo `json:"objects"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
	Total    int64                `json:"total"`
}

// wildcardKey extracts and percent-decodes (once) the trailing wildcard
// path segment.
func wildcardKey(r *http.Request) (string, error) {
	return naming.NormalizeObjectKey(chi.URLParam(r, "*"))
}

// yearParam parses the optional ?year override. A malformed value falls
// back to the default (current year) with a warning.
func yearParam(r *http.Request) int {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 0 {
		logger.WarnCtx(r.Context(), "ignoring malformed year parameter", "year", raw)
		return 0
	}
	return year
}

// List handles GET /api/buckets/{bucket}/objects.
func (h *ObjectHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if page < 1 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 100
	}

	objects, total, err := h.engine.ListObjects(r.Context(), chi.URLParam(r, "bucket"), page, pageSize, q.Get("prefix"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	if objects == nil {
		objects = []*engine.ObjectInfo{}
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 1000 {
		pageSize = 1000
	}

	WriteJSON(w, http.StatusOK, ListObjectsResponse{
		Objects:  objects,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

// Upload handles PUT /api/buckets/{bucket}/objects/{*key}: the request
// body streams straight into the engine.
func (h *ObjectHandler) Upload(w http.ResponseWriter, r *http.Request) {
	key, err := wildcardKey(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidFilename, err.Error())
		return
	}

	info, err := h.engine.Upload(r.Context(), engine.UploadRequest{
		Bucket:             chi.URLParam(r, "bucket"),
		Filename:           key,
		Body:               r.Body,
		ClaimedContentType: r.Header.Get(claimedTypeHeader),
		Year:               yearParam(r),
	})
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, info)
}

// UploadForm handles POST /api/buckets/{bucket}/objects/form: a multipart
// upload that takes the first file part's name and content type.
func (h *ObjectHandler) UploadForm(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidContentType, "request is not multipart/form-data")
		return
	}

	part, err := firstFilePart(reader)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidContentType, "multipart body contains no file part")
		return
	}
	defer part.Close()

	info, err := h.engine.Upload(r.Context(), engine.UploadRequest{
		Bucket:             chi.URLParam(r, "bucket"),
		Filename:           part.FileName(),
		Body:               part,
		ClaimedContentType: part.Header.Get("Content-Type"),
		Year:               yearParam(r),
	})
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, info)
}

// firstFilePart advances the multipart reader to the first part that
// carries a filename.
func firstFilePart(reader *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := reader.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

// writeObjectHeaders sets the download headers shared by GET and HEAD.
func (h *ObjectHandler) writeObjectHeaders(w http.ResponseWriter, info *engine.ObjectInfo) {
	w.Header().Set("Content-Type", info.ServedContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.SizeBytes, 10))
	w.Header().Set("ETag", fmt.Sprintf(`"%s"`, info.SHA256))
	w.Header().Set("Content-Disposition", h.engine.DispositionFor(info))
}

func (h *ObjectHandler) serve(w http.ResponseWriter, r *http.Request, stream io.ReadSeekCloser, info *engine.ObjectInfo) {
	defer stream.Close()
	h.writeObjectHeaders(w, info)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, stream); err != nil {
		logger.WarnCtx(r.Context(), "download interrupted",
			logger.DocID(info.DocID), logger.Err(err))
	}
}

// DownloadByID handles GET /api/buckets/{bucket}/objects/{docID}.
func (h *ObjectHandler) DownloadByID(w http.ResponseWriter, r *http.Request) {
	stream, info, err := h.engine.DownloadByID(r.Context(), chi.URLParam(r, "bucket"), chi.URLParam(r, "docID"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	h.serve(w, r, stream, info)
}

// DownloadByName handles GET /api/buckets/{bucket}/objects/by-name/{*key}.
func (h *ObjectHandler) DownloadByName(w http.ResponseWriter, r *http.Request) {
	key, err := wildcardKey(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidFilename, err.Error())
		return
	}
	stream, info, err := h.engine.DownloadByName(r.Context(), chi.URLParam(r, "bucket"), key)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	h.serve(w, r, stream, info)
}

// DownloadCrossBucket handles GET /api/objects/{docID}.
func (h *ObjectHandler) DownloadCrossBucket(w http.ResponseWriter, r *http.Request) {
	stream, info, err := h.engine.DownloadByID(r.Context(), "", chi.URLParam(r, "docID"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	h.serve(w, r, stream, info)
}

// HeadByID handles HEAD /api/buckets/{bucket}/objects/{docID}.
func (h *ObjectHandler) HeadByID(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.HeadByID(r.Context(), chi.URLParam(r, "bucket"), chi.URLParam(r, "docID"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	h.writeObjectHeaders(w, info)
	w.WriteHeader(http.StatusOK)
}

// HeadByName handles HEAD /api/buckets/{bucket}/objects/by-name/{*key}.
func (h *ObjectHandler) HeadByName(w http.ResponseWriter, r *http.Request) {
	key, err := wildcardKey(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidFilename, err.Error())
		return
	}
	info, err := h.engine.HeadByName(r.Context(), chi.URLParam(r, "bucket"), key)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	h.writeObjectHeaders(w, info)
	w.WriteHeader(http.StatusOK)
}

// DeleteByID handles DELETE /api/buckets/{bucket}/objects/{docID}.
func (h *ObjectHandler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteByID(r.Context(), chi.URLParam(r, "bucket"), chi.URLParam(r, "docID")); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteByName handles DELETE /api/buckets/{bucket}/objects/by-name/{*key}.
func (h *ObjectHandler) DeleteByName(w http.ResponseWriter, r *http.Request) {
	key, err := wildcardKey(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidFilename, err.Error())
		return
	}
	if err := h.engine.DeleteByName(r.Context(), chi.URLParam(r, "bucket"), key); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCrossBucket handles DELETE /api/objects/{docID}.
func (h *ObjectHandler) DeleteCrossBucket(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteByID(r.Context(), "", chi.URLParam(r, "docID")); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
