package file

import (
	"context"
	"errors"
	"net/http"

	"kineticafs/internal/blobstore"
	"kineticafs/internal/domain/bucket"
	"kineticafs/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusClientClosedRequest is logged when the client goes away mid-upload.
const statusClientClosedRequest = 499

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Initiate opens a new upload.
// @Summary	Initiate file upload
// @Tags		Files
// @Accept		json
// @Produce	json
// @Param		body	body	InitiateRequest	true	"payload"
// @Success	200	{object}	FileUpload
// @Router		/file [post]
func (h *Handler) Initiate(c *gin.Context) {
	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", ErrInvalidRequest.Error())
		return
	}
	f, err := h.service.Initiate(c.Request.Context(), req.RegionID, req.BucketCode)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

func (h *Handler) Get(c *gin.Context) {
	f, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// UploadBlob streams the raw request body into the blob slot.
// @Summary	Upload blob bytes
// @Tags		Files
// @Accept		application/octet-stream
// @Produce	json
// @Success	202	{object}	FileUpload
// @Router		/upload/{blobId} [patch]
func (h *Handler) UploadBlob(c *gin.Context) {
	f, err := h.service.UploadBlob(
		c.Request.Context(),
		c.Param("blobId"),
		c.Request.Body,
		c.Request.ContentLength,
		c.ContentType(),
	)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, f)
}

func (h *Handler) Finalize(c *gin.Context) {
	f, err := h.service.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

func (h *Handler) Delete(c *gin.Context) {
	f, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, DeletedResponse{ID: f.ID, State: f.State})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrFileNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "File upload not found")
	case errors.Is(err, bucket.ErrBucketNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Bucket not found")
	case errors.Is(err, ErrInvalidRequest):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrBlobNotUploaded), errors.Is(err, ErrAlreadyFinalized):
		response.Error(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, ErrBlobTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error())
	case errors.Is(err, blobstore.ErrLengthRequired):
		response.Error(c, http.StatusLengthRequired, "LENGTH_REQUIRED", "Content-Length is required for this bucket")
	case blobstore.IsTransient(err):
		_ = c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", "Storage backend unavailable, retry later")
	case errors.Is(err, context.Canceled):
		response.Error(c, statusClientClosedRequest, "CLIENT_CLOSED_REQUEST", "Request cancelled")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
