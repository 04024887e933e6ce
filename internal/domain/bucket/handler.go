package bucket

import (
	"errors"
	"net/http"

	"kineticafs/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create registers a backend. The secret key is echoed only in this response.
// @Summary	Register bucket
// @Tags		Buckets
// @Accept		json
// @Produce	json
// @Param		body	body	Spec	true	"bucket spec"
// @Success	200	{object}	Bucket
// @Router		/bucket [post]
func (h *Handler) Create(c *gin.Context) {
	var spec Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	b, err := h.service.Create(c.Request.Context(), spec)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) List(c *gin.Context) {
	buckets, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.Redacted())
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Get(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b.Redacted())
}

func (h *Handler) Update(c *gin.Context) {
	var spec Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	b, err := h.service.Update(c.Request.Context(), c.Param("id"), spec)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b.Redacted())
}

func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, DeletedResponse{ID: id, Deleted: true})
}

func (h *Handler) fail(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid bucket spec", verr.Fields)
	case errors.Is(err, ErrBucketNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Bucket not found")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
