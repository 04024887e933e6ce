package token

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

// FirstRun reports whether the system still awaits bootstrap.
// @Summary	Check first run
// @Tags		ServiceTokens
// @Produce	json
// @Success	200	{object}	FirstRunResponse
// @Router		/st/first-run [get]
func (h *Handler) FirstRun(c *gin.Context) {
	firstRun, err := h.service.CheckFirstRun(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, FirstRunResponse{FirstRun: firstRun})
}

// Bootstrap mints the admin token once.
// @Summary	Bootstrap admin token
// @Tags		ServiceTokens
// @Produce	json
// @Success	200	{object}	TokenResponse
// @Failure	409	{object}	map[string]interface{}
// @Router		/st/bootstrap [post]
func (h *Handler) Bootstrap(c *gin.Context) {
	issued, err := h.service.Bootstrap(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, issuedResponse(issued))
}

// @Summary	Create service token
// @Tags		ServiceTokens
// @Accept		json
// @Produce	json
// @Param		body	body	CreateTokenRequest	true	"payload"
// @Success	200	{object}	TokenResponse
// @Router		/st [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}
	issued, err := h.service.Create(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, issuedResponse(issued))
}

func (h *Handler) List(c *gin.Context) {
	tokens, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]TokenResponse, 0, len(tokens))
	for i := range tokens {
		out = append(out, toResponse(&tokens[i]))
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Get(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(t))
}

func (h *Handler) Rename(c *gin.Context) {
	var req RenameTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}
	t, err := h.service.Rename(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(t))
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
	switch {
	case errors.Is(err, ErrTokenNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Service token not found")
	case errors.Is(err, ErrNameTaken):
		response.Error(c, http.StatusConflict, "CONFLICT", "A service token with this name already exists")
	case errors.Is(err, ErrAlreadyBootstrapped):
		response.Error(c, http.StatusConflict, "CONFLICT", "System has already been bootstrapped")
	case errors.Is(err, ErrInvalidName):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
