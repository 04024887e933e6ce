package file

import "github.com/gin-gonic/gin"

// RegisterRoutes expects rg to already admit user and admin tokens.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	files := rg.Group("/file")
	{
		files.POST("/", h.Initiate)
		files.GET("/:id", h.Get)
		files.POST("/:id/finalize", h.Finalize)
		files.DELETE("/:id", h.Delete)
	}

	rg.PATCH("/upload/:blobId", h.UploadBlob)
}
