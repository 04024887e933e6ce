package bucket

import "github.com/gin-gonic/gin"

// RegisterRoutes expects rg to already enforce the admin role.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	buckets := rg.Group("/bucket")
	{
		buckets.GET("/", h.List)
		buckets.POST("/", h.Create)
		buckets.GET("/:id", h.Get)
		buckets.PATCH("/:id", h.Update)
		buckets.DELETE("/:id", h.Delete)
	}
}
