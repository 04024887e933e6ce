package token

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes mounts the unauthenticated first-run endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	st := rg.Group("/st")
	{
		st.GET("/first-run", h.FirstRun)
		st.POST("/bootstrap", h.Bootstrap)
	}
}

// RegisterAdminRoutes expects rg to already enforce the admin role.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	st := rg.Group("/st")
	{
		st.GET("/", h.List)
		st.POST("/", h.Create)
		st.GET("/:id", h.Get)
		st.PATCH("/:id", h.Rename)
		st.DELETE("/:id", h.Delete)
	}
}
