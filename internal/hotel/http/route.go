package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers hotel routes. Reads are public.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	group := g.Group("/hotels")
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", authMiddleware, adminMiddleware, h.Create)
	}
}
