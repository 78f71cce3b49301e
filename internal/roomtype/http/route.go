package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers room-type routes. Reads are public.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	group := g.Group("/room-types")
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", authMiddleware, adminMiddleware, h.Create)
	}
}
