package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers availability and reservation routes.
// Availability is public; creating a reservation is rate limited per caller.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware, rateLimitMiddleware gin.HandlerFunc) {
	g.GET("/availability", h.Availability)

	group := g.Group("/reservations", authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", rateLimitMiddleware, h.Create)
		group.PATCH("/:id/status", adminMiddleware, h.UpdateStatus)
	}
}
