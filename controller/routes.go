package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the list/detail API under /api.
func RegisterRoutes(r *gin.Engine, c *Controller) {
	api := r.Group("/api")
	api.GET("/:table", c.List)
	api.POST("/:table", c.Create)
	api.PATCH("/:table/:id", c.Update)
	api.DELETE("/:table/:id", c.Delete)
}

// guard resolves the table parameter and runs the access check. It returns
// the table name, or "" after having written the refusal.
func (c *Controller) guard(ctx *gin.Context, action string) string {
	table := ctx.Param("table")
	if !c.exposed[table] {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "unknown table", "table": table})
		return ""
	}
	if !c.Config.AccessCheckFunc(ctx, table, action) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "access denied", "table": table})
		return ""
	}
	return table
}
