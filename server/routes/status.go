package routes

import (
	"net/http"

	"anexis/bundler/build"
	"github.com/gin-gonic/gin"
)

// Status reports the most recent build, or 404 while the first one is
// still running.
func Status(tracker *build.StatusTracker) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status, ok := tracker.Last()
		if !ok {
			ctx.JSON(http.StatusNotFound, gin.H{"status": "pending"})
			return
		}
		ctx.JSON(http.StatusOK, status)
	}
}
