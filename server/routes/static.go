package routes

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// Static serves files from the bundle output directory. The requested path
// is cleaned as an absolute URL path first, so it cannot climb out of root.
func Static(root string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		file := path.Clean("/" + ctx.Param("file"))
		absPath := filepath.Join(root, filepath.FromSlash(file))

		info, err := os.Stat(absPath)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "no such file: " + file})
			return
		}
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read " + file})
			return
		}
		ctx.Header("Cache-Control", "no-store")
		ctx.File(absPath)
	}
}

func Ping(ctx *gin.Context) {
	ctx.String(http.StatusOK, "pong")
}
