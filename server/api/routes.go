package api

import (
	"net/http"

	"anexis/bundler/build"
	"anexis/bundler/server/routes"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// Options wires the dev server to the watch loop.
type Options struct {
	OutDir string
	Status *build.StatusTracker
	Events http.Handler // WebSocket endpoint, optional
	Pprof  bool
}

func SetupRouter(router *gin.Engine, opts Options) {
	router.GET("/ping", routes.Ping)
	router.GET("/status", routes.Status(opts.Status))
	router.GET("/dist/*file", routes.Static(opts.OutDir))
	if opts.Events != nil {
		router.GET("/events", gin.WrapH(opts.Events))
	}
	if opts.Pprof {
		pprof.Register(router)
	}
}
