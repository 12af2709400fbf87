package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anexis/bundler/build"
	"anexis/bundler/server/api"
	"anexis/bundler/socket"
	"anexis/bundler/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
	withPprof bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the runtime bundle whenever a source file changes",
		Long: `Builds once, then rebuilds on every change until interrupted. With --serve,
also starts a development server exposing the output directory under /dist,
the last build under /status and build events over a WebSocket at /events.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().StringVar(&serveAddr, "serve", "", "address for the dev server, e.g. 127.0.0.1:8080")
	watchCmd.Flags().BoolVar(&withPprof, "pprof", false, "mount pprof handlers on the dev server")
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd.Flags().Changed, &opts, os.Environ(), ".env")
	if err != nil {
		return err
	}
	logger, err := utils.NewLogger(cmd.OutOrStdout(), cmd.ErrOrStderr(), s.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := build.NewStatusTracker(s.Config.Root)
	if serveAddr != "" {
		shutdown := startDevServer(ctx, stop, s.Config, tracker, logger)
		defer shutdown()
	}

	logger.Info(build.MsgStart)
	return build.Watch(ctx, s.Config, stderrIsTerminal(), func(stats *build.Stats, err error) {
		status := tracker.Record(stats, err)
		if status.Status == build.Failed.String() {
			if stats != nil && stats.HasErrors() {
				logger.Error(stats.String())
			} else {
				logger.Error(status.Error)
			}
			logger.Error(build.MsgFailed)
			return
		}
		logger.WithField("build_id", status.BuildID).Info(build.MsgEnd)
	})
}

func startDevServer(ctx context.Context, stop context.CancelFunc, cfg build.Config, tracker *build.StatusTracker, logger *logrus.Logger) func() {
	events := socket.NewServer(logger)
	events.Run(ctx)
	api.PublishBuilds(tracker, events, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRouter(router, api.Options{
		OutDir: cfg.OutDirPath(),
		Status: tracker,
		Events: events,
		Pprof:  withPprof,
	})

	srv := &http.Server{Addr: serveAddr, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("dev server stopped: %v", err)
			stop()
		}
	}()
	logger.Infof("Serving %s on http://%s/dist/", cfg.OutDirPath(), serveAddr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("dev server shutdown: %v", err)
		}
	}
}
