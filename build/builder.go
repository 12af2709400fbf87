package build

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
)

// WatchHandler receives every completed rebuild. err is set when the build
// succeeded but its output could not be written.
type WatchHandler func(stats *Stats, err error)

// Watch builds the job, then rebuilds whenever an input changes, until ctx
// is done. Each pass is committed to disk (or its stale artifact removed)
// before handler runs.
func Watch(ctx context.Context, cfg Config, color bool, handler WatchHandler) error {
	opts := cfg.Options()
	opts.Plugins = append(opts.Plugins, commitPlugin(cfg, color, handler))

	bctx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return &ConfigError{Messages: ctxErr.Errors}
	}
	defer bctx.Dispose()

	if err := bctx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to start watch mode: %w", err)
	}

	<-ctx.Done()
	return nil
}

func commitPlugin(cfg Config, color bool, handler WatchHandler) api.Plugin {
	var (
		mu    sync.Mutex
		start time.Time
	)
	return api.Plugin{
		Name: "runtime-commit",
		Setup: func(pb api.PluginBuild) {
			pb.OnStart(func() (api.OnStartResult, error) {
				mu.Lock()
				start = time.Now()
				mu.Unlock()
				return api.OnStartResult{}, nil
			})
			pb.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				mu.Lock()
				elapsed := time.Since(start)
				mu.Unlock()

				stats := newStats(*result, elapsed)
				stats.Color = color

				var err error
				if !stats.HasErrors() {
					err = writeOutputs(cfg, stats)
				}
				if stats.HasErrors() || err != nil {
					if rmErr := removeStaleOutput(cfg); rmErr != nil && err == nil {
						err = rmErr
					}
				}
				if handler != nil {
					handler(stats, err)
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}
