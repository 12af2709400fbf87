package build

import (
	"context"
	"fmt"
	"time"

	"github.com/evanw/esbuild/pkg/api"
)

// Engine runs one bundling pass for a job and reports a single completion.
type Engine interface {
	Bundle(ctx context.Context, cfg Config) (*Stats, error)
}

// EsbuildEngine bundles with esbuild's Go API.
type EsbuildEngine struct {
	// Color is copied onto the returned Stats.
	Color   bool
	Plugins []api.Plugin
}

type completion struct {
	stats *Stats
	err   error
}

// Bundle blocks until esbuild completes the pass or ctx is done. A job that
// esbuild rejects up front is returned as *ConfigError; a build that ran is
// returned as Stats, errors included.
func (e *EsbuildEngine) Bundle(ctx context.Context, cfg Config) (*Stats, error) {
	opts := cfg.Options()
	opts.Plugins = e.Plugins

	bctx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return nil, &ConfigError{Messages: ctxErr.Errors}
	}

	done := make(chan completion, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- completion{err: fmt.Errorf("bundler panicked: %v", r)}
			}
		}()
		result := bctx.Rebuild()
		stats := newStats(result, time.Since(start))
		stats.Color = e.Color
		done <- completion{stats: stats}
	}()

	select {
	case c := <-done:
		bctx.Dispose()
		return c.stats, c.err
	case <-ctx.Done():
		// Cancel waits for esbuild to wind down; don't hold the caller on it.
		go func() {
			bctx.Cancel()
			bctx.Dispose()
		}()
		return nil, fmt.Errorf("bundling interrupted: %w", ctx.Err())
	}
}
