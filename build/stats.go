package build

import (
	"fmt"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
)

// OutputFile is one file produced by a build, held in memory until the
// build is known to be good.
type OutputFile struct {
	Path     string
	Contents []byte
}

// Stats is what a completed build pass reports back. Errors and Warnings
// are esbuild messages, so they carry locations and notes.
type Stats struct {
	Errors   []api.Message
	Warnings []api.Message
	Outputs  []OutputFile
	Metafile string
	Duration time.Duration

	// Color enables ANSI colors in String.
	Color bool
}

func newStats(result api.BuildResult, duration time.Duration) *Stats {
	stats := &Stats{
		Errors:   result.Errors,
		Warnings: result.Warnings,
		Metafile: result.Metafile,
		Duration: duration,
	}
	for _, f := range result.OutputFiles {
		stats.Outputs = append(stats.Outputs, OutputFile{Path: f.Path, Contents: f.Contents})
	}
	return stats
}

// HasErrors reports whether the build itself failed.
func (s *Stats) HasErrors() bool {
	return len(s.Errors) > 0
}

// String renders every error with its location, source excerpt and notes
// (the import trace lives in the notes).
func (s *Stats) String() string {
	if !s.HasErrors() {
		return fmt.Sprintf("build finished in %s, %d output file(s), %d warning(s)",
			s.Duration.Round(time.Millisecond), len(s.Outputs), len(s.Warnings))
	}
	formatted := api.FormatMessages(s.Errors, api.FormatMessagesOptions{
		Kind:  api.ErrorMessage,
		Color: s.Color,
	})
	var b strings.Builder
	for _, msg := range formatted {
		b.WriteString(msg)
	}
	fmt.Fprintf(&b, "%d error(s)", len(s.Errors))
	return b.String()
}

// ConfigError means esbuild refused the job before building anything.
type ConfigError struct {
	Messages []api.Message
}

func (e *ConfigError) Error() string {
	texts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		texts = append(texts, m.Text)
	}
	return "invalid build configuration: " + strings.Join(texts, "; ")
}
