package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"anexis/bundler/utils"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks & Helpers ---

type fakeEngine struct {
	stats *Stats
	err   error
	hang  bool
	calls int
}

func (f *fakeEngine) Bundle(ctx context.Context, cfg Config) (*Stats, error) {
	f.calls++
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.stats, f.err
}

type harness struct {
	orch   *Orchestrator
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	exits  []int
}

func newHarness(t *testing.T, cfg Config, engine Engine) *harness {
	t.Helper()
	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	logger, err := utils.NewLogger(h.stdout, h.stderr, "info")
	require.NoError(t, err)
	h.orch = &Orchestrator{
		Config: cfg,
		Engine: engine,
		Logger: logger,
		Exit:   func(code int) { h.exits = append(h.exits, code) },
	}
	return h
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Root:    t.TempDir(),
		Entry:   DefaultEntry,
		OutDir:  DefaultOutDir,
		OutFile: DefaultOutFile,
	}
}

func assertFailed(t *testing.T, h *harness) {
	t.Helper()
	assert.Equal(t, []int{1}, h.exits)
	assert.Contains(t, h.stderr.String(), MsgFailed)
	assert.NotContains(t, h.stdout.String(), MsgEnd)
	assert.NotContains(t, h.stderr.String(), MsgEnd)
}

// --- Tests ---

func TestOrchestrator_SuccessWritesArtifactAndExitsZero(t *testing.T) {
	cfg := testConfig(t)
	engine := &fakeEngine{stats: &Stats{
		Outputs: []OutputFile{{Path: cfg.OutputPath(), Contents: []byte("module.exports = 1;\n")}},
	}}
	h := newHarness(t, cfg, engine)

	var analysed *Stats
	h.orch.OnSuccess = func(s *Stats) { analysed = s }
	outcome := h.orch.Run(context.Background())

	assert.Equal(t, Succeeded, outcome)
	assert.Equal(t, []int{0}, h.exits)
	assert.Equal(t, 1, engine.calls)
	assert.Same(t, engine.stats, analysed)

	data, err := os.ReadFile(cfg.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, "module.exports = 1;\n", string(data))

	assert.Contains(t, h.stdout.String(), MsgStart)
	assert.Contains(t, h.stdout.String(), MsgEnd)
	assert.Empty(t, h.stderr.String())
}

func TestOrchestrator_BuildErrorsFail(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, writeFileAtomic(cfg.OutputPath(), []byte("stale")))

	engine := &fakeEngine{stats: &Stats{Errors: []api.Message{{
		Text:     `Expected ";" but found "oops"`,
		Location: &api.Location{File: "src/runtime/index.js", Line: 3, Column: 4, LineText: "let x oops"},
	}}}}
	h := newHarness(t, cfg, engine)

	outcome := h.orch.Run(context.Background())

	assert.Equal(t, Failed, outcome)
	assertFailed(t, h)
	assert.Contains(t, h.stderr.String(), "src/runtime/index.js:3:4")
	assert.Contains(t, h.stderr.String(), `Expected ";" but found "oops"`)
	assert.NoFileExists(t, cfg.OutputPath())
}

func TestOrchestrator_FailureClearsStaleMetafile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metafile = "dist/meta.json"
	require.NoError(t, writeFileAtomic(cfg.OutputPath(), []byte("stale")))
	require.NoError(t, writeFileAtomic(cfg.MetafilePath(), []byte("{}")))

	h := newHarness(t, cfg, &fakeEngine{err: errors.New("engine unavailable")})
	h.orch.Run(context.Background())

	assertFailed(t, h)
	assert.NoFileExists(t, cfg.OutputPath())
	assert.NoFileExists(t, cfg.MetafilePath())
}

func TestOrchestrator_TransportErrorFails(t *testing.T) {
	h := newHarness(t, testConfig(t), &fakeEngine{err: errors.New("engine exploded")})

	outcome := h.orch.Run(context.Background())

	assert.Equal(t, Failed, outcome)
	assertFailed(t, h)
	assert.Contains(t, h.stderr.String(), "engine exploded")
}

func TestOrchestrator_NoResultFails(t *testing.T) {
	h := newHarness(t, testConfig(t), &fakeEngine{})

	outcome := h.orch.Run(context.Background())

	assert.Equal(t, Failed, outcome)
	assertFailed(t, h)
	assert.Contains(t, h.stderr.String(), "bundler returned no result")
}

func TestOrchestrator_StatsErrorsPreferredOverRawError(t *testing.T) {
	engine := &fakeEngine{
		stats: &Stats{Errors: []api.Message{{Text: "Could not resolve \"./missing\""}}},
		err:   errors.New("raw failure"),
	}
	h := newHarness(t, testConfig(t), engine)

	h.orch.Run(context.Background())

	assert.Contains(t, h.stderr.String(), `Could not resolve "./missing"`)
	assert.NotContains(t, h.stderr.String(), "raw failure")
}

func TestOrchestrator_TimeoutEndsHungBuild(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timeout = 50 * time.Millisecond
	h := newHarness(t, cfg, &fakeEngine{hang: true})

	done := make(chan Outcome, 1)
	go func() { done <- h.orch.Run(context.Background()) }()

	select {
	case outcome := <-done:
		assert.Equal(t, Failed, outcome)
		assertFailed(t, h)
		assert.Contains(t, h.stderr.String(), "deadline exceeded")
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not terminate")
	}
}

func TestOrchestrator_WriteFailureFails(t *testing.T) {
	cfg := testConfig(t)
	// A regular file where the output directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Root, "dist"), []byte("x"), 0644))

	engine := &fakeEngine{stats: &Stats{
		Outputs: []OutputFile{{Path: cfg.OutputPath(), Contents: []byte("x")}},
	}}
	h := newHarness(t, cfg, engine)

	outcome := h.orch.Run(context.Background())

	assert.Equal(t, Failed, outcome)
	assert.Equal(t, []int{1}, h.exits)
	assert.Contains(t, h.stderr.String(), "failed to create directory")
}

func TestOutcome_ExitCode(t *testing.T) {
	assert.Equal(t, 0, Succeeded.ExitCode())
	assert.Equal(t, 1, Failed.ExitCode())
	assert.Equal(t, "success", Succeeded.String())
	assert.Equal(t, "failure", Failed.String())
}
