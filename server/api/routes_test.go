package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"anexis/bundler/build"
	"anexis/bundler/server/api"
	"anexis/bundler/socket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, pprof bool) (*gin.Engine, string, *build.StatusTracker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	outDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outDir, "runtime"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "runtime", "index.js"), []byte("module.exports = 42;\n"), 0644))

	tracker := build.NewStatusTracker(outDir)
	router := gin.New()
	api.SetupRouter(router, api.Options{OutDir: outDir, Status: tracker, Pprof: pprof})
	return router, outDir, tracker
}

func get(router *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", url, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestPingRoute(t *testing.T) {
	router, _, _ := setupRouter(t, false)

	w := get(router, "/ping")

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestStaticRoute_ServesArtifact(t *testing.T) {
	router, _, _ := setupRouter(t, false)

	w := get(router, "/dist/runtime/index.js")

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "module.exports = 42;\n", w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestStaticRoute_RejectsEscapes(t *testing.T) {
	router, outDir, _ := setupRouter(t, false)
	secret := filepath.Join(filepath.Dir(outDir), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("nope"), 0644))
	t.Cleanup(func() { _ = os.Remove(secret) })

	w := get(router, "/dist/../secret.txt")
	assert.NotEqual(t, "nope", w.Body.String())

	w = get(router, "/dist/runtime/missing.js")
	assert.Equal(t, 404, w.Code)

	w = get(router, "/dist/runtime")
	assert.Equal(t, 404, w.Code)
}

func TestStatusRoute(t *testing.T) {
	router, outDir, tracker := setupRouter(t, false)

	w := get(router, "/status")
	assert.Equal(t, 404, w.Code)

	tracker.Record(&build.Stats{
		Duration: 120 * time.Millisecond,
		Outputs:  []build.OutputFile{{Path: filepath.Join(outDir, "runtime", "index.js"), Contents: []byte("x")}},
	}, nil)

	w = get(router, "/status")
	require.Equal(t, 200, w.Code)

	var status build.BuildStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "success", status.Status)
	assert.NotEmpty(t, status.BuildID)
	assert.Equal(t, map[string]int{"runtime/index.js": 1}, status.Outputs)
}

func TestPprofRoutesAreOptional(t *testing.T) {
	router, _, _ := setupRouter(t, false)
	assert.Equal(t, 404, get(router, "/debug/pprof/").Code)

	router, _, _ = setupRouter(t, true)
	assert.Equal(t, 200, get(router, "/debug/pprof/").Code)
}

func readMessage(t *testing.T, ws *websocket.Conn) socket.Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg socket.Message
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestEventsRoute_StreamsBuildStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	outDir := t.TempDir()
	tracker := build.NewStatusTracker(outDir)
	events := socket.NewServer(logrus.New())
	events.Run(ctx)
	api.PublishBuilds(tracker, events, logrus.New())

	router := gin.New()
	api.SetupRouter(router, api.Options{OutDir: outDir, Status: tracker, Events: events})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/events", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	require.Eventually(t, func() bool { return events.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	recorded := tracker.Record(&build.Stats{
		Outputs: []build.OutputFile{{Path: filepath.Join(outDir, "runtime", "index.js"), Contents: []byte("ok")}},
	}, nil)

	msg := readMessage(t, ws)
	assert.Equal(t, socket.EvtBuildStatus, msg.Type)
	var status build.BuildStatus
	require.NoError(t, json.Unmarshal(msg.Payload, &status))
	assert.Equal(t, recorded.BuildID, status.BuildID)
	assert.Equal(t, "success", status.Status)
	assert.Equal(t, map[string]int{"runtime/index.js": 2}, status.Outputs)

	failed := tracker.Record(nil, errors.New("disk full"))

	msg = readMessage(t, ws)
	assert.Equal(t, socket.EvtBuildStatus, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Payload, &status))
	assert.Equal(t, failed.BuildID, status.BuildID)
	assert.Equal(t, "failure", status.Status)

	msg = readMessage(t, ws)
	assert.Equal(t, socket.EvtError, msg.Type)
	assert.Equal(t, "disk full", msg.Error)
}
