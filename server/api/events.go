package api

import (
	"anexis/bundler/build"
	"anexis/bundler/socket"
	"github.com/sirupsen/logrus"
)

// PublishBuilds pushes every recorded build to the WebSocket subscribers: a
// build_status message for each build, followed by an error message when it
// failed.
func PublishBuilds(tracker *build.StatusTracker, events *socket.Server, log logrus.FieldLogger) {
	tracker.Subscribe(func(status build.BuildStatus) {
		if err := events.Broadcast(socket.EvtBuildStatus, status); err != nil {
			log.Warnf("failed to publish build status: %v", err)
		}
		if status.Status != build.Failed.String() {
			return
		}
		if err := events.BroadcastError(status.Error); err != nil {
			log.Warnf("failed to publish build error: %v", err)
		}
	})
}
