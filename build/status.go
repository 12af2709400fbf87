package build

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// BuildStatus summarises one finished build for the dev server.
type BuildStatus struct {
	BuildID     string         `json:"build_id"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	Warnings    int            `json:"warnings"`
	DurationSec float64        `json:"duration_sec"`
	Outputs     map[string]int `json:"outputs,omitempty"`
	FinishedAt  time.Time      `json:"finished_at"`
}

// StatusTracker keeps the latest BuildStatus and fans it out to
// subscribers.
type StatusTracker struct {
	root string

	mu          sync.RWMutex
	last        *BuildStatus
	subscribers []func(BuildStatus)
}

func NewStatusTracker(root string) *StatusTracker {
	return &StatusTracker{root: root}
}

// Record stores the outcome of a build and notifies subscribers. Stats may
// be nil when the engine returned nothing.
func (t *StatusTracker) Record(stats *Stats, err error) BuildStatus {
	status := BuildStatus{
		BuildID:    uuid.NewString(),
		Status:     Succeeded.String(),
		FinishedAt: time.Now().UTC(),
	}
	if stats != nil {
		status.Warnings = len(stats.Warnings)
		status.DurationSec = stats.Duration.Seconds()
	}
	if stats == nil || stats.HasErrors() || err != nil {
		status.Status = Failed.String()
		status.Error = failureDetail(plain(stats), err)
	} else {
		status.Outputs = make(map[string]int, len(stats.Outputs))
		for _, f := range stats.Outputs {
			status.Outputs[relTo(t.root, f.Path)] = len(f.Contents)
		}
	}

	t.mu.Lock()
	t.last = &status
	subs := append([]func(BuildStatus){}, t.subscribers...)
	t.mu.Unlock()

	for _, fn := range subs {
		fn(status)
	}
	return status
}

// Last returns the most recent status, if any build has finished.
func (t *StatusTracker) Last() (BuildStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.last == nil {
		return BuildStatus{}, false
	}
	return *t.last, true
}

func (t *StatusTracker) Subscribe(fn func(BuildStatus)) {
	t.mu.Lock()
	t.subscribers = append(t.subscribers, fn)
	t.mu.Unlock()
}

// plain drops ANSI colors for JSON consumers.
func plain(stats *Stats) *Stats {
	if stats == nil || !stats.Color {
		return stats
	}
	cp := *stats
	cp.Color = false
	return &cp
}
