// Package status holds the shared progress record a running scan (or
// analysis) writes and external pollers read. Each Tracker is owned by
// the component that starts the run; there is no package-level state.
package status

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of a tracker's state. Result is only
// populated by the analysis flow.
type Snapshot struct {
	Running      bool      `json:"running"`
	Progress     int       `json:"progress"`
	CurrentTask  string    `json:"current_task"`
	TotalResults int       `json:"total_results"`
	Result       string    `json:"result,omitempty"`
	StartTime    time.Time `json:"start_time"`
	Error        string    `json:"error,omitempty"`
}

// Tracker is a single-writer, multi-reader status record. The writer is
// the run that claimed it via Begin; pollers take snapshots at any time.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin claims the tracker for a new run, resetting all fields. It
// returns false when a run is already active, so at most one writer
// exists at a time.
func (t *Tracker) Begin(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.Running {
		return false
	}

	t.snap = Snapshot{
		Running:   true,
		StartTime: now,
	}
	return true
}

// SetTask updates the human-readable label of the current work unit.
func (t *Tracker) SetTask(task string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.CurrentTask = task
}

// SetProgress moves progress forward to p (clamped to 0..100). Progress
// never regresses within a run.
func (t *Tracker) SetProgress(p int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p > 100 {
		p = 100
	}
	if p > t.snap.Progress {
		t.snap.Progress = p
	}
}

// Advance records a completed work unit out of total and the number of
// results accumulated so far.
func (t *Tracker) Advance(completed, total, results int) {
	if total < 1 {
		total = 1
	}

	p := completed * 100 / total
	if p > 100 {
		p = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if p > t.snap.Progress {
		t.snap.Progress = p
	}
	t.snap.TotalResults = results
}

// Fail freezes the tracker with an error description.
func (t *Tracker) Fail(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Running = false
	t.snap.Error = msg
	t.snap.CurrentTask = "Error: " + msg
}

// Complete freezes the tracker after a successful run.
func (t *Tracker) Complete(task string, results int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Running = false
	t.snap.Progress = 100
	t.snap.CurrentTask = task
	t.snap.TotalResults = results
	t.snap.Error = ""
}

// FinishResult freezes the tracker with a textual result (analysis flow).
func (t *Tracker) FinishResult(task, result string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Running = false
	t.snap.Progress = 100
	t.snap.CurrentTask = task
	t.snap.Result = result
	t.snap.Error = ""
}

// Running reports whether a run currently owns the tracker.
func (t *Tracker) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Running
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
