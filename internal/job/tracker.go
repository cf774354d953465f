// Package job tracks the lifecycle of one production job. The Tracker is
// the only owner of the job record: everything else mutates it through the
// transition methods and reads it through snapshots.
package job

import (
	"errors"
	"sync"

	"github.com/book-expert/production-client/internal/core"
)

// Message shown immediately after a successful submission, before the first
// progress frame arrives.
const startingMessage = "starting"

// ErrJobIDEmpty indicates Begin was called without a job id.
var ErrJobIDEmpty = errors.New("job id cannot be empty")

// Snapshot is an immutable copy of the job record at one instant.
type Snapshot struct {
	JobID       string
	State       core.JobState
	Progress    float64
	Message     string
	ArtifactURL string
	ErrorDetail string
}

// Tracker is an injectable, explicitly scoped job state machine. Transitions
// out of a terminal state exist only through Begin and Reset; Apply and
// FailTransport are no-ops once the job is terminal, and events carrying a
// stale job id are dropped.
type Tracker struct {
	mu      sync.RWMutex
	current Snapshot
	subs    map[int]chan Snapshot
	nextSub int
}

// NewTracker creates a tracker in the idle state.
func NewTracker() *Tracker {
	return &Tracker{
		mu:      sync.RWMutex{},
		current: idleSnapshot(),
		subs:    make(map[int]chan Snapshot),
		nextSub: 0,
	}
}

func idleSnapshot() Snapshot {
	return Snapshot{
		JobID:       "",
		State:       core.JobStateIdle,
		Progress:    0,
		Message:     "",
		ArtifactURL: "",
		ErrorDetail: "",
	}
}

// Begin records a successful submission. Any previous job is discarded,
// including its artifact and error fields, so re-submission from a terminal
// state re-enters through the pending edge with reset implied.
func (t *Tracker) Begin(jobID string) error {
	if jobID == "" {
		return ErrJobIDEmpty
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = Snapshot{
		JobID:       jobID,
		State:       core.JobStatePending,
		Progress:    0,
		Message:     startingMessage,
		ArtifactURL: "",
		ErrorDetail: "",
	}

	t.notifyLocked()

	return nil
}

// FailSubmission records a submission that was rejected before a job id was
// assigned. The job moves straight to failed without ever reaching pending.
func (t *Tracker) FailSubmission(err error) {
	detail := "submission failed"
	if err != nil {
		detail = err.Error()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = Snapshot{
		JobID:       t.current.JobID,
		State:       core.JobStateFailed,
		Progress:    0,
		Message:     detail,
		ArtifactURL: "",
		ErrorDetail: detail,
	}

	t.notifyLocked()
}

// Apply merges one decoded stream frame into the job record. Frames for a
// different job id, or frames arriving after a terminal transition, are
// dropped. Progress is applied as-is: a regressing value is not clamped.
func (t *Tracker) Apply(jobID string, event core.ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.JobID != jobID {
		return
	}

	if t.current.State != core.JobStatePending &&
		t.current.State != core.JobStateRunning {
		return
	}

	switch {
	case event.Status == core.StatusCompleted && event.AudioURL != "":
		t.current.State = core.JobStateCompleted
		t.current.Progress = 1
		t.current.Message = event.Message
		t.current.ArtifactURL = event.AudioURL
	case event.Status == core.StatusFailed:
		detail := event.Error
		if detail == "" {
			detail = event.Message
		}

		if detail == "" {
			detail = "generation failed"
		}

		t.current.State = core.JobStateFailed
		t.current.Message = detail
		t.current.ErrorDetail = detail
	default:
		// A completed frame without an artifact locator cannot satisfy
		// the completed invariant; it degrades to a plain progress update
		// along with every other non-terminal status.
		t.current.State = core.JobStateRunning
		t.current.Progress = event.Progress
		t.current.Message = event.Message
	}

	t.notifyLocked()
}

// FailTransport records a dropped connection. It is a no-op once the job is
// terminal or the id is stale, so a late transport error cannot overwrite a
// completed job.
func (t *Tracker) FailTransport(jobID, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.JobID != jobID {
		return
	}

	if t.current.State != core.JobStatePending &&
		t.current.State != core.JobStateRunning {
		return
	}

	t.current.State = core.JobStateFailed
	t.current.Message = message
	t.current.ErrorDetail = message

	t.notifyLocked()
}

// Reset clears every field back to the idle defaults.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = idleSnapshot()

	t.notifyLocked()
}

// Snapshot returns a copy of the current job record.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.current
}

// State returns the current lifecycle state.
func (t *Tracker) State() core.JobState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.current.State
}

// Watch registers a subscriber that receives a snapshot after every
// transition. The returned cancel function unregisters it. A slow subscriber
// loses intermediate snapshots, never the latest one.
func (t *Tracker) Watch() (<-chan Snapshot, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSub
	t.nextSub++

	channel := make(chan Snapshot, watchBuffer)
	t.subs[id] = channel

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		delete(t.subs, id)
	}

	return channel, cancel
}

const watchBuffer = 16

// notifyLocked fans the current snapshot out to subscribers. When a
// subscriber's buffer is full the oldest pending snapshot is evicted so the
// latest state always gets through.
func (t *Tracker) notifyLocked() {
	for _, channel := range t.subs {
		select {
		case channel <- t.current:
			continue
		default:
		}

		select {
		case <-channel:
		default:
		}

		select {
		case channel <- t.current:
		default:
		}
	}
}
