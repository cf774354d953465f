// Package orchestrator binds a job tracker to the production transport. It
// owns the live stream handle: it opens a stream when a job enters pending,
// keeps exactly one connection per job id, and tears the connection down
// when the job reaches a terminal state or the id changes.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/book-expert/logger"

	"github.com/book-expert/production-client/internal/core"
	"github.com/book-expert/production-client/internal/job"
)

// Fixed message surfaced when the stream drops without a terminal frame.
const transportErrorMessage = "Connection lost"

// Orchestrator drives the full lifecycle of production jobs through one
// tracker. All transitions funnel through the tracker; the orchestrator
// itself only decides when a stream must be open.
type Orchestrator struct {
	client  core.ProductionClient
	tracker *job.Tracker
	log     *logger.Logger

	mu          sync.Mutex
	activeJobID string
	handle      core.StreamHandle
}

// New creates an orchestrator for the given transport and tracker.
func New(
	client core.ProductionClient,
	tracker *job.Tracker,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		client:      client,
		tracker:     tracker,
		log:         log,
		mu:          sync.Mutex{},
		activeJobID: "",
		handle:      nil,
	}
}

// Submit starts a new production job. A rejected submission moves the
// tracker straight to failed without ever reaching pending; a successful one
// enters pending and opens the progress stream.
func (o *Orchestrator) Submit(
	ctx context.Context,
	req core.GenerateRequest,
) (string, error) {
	jobID, err := o.client.Submit(ctx, req)
	if err != nil {
		o.log.Error("Submission rejected: %v", err)
		o.tracker.FailSubmission(err)
		o.Sync()

		return "", fmt.Errorf("failed to submit production job: %w", err)
	}

	beginErr := o.tracker.Begin(jobID)
	if beginErr != nil {
		return "", fmt.Errorf("failed to begin job tracking: %w", beginErr)
	}

	o.Sync()

	return jobID, nil
}

// Sync aligns the live connection with the tracker state. It is idempotent:
// calling it again with an unchanged id and an already-open stream is a
// no-op, not a reconnect. Activation happens only while the state is
// pending or running; any other state closes the current stream.
func (o *Orchestrator) Sync() {
	o.mu.Lock()
	defer o.mu.Unlock()

	// The snapshot is read under the same lock that guards the handle, so a
	// terminal transition racing this call cannot leave a stream open for a
	// job that already finished.
	snapshot := o.tracker.Snapshot()

	active := snapshot.JobID != "" &&
		(snapshot.State == core.JobStatePending ||
			snapshot.State == core.JobStateRunning)

	if !active {
		o.closeStreamLocked()

		return
	}

	if o.handle != nil && o.activeJobID == snapshot.JobID {
		return
	}

	// The old handle is closed before a new one is opened, so two live
	// streams never overlap.
	o.closeStreamLocked()

	jobID := snapshot.JobID

	handle, err := o.client.OpenProgressStream(
		jobID,
		func(event core.ProgressEvent) { o.handleEvent(jobID, event) },
		func(streamErr error) { o.handleTransportError(jobID, streamErr) },
	)
	if err != nil {
		o.log.Error("Failed to open progress stream for job %s: %v", jobID, err)
		o.tracker.FailTransport(jobID, transportErrorMessage)

		return
	}

	o.activeJobID = jobID
	o.handle = handle
}

// Reset returns the tracker to idle and closes any live stream.
func (o *Orchestrator) Reset() {
	o.tracker.Reset()
	o.Sync()
}

// Close tears down the live stream, if any. Closing is the sole
// cancellation primitive; it is safe to call redundantly.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closeStreamLocked()
}

func (o *Orchestrator) handleEvent(jobID string, event core.ProgressEvent) {
	o.tracker.Apply(jobID, event)

	if event.IsTerminal() {
		o.Sync()
	}
}

func (o *Orchestrator) handleTransportError(jobID string, streamErr error) {
	// Error kinds are distinguished here in the log only; the externally
	// observable state collapses to failed with the fixed message.
	o.log.Error("Progress stream for job %s failed: %v", jobID, streamErr)
	o.tracker.FailTransport(jobID, transportErrorMessage)
	o.Sync()
}

func (o *Orchestrator) closeStreamLocked() {
	if o.handle == nil {
		o.activeJobID = ""

		return
	}

	err := o.handle.Close()
	if err != nil {
		o.log.Warn("Failed to close progress stream: %v", err)
	}

	o.handle = nil
	o.activeJobID = ""
}
