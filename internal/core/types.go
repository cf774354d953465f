// Package core defines the domain types and interfaces shared by the
// production client, the orchestrator, and the NATS bridge.
package core

import "context"

// JobState is the lifecycle state of one tracked production job.
type JobState string

const (
	// JobStateIdle means no job exists and no stream is open.
	JobStateIdle JobState = "idle"
	// JobStatePending means a job id was assigned but no progress frame
	// has been applied yet.
	JobStatePending JobState = "pending"
	// JobStateRunning means at least one non-terminal progress frame has
	// been applied.
	JobStateRunning JobState = "running"
	// JobStateCompleted is terminal; the artifact locator is set.
	JobStateCompleted JobState = "completed"
	// JobStateFailed is terminal; the error detail is set.
	JobStateFailed JobState = "failed"
)

// IsTerminal reports whether no further stream events are expected.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Wire statuses carried by progress frames.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ProgressEvent is one decoded stream frame from the progress endpoint.
type ProgressEvent struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
	AudioURL string  `json:"audio_url,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// IsTerminal reports whether this frame ends the stream.
func (e ProgressEvent) IsTerminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed
}

// GenerateRequest is the payload for starting a production job. The
// transport layer passes it through unchanged apart from defaulting the
// format, model version, and language.
type GenerateRequest struct {
	Content       string            `json:"content"`
	Format        string            `json:"format"`
	VoiceName     string            `json:"voice_name,omitempty"`
	ModelVersion  string            `json:"model_version"`
	Language      string            `json:"language"`
	Instruct      string            `json:"instruct,omitempty"`
	Speaker       string            `json:"speaker,omitempty"`
	SpeakerVoices map[string]string `json:"speaker_voices,omitempty"`
}

// StreamHandle owns one live progress connection. Close is idempotent:
// it is safe to call after the stream closed itself on a terminal frame,
// and safe to call more than once.
type StreamHandle interface {
	Close() error
}

// Submitter starts a production job and returns the assigned job id.
type Submitter interface {
	Submit(ctx context.Context, req GenerateRequest) (string, error)
}

// ProgressStreamer opens a progress stream scoped to one job id. Decoded
// frames are forwarded to onEvent in server-send order; onError is invoked
// at most once, only when the connection drops without a terminal frame.
// After a terminal frame or an onError invocation no further callbacks
// fire for that connection.
type ProgressStreamer interface {
	OpenProgressStream(
		jobID string,
		onEvent func(ProgressEvent),
		onError func(error),
	) (StreamHandle, error)
}

// ProductionClient is the transport surface the orchestrator depends on.
type ProductionClient interface {
	Submitter
	ProgressStreamer
}

// ArtifactFetcher downloads a finished audio artifact by its locator.
type ArtifactFetcher interface {
	FetchArtifact(ctx context.Context, audioURL string) ([]byte, error)
}

// ArtifactStore persists finished audio artifacts under opaque keys.
type ArtifactStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}
