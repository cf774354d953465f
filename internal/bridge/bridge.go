// Package bridge provides a NATS worker that drives production jobs. Each
// inbound request event runs a full job lifecycle against the HTTP service
// through an isolated tracker and orchestrator; progress is fanned out on a
// NATS subject and the finished artifact lands in the object store.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/production-client/internal/content"
	"github.com/book-expert/production-client/internal/core"
	"github.com/book-expert/production-client/internal/job"
	"github.com/book-expert/production-client/internal/orchestrator"
)

// DefaultJobTimeout bounds one production job when no timeout is configured.
const DefaultJobTimeout = 10 * time.Minute

// Static errors.
var (
	// ErrContentEmpty indicates a request event without content.
	ErrContentEmpty = errors.New("content cannot be empty")
	// ErrUnsupportedFormat indicates a request with an unknown format.
	ErrUnsupportedFormat = errors.New("unsupported content format")
	// ErrSpeakerVoicesRequired indicates a podcast request without a
	// speaker-to-voice assignment.
	ErrSpeakerVoicesRequired = errors.New("speaker_voices is required for podcast format")
)

// Transport is the full client surface the bridge needs.
type Transport interface {
	core.ProductionClient
	core.ArtifactFetcher
}

// Bridge listens for production request events on a NATS subject and
// processes them.
type Bridge struct {
	natsConnection  *nats.Conn
	subject         string
	progressSubject string
	client          Transport
	store           core.ArtifactStore
	jobTimeout      time.Duration
	log             *logger.Logger
}

// New creates a bridge. A non-positive jobTimeout falls back to
// DefaultJobTimeout.
func New(
	natsConnection *nats.Conn,
	subject string,
	progressSubject string,
	client Transport,
	store core.ArtifactStore,
	jobTimeout time.Duration,
	log *logger.Logger,
) (*Bridge, error) {
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}

	return &Bridge{
		natsConnection:  natsConnection,
		subject:         subject,
		progressSubject: progressSubject,
		client:          client,
		store:           store,
		jobTimeout:      jobTimeout,
		log:             log,
	}, nil
}

// Run starts the bridge and begins listening for request events.
func (b *Bridge) Run(ctx context.Context) error {
	sub, err := b.natsConnection.Subscribe(b.subject, b.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", b.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (b *Bridge) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), b.jobTimeout)
	defer cancel()

	event, err := b.parseAndValidateEvent(msg)
	if err != nil {
		b.log.Error("Failed to parse and validate request event: %v", err)

		return
	}

	audioKey, jobID, runErr := b.runProductionJob(ctx, event)
	if runErr != nil {
		b.log.Error(
			"Production job failed for workflow %s: %v",
			event.Header.WorkflowID,
			runErr,
		)
		b.respondFailed(msg, event, jobID, runErr.Error())

		return
	}

	b.respondCompleted(msg, event, jobID, audioKey)
}

// runProductionJob drives one job through an isolated tracker and
// orchestrator, publishing every snapshot as a progress event. On
// completion it downloads the artifact and stores it under a fresh key.
func (b *Bridge) runProductionJob(
	ctx context.Context,
	event *ProductionRequestedEvent,
) (string, string, error) {
	tracker := job.NewTracker()
	orch := orchestrator.New(b.client, tracker, b.log)

	updates, cancelWatch := tracker.Watch()
	defer cancelWatch()

	defer orch.Close()

	jobID, err := orch.Submit(ctx, core.GenerateRequest{
		Content:       event.Content,
		Format:        event.Format,
		VoiceName:     event.VoiceName,
		ModelVersion:  event.ModelVersion,
		Language:      event.Language,
		Instruct:      event.Instruct,
		Speaker:       event.Speaker,
		SpeakerVoices: event.SpeakerVoices,
	})
	if err != nil {
		return "", "", fmt.Errorf("submission failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", jobID, fmt.Errorf(
				"job %s did not finish within %s: %w",
				jobID,
				b.jobTimeout,
				ctx.Err(),
			)
		case snapshot := <-updates:
			b.publishProgress(event, snapshot)

			switch snapshot.State {
			case core.JobStateCompleted:
				audioKey, storeErr := b.storeArtifact(ctx, snapshot)
				if storeErr != nil {
					return "", jobID, storeErr
				}

				return audioKey, jobID, nil
			case core.JobStateFailed:
				return "", jobID, fmt.Errorf(
					"generation failed: %s",
					snapshot.ErrorDetail,
				)
			case core.JobStateIdle, core.JobStatePending, core.JobStateRunning:
				continue
			}
		}
	}
}

// storeArtifact downloads the finished audio and saves it under a fresh key.
func (b *Bridge) storeArtifact(ctx context.Context, snapshot job.Snapshot) (string, error) {
	audioData, err := b.client.FetchArtifact(ctx, snapshot.ArtifactURL)
	if err != nil {
		return "", fmt.Errorf(
			"failed to download artifact '%s': %w",
			snapshot.ArtifactURL,
			err,
		)
	}

	audioKey := uuid.NewString() + ".wav"

	err = b.store.Save(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf("failed to store artifact '%s': %w", audioKey, err)
	}

	return audioKey, nil
}

func (b *Bridge) publishProgress(event *ProductionRequestedEvent, snapshot job.Snapshot) {
	progressEvent := ProductionProgressEvent{
		Header:   b.deriveHeader(event.Header),
		JobID:    snapshot.JobID,
		Status:   string(snapshot.State),
		Progress: snapshot.Progress,
		Message:  snapshot.Message,
	}

	data, err := json.Marshal(progressEvent)
	if err != nil {
		b.log.Error("Failed to marshal progress event: %v", err)

		return
	}

	publishErr := b.natsConnection.Publish(b.progressSubject, data)
	if publishErr != nil {
		b.log.Error(
			"Failed to publish progress event for workflow %s: %v",
			event.Header.WorkflowID,
			publishErr,
		)
	}
}

func (b *Bridge) respondCompleted(
	msg *nats.Msg,
	event *ProductionRequestedEvent,
	jobID, audioKey string,
) {
	reply := ProductionCompletedEvent{
		Header:   b.deriveHeader(event.Header),
		JobID:    jobID,
		AudioKey: audioKey,
	}

	b.respond(msg, event, reply)
}

func (b *Bridge) respondFailed(
	msg *nats.Msg,
	event *ProductionRequestedEvent,
	jobID, detail string,
) {
	reply := ProductionFailedEvent{
		Header: b.deriveHeader(event.Header),
		JobID:  jobID,
		Error:  detail,
	}

	b.respond(msg, event, reply)
}

func (b *Bridge) respond(msg *nats.Msg, event *ProductionRequestedEvent, reply any) {
	data, err := json.Marshal(reply)
	if err != nil {
		b.log.Error("Failed to marshal reply event: %v", err)

		return
	}

	respondErr := msg.Respond(data)
	if respondErr != nil {
		b.log.Error(
			"Failed to publish reply event for workflow %s: %v",
			event.Header.WorkflowID,
			respondErr,
		)
	}
}

// deriveHeader keeps the workflow correlation of the request but stamps a
// fresh event id and timestamp.
func (b *Bridge) deriveHeader(requestHeader events.EventHeader) events.EventHeader {
	header := requestHeader
	header.EventID = uuid.NewString()
	header.Timestamp = time.Now().UTC()

	return header
}

func (b *Bridge) parseAndValidateEvent(msg *nats.Msg) (*ProductionRequestedEvent, error) {
	var event ProductionRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal request event: %w", err)
	}

	validationErr := validateRequest(&event)
	if validationErr != nil {
		return nil, validationErr
	}

	return &event, nil
}

// validateRequest rejects requests the service would refuse anyway, before
// a job is ever submitted.
func validateRequest(event *ProductionRequestedEvent) error {
	if event.Content == "" {
		return ErrContentEmpty
	}

	switch event.Format {
	case "", content.FormatPlainText, content.FormatAudiobookJSON:
	case content.FormatPodcastScript:
		if len(event.SpeakerVoices) == 0 {
			return ErrSpeakerVoicesRequired
		}
	default:
		return fmt.Errorf("%w: '%s'", ErrUnsupportedFormat, event.Format)
	}

	return nil
}
