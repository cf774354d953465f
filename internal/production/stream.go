package production

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/book-expert/production-client/internal/core"
)

// SSE framing.
const (
	sseEventPrefix   = "event:"
	sseDataPrefix    = "data:"
	sseCommentPrefix = ":"
	sseProgressEvent = "progress"
)

// Scanner sizing for stream lines.
const (
	streamScanInitialBuffer = 64 * 1024
	streamScanMaxBuffer     = 1024 * 1024
)

// streamHandle owns one live progress connection. Closing cancels the
// request context and releases the response body; both are safe to repeat.
type streamHandle struct {
	cancel context.CancelFunc
	body   io.ReadCloser

	mu     sync.Mutex
	closed bool
}

// Close shuts the connection down. It is idempotent: calling it after the
// stream closed itself on a terminal frame, or calling it twice, is a no-op.
func (h *streamHandle) Close() error {
	h.mu.Lock()
	alreadyClosed := h.closed
	h.closed = true
	h.mu.Unlock()

	if alreadyClosed {
		return nil
	}

	h.cancel()
	_ = h.body.Close()

	return nil
}

func (h *streamHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.closed
}

// OpenProgressStream opens the server-sent event connection for jobID and
// consumes it on a background goroutine. Each decoded frame is forwarded to
// onEvent in arrival order. The connection is self-terminating: on a frame
// whose status is terminal the client closes the connection after forwarding
// the frame, and no further callbacks fire. If the connection drops without
// a terminal frame, onError is invoked exactly once with ErrConnectionLost.
//
// A frame that fails to decode is dropped with a logged warning and the
// connection stays alive.
func (c *Client) OpenProgressStream(
	jobID string,
	onEvent func(core.ProgressEvent),
	onError func(error),
) (core.StreamHandle, error) {
	if jobID == "" {
		return nil, ErrJobIDEmpty
	}

	if onEvent == nil {
		onEvent = func(core.ProgressEvent) {}
	}

	if onError == nil {
		onError = func(error) {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+apiProgress+jobID,
		http.NoBody,
	)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("failed to create progress request: %w", err)
	}

	httpReq.Header.Set(headerAccept, contentTypeSSE)

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		cancel()

		return nil, fmt.Errorf(
			"failed to open progress stream for job %s: %w",
			jobID,
			err,
		)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := c.parseErrorResponse(resp)

		_ = resp.Body.Close()

		cancel()

		return nil, statusErr
	}

	handle := &streamHandle{
		cancel: cancel,
		body:   resp.Body,
		mu:     sync.Mutex{},
		closed: false,
	}

	go c.consumeStream(jobID, handle, resp.Body, onEvent, onError)

	return handle, nil
}

// consumeStream reads SSE frames until a terminal frame, a transport
// failure, or an explicit Close. It is the only goroutine touching the
// callbacks, so delivery order matches server-send order and the
// exactly-once onError guarantee holds by construction.
func (c *Client) consumeStream(
	jobID string,
	handle *streamHandle,
	body io.Reader,
	onEvent func(core.ProgressEvent),
	onError func(error),
) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, streamScanInitialBuffer), streamScanMaxBuffer)

	var (
		eventName string
		data      strings.Builder
	)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		switch {
		case line == "":
			terminal := c.dispatchFrame(
				jobID, handle, eventName, data.String(), onEvent,
			)

			eventName = ""

			data.Reset()

			if terminal {
				_ = handle.Close()

				return
			}
		case strings.HasPrefix(line, sseEventPrefix):
			eventName = sseFieldValue(line, sseEventPrefix)
		case strings.HasPrefix(line, sseDataPrefix):
			// Multi-line data fields are joined with newlines.
			if data.Len() > 0 {
				data.WriteByte('\n')
			}

			data.WriteString(sseFieldValue(line, sseDataPrefix))
		case strings.HasPrefix(line, sseCommentPrefix):
			// Keep-alive comment, ignore.
		default:
			// Unknown field, ignore.
		}
	}

	if handle.isClosed() {
		// Deliberate local teardown, not a transport failure.
		return
	}

	_ = handle.Close()

	c.log.Warn("Progress stream for job %s dropped without a terminal frame", jobID)

	onError(ErrConnectionLost)
}

// dispatchFrame decodes one accumulated frame and forwards it. It reports
// whether the frame was terminal.
func (c *Client) dispatchFrame(
	jobID string,
	handle *streamHandle,
	eventName, data string,
	onEvent func(core.ProgressEvent),
) bool {
	if data == "" {
		return false
	}

	if eventName != "" && eventName != sseProgressEvent {
		return false
	}

	var event core.ProgressEvent

	err := unmarshalJSON([]byte(data), &event)
	if err != nil {
		c.log.Warn("Skipping malformed progress frame for job %s: %v", jobID, err)

		return false
	}

	if handle.isClosed() {
		// The handle was closed between read and dispatch; drop the frame
		// rather than deliver on a dead connection.
		return true
	}

	onEvent(event)

	return event.IsTerminal()
}

func sseFieldValue(line, prefix string) string {
	return strings.TrimPrefix(strings.TrimPrefix(line, prefix), " ")
}
