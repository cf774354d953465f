// Package production provides the HTTP/SSE client for the text-to-speech
// production service. It covers job submission, the streamed progress
// connection, artifact download, and the thin wrappers around the catalog
// and system endpoints used by the control panel.
package production

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/production-client/internal/core"
)

// API endpoints and paths.
const (
	apiGenerate = "/production/generate"
	apiProgress = "/production/progress/"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeSSE    = "text/event-stream"
)

// Default values applied to submissions.
const (
	defaultFormat       = "plain_text"
	defaultModelVersion = "1.7B"
	defaultLanguage     = "Spanish"
)

// Static errors.
var (
	// ErrContentEmpty indicates a submission without content.
	ErrContentEmpty = errors.New("content cannot be empty")
	// ErrJobIDEmpty indicates a stream request without a job id.
	ErrJobIDEmpty = errors.New("job id cannot be empty")
	// ErrSubmissionFailed indicates the start-job call was rejected.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrEmptyJobIDResponse indicates a 2xx submission response without a job id.
	ErrEmptyJobIDResponse = errors.New("service returned an empty job id")
	// ErrConnectionLost indicates the progress stream dropped before a
	// terminal frame arrived.
	ErrConnectionLost = errors.New("connection lost")
	// ErrArtifactURLEmpty indicates an artifact download without a locator.
	ErrArtifactURLEmpty = errors.New("artifact url cannot be empty")
	// ErrEmptyArtifact indicates the service returned zero artifact bytes.
	ErrEmptyArtifact = errors.New("received empty artifact data")
)

// errorResponse is the structured error body the service returns on failures.
type errorResponse struct {
	Detail string `json:"detail"`
}

// generateResponse is the body of a successful submission.
type generateResponse struct {
	JobID string `json:"job_id"`
}

// Client talks to the production service. The request client carries the
// configured timeout; the stream client deliberately has none, because a
// progress connection stays open for the whole lifetime of a job.
type Client struct {
	requestClient *http.Client
	streamClient  *http.Client
	baseURL       string
	log           *logger.Logger
}

// NewClient creates a client for the production service at baseURL. The
// timeout applies to submissions, catalog calls, and artifact downloads,
// not to progress streams.
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		requestClient: &http.Client{Timeout: timeout},
		streamClient:  &http.Client{},
		baseURL:       baseURL,
		log:           log,
	}
}

// Submit starts a production job and returns the job id assigned by the
// service. The request is passed through as-is apart from defaulting the
// format, model version, and language.
func (c *Client) Submit(ctx context.Context, req core.GenerateRequest) (string, error) {
	if req.Content == "" {
		return "", ErrContentEmpty
	}

	if req.Format == "" {
		req.Format = defaultFormat
	}

	if req.ModelVersion == "" {
		req.ModelVersion = defaultModelVersion
	}

	if req.Language == "" {
		req.Language = defaultLanguage
	}

	var resp generateResponse

	err := c.postJSON(ctx, apiGenerate, req, &resp)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	if resp.JobID == "" {
		return "", fmt.Errorf("%w: %w", ErrSubmissionFailed, ErrEmptyJobIDResponse)
	}

	return resp.JobID, nil
}

// FetchArtifact downloads the finished audio artifact at audioURL, which is
// the service-relative locator delivered by a completed progress frame.
func (c *Client) FetchArtifact(ctx context.Context, audioURL string) ([]byte, error) {
	if audioURL == "" {
		return nil, ErrArtifactURLEmpty
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+audioURL,
		http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact request: %w", err)
	}

	resp, err := c.requestClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to download artifact from %s: %w",
			audioURL,
			err,
		)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact data: %w", err)
	}

	if len(data) == 0 {
		return nil, ErrEmptyArtifact
	}

	return data, nil
}

// postJSON sends a JSON body to path and decodes a JSON response into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		bytes.NewReader(requestBody),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeJSON)

	return c.doJSON(httpReq, out)
}

// postMultipart sends a multipart form built by buildForm to path and
// decodes a JSON response into out.
func (c *Client) postMultipart(
	ctx context.Context,
	path string,
	buildForm func(*multipart.Writer) error,
	out any,
) error {
	var requestBody bytes.Buffer

	form := multipart.NewWriter(&requestBody)

	err := buildForm(form)
	if err != nil {
		return err
	}

	closeErr := form.Close()
	if closeErr != nil {
		return fmt.Errorf("failed to finalize multipart form: %w", closeErr)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		&requestBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, form.FormDataContentType())
	httpReq.Header.Set(headerAccept, contentTypeJSON)

	return c.doJSON(httpReq, out)
}

// deleteJSON issues a DELETE against path and decodes a JSON response into out.
func (c *Client) deleteJSON(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodDelete,
		c.baseURL+path,
		http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerAccept, contentTypeJSON)

	return c.doJSON(httpReq, out)
}

// getJSON issues a GET against path and decodes a JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+path,
		http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerAccept, contentTypeJSON)

	return c.doJSON(httpReq, out)
}

func (c *Client) doJSON(httpReq *http.Request, out any) error {
	resp, err := c.requestClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf(
			"failed to send request to production service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	return nil
}

// parseErrorResponse attempts to decode a structured JSON error from the
// service. If structured parsing fails, it falls back to the raw response
// body so diagnostic information is preserved.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errorResp errorResponse

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil && errorResp.Detail != "" {
		return fmt.Errorf(
			"production service error (%s): %s",
			resp.Status,
			errorResp.Detail,
		)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		"production service returned non-OK status: %s, body: %s",
		resp.Status,
		string(body),
	)
}
