// Package production_test tests the HTTP client for the production service.
package production_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/production-client/internal/core"
	"github.com/book-expert/production-client/internal/production"
)

const testRequestTimeout = 5 * time.Second

// createTestLogger creates a test logger instance.
func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	return testLogger
}

// createTestClient creates a client pointing at the given test server.
func createTestClient(t *testing.T, serverURL string) *production.Client {
	t.Helper()

	return production.NewClient(serverURL, testRequestTimeout, createTestLogger(t))
}

func TestSubmit_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "/production/generate", request.URL.Path)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var req core.GenerateRequest

			err := json.NewDecoder(request.Body).Decode(&req)
			require.NoError(t, err)

			assert.Equal(t, "Hello, world!", req.Content)
			// Defaults are filled in by the client.
			assert.Equal(t, "plain_text", req.Format)
			assert.Equal(t, "1.7B", req.ModelVersion)
			assert.Equal(t, "Spanish", req.Language)

			responseWriter.Header().Set("Content-Type", "application/json")

			err = json.NewEncoder(responseWriter).
				Encode(map[string]string{"job_id": "abc123"})
			require.NoError(t, err)
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	jobID, err := client.Submit(context.Background(), core.GenerateRequest{
		Content:       "Hello, world!",
		Format:        "",
		VoiceName:     "",
		ModelVersion:  "",
		Language:      "",
		Instruct:      "",
		Speaker:       "",
		SpeakerVoices: nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", jobID)
}

func TestSubmit_EmptyContent(t *testing.T) {
	t.Parallel()

	client := createTestClient(t, "http://127.0.0.1:0")

	_, err := client.Submit(context.Background(), core.GenerateRequest{
		Content:       "",
		Format:        "",
		VoiceName:     "",
		ModelVersion:  "",
		Language:      "",
		Instruct:      "",
		Speaker:       "",
		SpeakerVoices: nil,
	})
	require.ErrorIs(t, err, production.ErrContentEmpty)
}

func TestSubmit_ServiceRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "application/json")
			responseWriter.WriteHeader(http.StatusServiceUnavailable)

			_ = json.NewEncoder(responseWriter).
				Encode(map[string]string{"detail": "model loading failed"})
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	_, err := client.Submit(context.Background(), core.GenerateRequest{
		Content:       "some text",
		Format:        "",
		VoiceName:     "",
		ModelVersion:  "",
		Language:      "",
		Instruct:      "",
		Speaker:       "",
		SpeakerVoices: nil,
	})
	require.ErrorIs(t, err, production.ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "model loading failed")
}

func TestSubmit_EmptyJobIDResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "application/json")

			_, _ = responseWriter.Write([]byte(`{}`))
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	_, err := client.Submit(context.Background(), core.GenerateRequest{
		Content:       "some text",
		Format:        "",
		VoiceName:     "",
		ModelVersion:  "",
		Language:      "",
		Instruct:      "",
		Speaker:       "",
		SpeakerVoices: nil,
	})
	require.ErrorIs(t, err, production.ErrEmptyJobIDResponse)
}

func TestFetchArtifact_Success(t *testing.T) {
	t.Parallel()

	const testAudioData = "RIFF....WAVE"

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/files/abc123.wav", request.URL.Path)
			responseWriter.Header().Set("Content-Type", "audio/wav")

			_, _ = responseWriter.Write([]byte(testAudioData))
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	data, err := client.FetchArtifact(context.Background(), "/files/abc123.wav")
	require.NoError(t, err)
	assert.Equal(t, []byte(testAudioData), data)
}

func TestFetchArtifact_EmptyURL(t *testing.T) {
	t.Parallel()

	client := createTestClient(t, "http://127.0.0.1:0")

	_, err := client.FetchArtifact(context.Background(), "")
	require.ErrorIs(t, err, production.ErrArtifactURLEmpty)
}

func TestFetchArtifact_EmptyBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.WriteHeader(http.StatusOK)
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	_, err := client.FetchArtifact(context.Background(), "/files/empty.wav")
	require.ErrorIs(t, err, production.ErrEmptyArtifact)
}

func TestListVoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/voices", request.URL.Path)
			responseWriter.Header().Set("Content-Type", "application/json")

			_, _ = responseWriter.Write([]byte(`{
				"qwen_speakers": ["Ryan", "Katie"],
				"cloned_voices": [
					{
						"name": "narrator",
						"audio_path": "/voices/narrator.wav",
						"transcript": "sample",
						"language": "Spanish",
						"style_tags": ["calm"]
					}
				]
			}`))
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	voices, err := client.ListVoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ryan", "Katie"}, voices.QwenSpeakers)
	require.Len(t, voices.ClonedVoices, 1)
	assert.Equal(t, "narrator", voices.ClonedVoices[0].Name)
}

func TestSystemStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/system/status", request.URL.Path)
			responseWriter.Header().Set("Content-Type", "application/json")

			_, _ = responseWriter.Write([]byte(`{
				"gpu_available": true,
				"model_loaded": true,
				"current_model": "1.7B",
				"voice_count": 4
			}`))
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	status, err := client.SystemStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.GPUAvailable)
	assert.True(t, status.ModelLoaded)
	assert.Equal(t, "1.7B", status.CurrentModel)
	assert.Equal(t, 4, status.VoiceCount)
}

func TestCreateVoice(t *testing.T) {
	t.Parallel()

	const testAudio = "RIFF....WAVE"

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "/voices", request.URL.Path)

			err := request.ParseMultipartForm(1 << 20)
			require.NoError(t, err)

			assert.Equal(t, "narrator", request.FormValue("name"))
			assert.Equal(t, "Spanish", request.FormValue("language"))
			assert.Equal(t, "true", request.FormValue("auto_transcribe"))
			assert.Equal(t, "calm,warm", request.FormValue("style_tags"))

			audioFile, header, err := request.FormFile("audio")
			require.NoError(t, err)

			defer func() { _ = audioFile.Close() }()

			assert.Equal(t, "narrator.wav", header.Filename)

			uploaded, err := io.ReadAll(audioFile)
			require.NoError(t, err)
			assert.Equal(t, []byte(testAudio), uploaded)

			responseWriter.Header().Set("Content-Type", "application/json")

			_, _ = responseWriter.Write([]byte(`{
				"profile": {
					"name": "narrator",
					"audio_path": "/voices/narrator.wav",
					"transcript": "sample",
					"language": "Spanish",
					"style_tags": ["calm", "warm"]
				},
				"message": "Voice 'narrator' created successfully"
			}`))
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	profile, err := client.CreateVoice(context.Background(), production.CreateVoiceRequest{
		Name:           "narrator",
		Language:       "Spanish",
		AutoTranscribe: true,
		Transcript:     "",
		StyleTags:      []string{"calm", "warm"},
		FileName:       "",
		AudioData:      []byte(testAudio),
	})
	require.NoError(t, err)
	assert.Equal(t, "narrator", profile.Name)
	assert.Equal(t, "/voices/narrator.wav", profile.AudioPath)
}

func TestCreateVoice_Validation(t *testing.T) {
	t.Parallel()

	client := createTestClient(t, "http://127.0.0.1:0")

	_, err := client.CreateVoice(context.Background(), production.CreateVoiceRequest{
		Name:           "",
		Language:       "",
		AutoTranscribe: false,
		Transcript:     "",
		StyleTags:      nil,
		FileName:       "",
		AudioData:      []byte("audio"),
	})
	require.ErrorIs(t, err, production.ErrVoiceNameEmpty)

	_, err = client.CreateVoice(context.Background(), production.CreateVoiceRequest{
		Name:           "narrator",
		Language:       "",
		AutoTranscribe: false,
		Transcript:     "",
		StyleTags:      nil,
		FileName:       "",
		AudioData:      nil,
	})
	require.ErrorIs(t, err, production.ErrVoiceAudioEmpty)
}

func TestDeleteVoice(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodDelete, request.Method)
			assert.Equal(t, "/voices/narrator", request.URL.Path)
			responseWriter.Header().Set("Content-Type", "application/json")

			_, _ = responseWriter.Write([]byte(`{"message": "Voice 'narrator' deleted"}`))
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	message, err := client.DeleteVoice(context.Background(), "narrator")
	require.NoError(t, err)
	assert.Equal(t, "Voice 'narrator' deleted", message)
}

func TestDeleteVoice_NotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "application/json")
			responseWriter.WriteHeader(http.StatusNotFound)

			_, _ = responseWriter.Write([]byte(`{"detail": "Voice 'ghost' not found"}`))
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	_, err := client.DeleteVoice(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = client.DeleteVoice(context.Background(), "")
	require.ErrorIs(t, err, production.ErrVoiceNameEmpty)
}

func TestListModels(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/tts/models", request.URL.Path)
			responseWriter.Header().Set("Content-Type", "application/json")

			_, _ = responseWriter.Write([]byte(`{
				"models": {"1.7B": "Qwen/Qwen3-TTS-12Hz-1.7B-CustomVoice"},
				"capabilities": {"1.7B": ["custom_voice"]}
			}`))
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	catalog, err := client.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Qwen/Qwen3-TTS-12Hz-1.7B-CustomVoice", catalog.Models["1.7B"])
	assert.Equal(t, []string{"custom_voice"}, catalog.Capabilities["1.7B"])
}

func TestBuildInstruct(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/emotions/build-instruct", request.URL.Path)

			var req production.BuildInstructRequest

			err := json.NewDecoder(request.Body).Decode(&req)
			require.NoError(t, err)
			assert.Equal(t, "joyful", req.Emotion)

			responseWriter.Header().Set("Content-Type", "application/json")

			_, _ = responseWriter.Write(
				[]byte(`{"instruct": "speak with bright, joyful energy"}`),
			)
		},
	))
	defer server.Close()

	client := createTestClient(t, server.URL)

	instruct, err := client.BuildInstruct(context.Background(), production.BuildInstructRequest{
		Emotion:      "joyful",
		Style:        "conversational",
		Pace:         "normal",
		Intensity:    "normal",
		EmotionLevel: "mid",
		Custom:       "",
		AddVariation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "speak with bright, joyful energy", instruct)
}
