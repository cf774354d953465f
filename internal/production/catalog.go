package production

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
)

// Catalog and system endpoint paths.
const (
	apiVoices        = "/voices"
	apiEmotions      = "/emotions"
	apiBuildInstruct = "/emotions/build-instruct"
	apiAnalyzeText   = "/emotions/analyze"
	apiSystemStatus  = "/system/status"
	apiSystemUnload  = "/system/unload"
	apiContentDetect = "/content/detect"
	apiModels        = "/tts/models"
)

// Voice-library errors.
var (
	// ErrVoiceNameEmpty indicates a voice operation without a voice name.
	ErrVoiceNameEmpty = errors.New("voice name cannot be empty")
	// ErrVoiceAudioEmpty indicates a clone upload without audio data.
	ErrVoiceAudioEmpty = errors.New("voice audio data cannot be empty")
)

// VoiceProfile describes one cloned voice in the voice library.
type VoiceProfile struct {
	Name       string   `json:"name"`
	AudioPath  string   `json:"audio_path"`
	Transcript string   `json:"transcript"`
	Language   string   `json:"language"`
	StyleTags  []string `json:"style_tags"`
}

// VoiceList is the response of the voice catalog endpoint.
type VoiceList struct {
	QwenSpeakers []string       `json:"qwen_speakers"`
	ClonedVoices []VoiceProfile `json:"cloned_voices"`
}

// EmotionPreset is a named, ready-made instruct string.
type EmotionPreset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Instruct    string `json:"instruct"`
}

// Modality is a delivery mode (narration, dialogue, ...) with its instruct.
type Modality struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Instruct    string `json:"instruct"`
}

// EmotionCatalog is the response of the emotions endpoint.
type EmotionCatalog struct {
	Emotions        []string                     `json:"emotions"`
	EmotionDetails  map[string]map[string]string `json:"emotion_details"`
	Styles          []string                     `json:"styles"`
	Paces           []string                     `json:"paces"`
	Intensities     []string                     `json:"intensities"`
	IntensityLevels []string                     `json:"intensity_levels"`
	Presets         []EmotionPreset              `json:"presets"`
	Modalities      []Modality                   `json:"modalities"`
}

// BuildInstructRequest asks the service to synthesize an instruct string
// from discrete emotion and style selections.
type BuildInstructRequest struct {
	Emotion      string `json:"emotion"`
	Style        string `json:"style"`
	Pace         string `json:"pace"`
	Intensity    string `json:"intensity"`
	EmotionLevel string `json:"emotion_level"`
	Custom       string `json:"custom"`
	AddVariation bool   `json:"add_variation"`
}

// buildInstructResponse carries the synthesized instruct string.
type buildInstructResponse struct {
	Instruct string `json:"instruct"`
}

// AnalyzeTextRequest asks the service to infer emotional delivery from text.
type AnalyzeTextRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// TextAnalysis is the emotional profile the service inferred from text.
type TextAnalysis struct {
	DetectedEmotion string  `json:"detected_emotion"`
	IntensityLevel  string  `json:"intensity_level"`
	IntensityScore  float64 `json:"intensity_score"`
	Rhythm          string  `json:"rhythm"`
	Instruct        string  `json:"instruct"`
	Confidence      float64 `json:"confidence"`
}

// ContentDetection is the service-side view of a pasted document's format.
type ContentDetection struct {
	Format      string   `json:"format"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Speakers    []string `json:"speakers"`
}

// CreateVoiceRequest carries an audio sample and its metadata for cloning a
// new voice into the library.
type CreateVoiceRequest struct {
	Name           string
	Language       string
	AutoTranscribe bool
	Transcript     string
	StyleTags      []string
	FileName       string
	AudioData      []byte
}

// voiceCreateResponse wraps the profile of a freshly cloned voice.
type voiceCreateResponse struct {
	Profile VoiceProfile `json:"profile"`
	Message string       `json:"message"`
}

// ModelCatalog lists the model versions the service can load and what each
// of them supports.
type ModelCatalog struct {
	Models       map[string]string   `json:"models"`
	Capabilities map[string][]string `json:"capabilities"`
}

// SystemStatus reports GPU and model state of the production service.
type SystemStatus struct {
	GPUAvailable bool   `json:"gpu_available"`
	ModelLoaded  bool   `json:"model_loaded"`
	CurrentModel string `json:"current_model,omitempty"`
	VoiceCount   int    `json:"voice_count"`
}

// messageResponse is the bare confirmation body several endpoints return.
type messageResponse struct {
	Message string `json:"message"`
}

// contentDetectRequest is the body of the format detection endpoint.
type contentDetectRequest struct {
	Content string `json:"content"`
}

// ListVoices returns the speaker catalog and the cloned voice library.
func (c *Client) ListVoices(ctx context.Context) (*VoiceList, error) {
	var voices VoiceList

	err := c.getJSON(ctx, apiVoices, &voices)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}

	return &voices, nil
}

// ListEmotions returns the emotion, style, pace, and preset catalog.
func (c *Client) ListEmotions(ctx context.Context) (*EmotionCatalog, error) {
	var catalog EmotionCatalog

	err := c.getJSON(ctx, apiEmotions, &catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to list emotions: %w", err)
	}

	return &catalog, nil
}

// BuildInstruct synthesizes an instruct string from the given selections.
func (c *Client) BuildInstruct(
	ctx context.Context,
	req BuildInstructRequest,
) (string, error) {
	var resp buildInstructResponse

	err := c.postJSON(ctx, apiBuildInstruct, req, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to build instruct: %w", err)
	}

	return resp.Instruct, nil
}

// AnalyzeText infers an emotional delivery profile for the given text.
func (c *Client) AnalyzeText(
	ctx context.Context,
	req AnalyzeTextRequest,
) (*TextAnalysis, error) {
	var analysis TextAnalysis

	err := c.postJSON(ctx, apiAnalyzeText, req, &analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze text: %w", err)
	}

	return &analysis, nil
}

// DetectContentFormat asks the service to classify pasted content.
func (c *Client) DetectContentFormat(
	ctx context.Context,
	content string,
) (*ContentDetection, error) {
	var detection ContentDetection

	err := c.postJSON(ctx, apiContentDetect, contentDetectRequest{Content: content}, &detection)
	if err != nil {
		return nil, fmt.Errorf("failed to detect content format: %w", err)
	}

	return &detection, nil
}

// SystemStatus returns the GPU and model state of the service.
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus

	err := c.getJSON(ctx, apiSystemStatus, &status)
	if err != nil {
		return nil, fmt.Errorf("failed to get system status: %w", err)
	}

	return &status, nil
}

// UnloadModel asks the service to release the loaded model from the GPU.
func (c *Client) UnloadModel(ctx context.Context) (string, error) {
	var resp messageResponse

	err := c.postJSON(ctx, apiSystemUnload, struct{}{}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to unload model: %w", err)
	}

	return resp.Message, nil
}

// CreateVoice uploads an audio sample and clones it into the voice library.
// The service transcribes the sample itself when AutoTranscribe is set;
// otherwise Transcript must carry the spoken text.
func (c *Client) CreateVoice(
	ctx context.Context,
	req CreateVoiceRequest,
) (*VoiceProfile, error) {
	if req.Name == "" {
		return nil, ErrVoiceNameEmpty
	}

	if len(req.AudioData) == 0 {
		return nil, ErrVoiceAudioEmpty
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = req.Name + ".wav"
	}

	buildForm := func(form *multipart.Writer) error {
		fields := map[string]string{
			"name":            req.Name,
			"language":        req.Language,
			"auto_transcribe": strconv.FormatBool(req.AutoTranscribe),
			"transcript":      req.Transcript,
			"style_tags":      strings.Join(req.StyleTags, ","),
		}

		for field, value := range fields {
			writeErr := form.WriteField(field, value)
			if writeErr != nil {
				return fmt.Errorf(
					"failed to write form field '%s': %w",
					field,
					writeErr,
				)
			}
		}

		filePart, err := form.CreateFormFile("audio", fileName)
		if err != nil {
			return fmt.Errorf("failed to create audio form file: %w", err)
		}

		_, err = filePart.Write(req.AudioData)
		if err != nil {
			return fmt.Errorf("failed to write audio data: %w", err)
		}

		return nil
	}

	var resp voiceCreateResponse

	err := c.postMultipart(ctx, apiVoices, buildForm, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to create voice '%s': %w", req.Name, err)
	}

	return &resp.Profile, nil
}

// DeleteVoice removes a cloned voice from the library.
func (c *Client) DeleteVoice(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", ErrVoiceNameEmpty
	}

	var resp messageResponse

	err := c.deleteJSON(ctx, apiVoices+"/"+name, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to delete voice '%s': %w", name, err)
	}

	return resp.Message, nil
}

// ListModels returns the loadable model versions and their capabilities.
func (c *Client) ListModels(ctx context.Context) (*ModelCatalog, error) {
	var catalog ModelCatalog

	err := c.getJSON(ctx, apiModels, &catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	return &catalog, nil
}
