// main package for the production-client CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/production-client/internal/config"
	"github.com/book-expert/production-client/internal/content"
	"github.com/book-expert/production-client/internal/core"
	"github.com/book-expert/production-client/internal/job"
	"github.com/book-expert/production-client/internal/orchestrator"
	"github.com/book-expert/production-client/internal/production"
)

// Flag names.
const (
	flagText     = "text"
	flagFile     = "file"
	flagFormat   = "format"
	flagVoice    = "voice"
	flagModel    = "model"
	flagLanguage = "language"
	flagInstruct = "instruct"
	flagSpeaker  = "speaker"
	flagOutput   = "output"
	flagVoices   = "voices"
	flagStatus   = "status"
	flagDetect   = "detect"
)

// Flag descriptions.
const (
	flagTextDesc     = "Text content to produce"
	flagFileDesc     = "File containing the content to produce"
	flagFormatDesc   = "Content format (plain_text, podcast_script, audiobook_json); auto-detected when empty"
	flagVoiceDesc    = "Cloned voice name"
	flagModelDesc    = "Model version"
	flagLanguageDesc = "Target language"
	flagInstructDesc = "Emotion/style instruct string"
	flagSpeakerDesc  = "Built-in speaker name"
	flagOutputDesc   = "Output file path (.wav)"
	flagVoicesDesc   = "List available voices and exit"
	flagStatusDesc   = "Show production service status and exit"
	flagDetectDesc   = "Detect the content format locally and exit"
)

// Error messages.
const (
	errEitherTextOrFile  = "either -text or -file must be provided"
	errCannotSpecifyBoth = "cannot specify both -text and -file"
)

const (
	defaultOutputFile = "output.wav"
	requestTimeout    = 30 * time.Second
	artifactFileMode  = 0o600
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text     string
	file     string
	format   string
	voice    string
	model    string
	language string
	instruct string
	speaker  string
	output   string
	voices   bool
	status   bool
	detect   bool
}

func main() {
	err := run()
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	cfg, finalLog, err := setup()
	if err != nil {
		return err
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	client := production.NewClient(
		cfg.Production.BaseURL,
		time.Duration(cfg.Production.TimeoutSeconds)*time.Second,
		finalLog,
	)

	switch {
	case flags.voices:
		return handleVoices(client)
	case flags.status:
		return handleStatus(client)
	case flags.detect:
		return handleDetect(flags)
	default:
		return handleGenerate(client, cfg, finalLog, flags)
	}
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.file, flagFile, "", flagFileDesc)
	flag.StringVar(&flags.format, flagFormat, "", flagFormatDesc)
	flag.StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	flag.StringVar(&flags.model, flagModel, "", flagModelDesc)
	flag.StringVar(&flags.language, flagLanguage, "", flagLanguageDesc)
	flag.StringVar(&flags.instruct, flagInstruct, "", flagInstructDesc)
	flag.StringVar(&flags.speaker, flagSpeaker, "", flagSpeakerDesc)
	flag.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flag.BoolVar(&flags.voices, flagVoices, false, flagVoicesDesc)
	flag.BoolVar(&flags.status, flagStatus, false, flagStatusDesc)
	flag.BoolVar(&flags.detect, flagDetect, false, flagDetectDesc)
	flag.Parse()

	return flags
}

// setup loads the configuration and initializes the final logger.
func setup() (*config.Config, *logger.Logger, error) {
	bootstrapLog, err := logger.New(os.TempDir(), "production-client-bootstrap.log")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := logger.New(cfg.Paths.BaseLogsDir, "production-client.log")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return cfg, finalLog, nil
}

// resolveContent returns the content to produce from the -text or -file flag.
func resolveContent(flags appFlags) (string, error) {
	if flags.text == "" && flags.file == "" {
		flag.Usage()

		return "", errors.New(errEitherTextOrFile)
	}

	if flags.text != "" && flags.file != "" {
		return "", errors.New(errCannotSpecifyBoth)
	}

	if flags.text != "" {
		return flags.text, nil
	}

	data, err := os.ReadFile(flags.file)
	if err != nil {
		return "", fmt.Errorf("failed to read content file: %w", err)
	}

	return string(data), nil
}

func handleVoices(client *production.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	voices, err := client.ListVoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}

	fmt.Println("Built-in speakers:")

	for _, speaker := range voices.QwenSpeakers {
		fmt.Printf("  %s\n", speaker)
	}

	fmt.Println("Cloned voices:")

	for _, voice := range voices.ClonedVoices {
		fmt.Printf("  %s (%s)\n", voice.Name, voice.Language)
	}

	return nil
}

func handleStatus(client *production.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	status, err := client.SystemStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get system status: %w", err)
	}

	fmt.Printf("GPU available: %t\n", status.GPUAvailable)
	fmt.Printf("Model loaded:  %t\n", status.ModelLoaded)

	if status.CurrentModel != "" {
		fmt.Printf("Current model: %s\n", status.CurrentModel)
	}

	fmt.Printf("Voice count:   %d\n", status.VoiceCount)

	return nil
}

func handleDetect(flags appFlags) error {
	documentContent, err := resolveContent(flags)
	if err != nil {
		return err
	}

	format := content.DetectFormat(documentContent)
	info := content.FormatInfo(format)

	fmt.Printf("Format: %s (%s)\n", format, info.Label)
	fmt.Println(info.Description)

	if format == content.FormatPodcastScript {
		fmt.Println("Speakers:")

		for _, speaker := range content.ExtractSpeakers(documentContent) {
			fmt.Printf("  %s\n", speaker)
		}
	}

	return nil
}

// handleGenerate submits a production job, streams progress to stdout, and
// saves the finished artifact.
func handleGenerate(
	client *production.Client,
	cfg *config.Config,
	finalLog *logger.Logger,
	flags appFlags,
) error {
	documentContent, err := resolveContent(flags)
	if err != nil {
		return err
	}

	format := flags.format
	if format == "" {
		format = content.DetectFormat(documentContent)
		finalLog.Info("Detected content format: %s", format)
	}

	tracker := job.NewTracker()
	orch := orchestrator.New(client, tracker, finalLog)

	updates, cancelWatch := tracker.Watch()
	defer cancelWatch()

	defer orch.Close()

	jobID, err := orch.Submit(context.Background(), core.GenerateRequest{
		Content:       documentContent,
		Format:        format,
		VoiceName:     flags.voice,
		ModelVersion:  flags.model,
		Language:      flags.language,
		Instruct:      flags.instruct,
		Speaker:       flags.speaker,
		SpeakerVoices: nil,
	})
	if err != nil {
		return fmt.Errorf("failed to submit production job: %w", err)
	}

	finalLog.Info("Production job %s submitted", jobID)

	final := awaitCompletion(updates)
	if final.State == core.JobStateFailed {
		return fmt.Errorf("production job %s failed: %s", jobID, final.ErrorText)
	}

	return saveArtifact(client, cfg, finalLog, flags, final)
}

// awaitCompletion renders progress snapshots until the job is terminal.
func awaitCompletion(updates <-chan job.Snapshot) job.View {
	for snapshot := range updates {
		view := job.Project(snapshot)

		if view.ShowBar {
			fmt.Printf("[%3d%%] %s\n", view.Percentage, view.Message)
		}

		if view.IsTerminal {
			return view
		}
	}

	// The watch channel never closes in practice; treat it as a failure.
	return job.Project(job.Snapshot{
		JobID:       "",
		State:       core.JobStateFailed,
		Progress:    0,
		Message:     "progress channel closed",
		ArtifactURL: "",
		ErrorDetail: "progress channel closed",
	})
}

func saveArtifact(
	client *production.Client,
	cfg *config.Config,
	finalLog *logger.Logger,
	flags appFlags,
	final job.View,
) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	audioData, err := client.FetchArtifact(ctx, final.ArtifactURL)
	if err != nil {
		return fmt.Errorf("failed to download artifact: %w", err)
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = filepath.Join(cfg.Paths.OutputDir, defaultOutputFile)
	}

	err = os.WriteFile(outputPath, audioData, artifactFileMode)
	if err != nil {
		return fmt.Errorf("failed to write artifact file: %w", err)
	}

	finalLog.Info("Saved artifact %s (%d bytes)", outputPath, len(audioData))
	fmt.Printf("Generated: %s\n", outputPath)

	return nil
}
