// Package content_test tests local content format detection.
package content_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/production-client/internal/content"
)

const podcastScript = `[0:00] Maria: Welcome back to the show.
[0:05] Carlos: Thanks, great to be here.
[0:12] Maria: Let's get started.`

func TestDetectFormat_PlainText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, content.FormatPlainText, content.DetectFormat("Just a paragraph of prose."))
	assert.Equal(t, content.FormatPlainText, content.DetectFormat(""))
	assert.Equal(t, content.FormatPlainText, content.DetectFormat("   \n\t  "))
}

func TestDetectFormat_PodcastScript(t *testing.T) {
	t.Parallel()

	assert.Equal(t, content.FormatPodcastScript, content.DetectFormat(podcastScript))
}

func TestDetectFormat_SingleScriptLineIsPlainText(t *testing.T) {
	t.Parallel()

	// One matching line is not enough evidence for a script.
	assert.Equal(
		t,
		content.FormatPlainText,
		content.DetectFormat("[0:00] Maria: Welcome back to the show."),
	)
}

func TestDetectFormat_AudiobookJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(
		t,
		content.FormatAudiobookJSON,
		content.DetectFormat(`{"tts_version": "1.0", "chapters": []}`),
	)
	assert.Equal(
		t,
		content.FormatAudiobookJSON,
		content.DetectFormat(`{"reading_version": 2}`),
	)
	assert.Equal(
		t,
		content.FormatAudiobookJSON,
		content.DetectFormat(`{"content": "..."}`),
	)
}

func TestDetectFormat_UnrelatedJSONIsPlainText(t *testing.T) {
	t.Parallel()

	assert.Equal(
		t,
		content.FormatPlainText,
		content.DetectFormat(`{"name": "not an audiobook"}`),
	)
	assert.Equal(t, content.FormatPlainText, content.DetectFormat(`{broken json`))
}

func TestExtractSpeakers(t *testing.T) {
	t.Parallel()

	speakers := content.ExtractSpeakers(podcastScript)
	assert.Equal(t, []string{"Carlos", "Maria"}, speakers)
}

func TestExtractSpeakers_NoScriptLines(t *testing.T) {
	t.Parallel()

	assert.Empty(t, content.ExtractSpeakers("plain prose without timestamps"))
}

func TestFormatInfo(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Podcast script", content.FormatInfo(content.FormatPodcastScript).Label)
	assert.Equal(t, "Audiobook JSON", content.FormatInfo(content.FormatAudiobookJSON).Label)
	assert.Equal(t, "Plain text", content.FormatInfo(content.FormatPlainText).Label)
	// Unknown formats display as plain text.
	assert.Equal(t, "Plain text", content.FormatInfo("mystery").Label)
}

func TestDebouncer_RunsAfterQuietPeriod(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32

	debouncer := content.NewDebouncer(20 * time.Millisecond)
	debouncer.Trigger(func() { runs.Add(1) })

	assert.Eventually(t, func() bool {
		return runs.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncer_TriggerReplacesPendingRun(t *testing.T) {
	t.Parallel()

	var first, second atomic.Int32

	debouncer := content.NewDebouncer(50 * time.Millisecond)
	debouncer.Trigger(func() { first.Add(1) })
	debouncer.Trigger(func() { second.Add(1) })

	assert.Eventually(t, func() bool {
		return second.Load() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestDebouncer_StopCancelsPendingRun(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32

	debouncer := content.NewDebouncer(20 * time.Millisecond)
	debouncer.Trigger(func() { runs.Add(1) })
	debouncer.Stop()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())

	// Stop with nothing pending stays safe.
	debouncer.Stop()
}
