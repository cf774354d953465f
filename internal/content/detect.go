// Package content classifies pasted editor content into the production
// formats and extracts podcast speaker names. Detection is local and pure;
// the service-side detection endpoint returns the same classification.
package content

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// Production content formats.
const (
	FormatPlainText     = "plain_text"
	FormatPodcastScript = "podcast_script"
	FormatAudiobookJSON = "audiobook_json"
)

// podcastLinePattern matches one script line of the form
// "[M:SS] Speaker: text". At least two matching lines classify the content
// as a podcast script.
var podcastLinePattern = regexp.MustCompile(`\[(\d{1,2}:\d{2})\]\s*(\w+):\s*(.+)`)

const minPodcastLines = 2

// audiobookKeys are the top-level JSON keys that identify an audiobook
// document. Any one of them is sufficient.
var audiobookKeys = []string{"tts_version", "reading_version", "content"}

// DetectFormat classifies content as plain text, a podcast script, or an
// audiobook JSON document. Empty or whitespace-only content is plain text.
func DetectFormat(content string) string {
	stripped := strings.TrimSpace(content)
	if stripped == "" {
		return FormatPlainText
	}

	if strings.HasPrefix(stripped, "{") && isAudiobookJSON(stripped) {
		return FormatAudiobookJSON
	}

	matches := podcastLinePattern.FindAllStringSubmatch(stripped, -1)
	if len(matches) >= minPodcastLines {
		return FormatPodcastScript
	}

	return FormatPlainText
}

// ExtractSpeakers returns the sorted set of unique speaker names found in a
// podcast script.
func ExtractSpeakers(content string) []string {
	matches := podcastLinePattern.FindAllStringSubmatch(content, -1)

	seen := make(map[string]struct{}, len(matches))

	speakers := make([]string, 0, len(matches))

	for _, match := range matches {
		name := match[2]

		_, duplicate := seen[name]
		if duplicate {
			continue
		}

		seen[name] = struct{}{}

		speakers = append(speakers, name)
	}

	sort.Strings(speakers)

	return speakers
}

// Info describes a detected format for display.
type Info struct {
	Label       string
	Description string
	Color       string
}

// FormatInfo returns display metadata for a format. Unknown formats fall
// back to plain text.
func FormatInfo(format string) Info {
	switch format {
	case FormatPodcastScript:
		return Info{
			Label:       "Podcast script",
			Description: "Multi-speaker script detected ([M:SS] Speaker: text). Assign a voice to each speaker.",
			Color:       "#D94A8C",
		}
	case FormatAudiobookJSON:
		return Info{
			Label:       "Audiobook JSON",
			Description: "Structured audiobook document. Processed with automatic chunking and crossfade.",
			Color:       "#4AD97A",
		}
	default:
		return Info{
			Label:       "Plain text",
			Description: "Free text for direct speech synthesis with a single voice.",
			Color:       "#4A90D9",
		}
	}
}

func isAudiobookJSON(content string) bool {
	var document map[string]json.RawMessage

	err := json.Unmarshal([]byte(content), &document)
	if err != nil {
		return false
	}

	for _, key := range audiobookKeys {
		_, present := document[key]
		if present {
			return true
		}
	}

	return false
}
