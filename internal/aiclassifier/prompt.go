package aiclassifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/media"
)

// MinReportedConfidence is the floor the backend is told to apply before
// answering. The actionable floor applied afterwards is higher.
const MinReportedConfidence = 50

var systemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You classify TV episodes and movies by the holidays they are associated with.\n")
	b.WriteString("You receive one JSON object describing a single episode or movie.\n\n")
	b.WriteString("Respond with strict JSON only, no prose and no code fences, in exactly this shape:\n")
	b.WriteString(`{"holidays": [{"holiday": "<token>", "confidence": <1-100>, "reason": "<short reason>"}]}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Use only these lowercase holiday tokens: ")
	b.WriteString(strings.Join(holiday.Tokens(), ", "))
	b.WriteString(".\n")
	b.WriteString("- Never invent a holiday that is not in the list.\n")
	b.WriteString("- confidence is an integer from 1 to 100.\n")
	fmt.Fprintf(&b, "- Omit any holiday with confidence below %d.\n", MinReportedConfidence)
	b.WriteString("- A \"holiday special\" framing is enough context even when the holiday is not named.\n")
	b.WriteString("- Several holidays may apply. If none apply, return {\"holidays\": []}.\n")
	return b.String()
}

// SystemPrompt returns the fixed instruction sent with every request.
func SystemPrompt() string {
	return systemPrompt
}

type episodePayload struct {
	Title         string `json:"title"`
	SeriesTitle   string `json:"seriesTitle"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Description   string `json:"description"`
}

type moviePayload struct {
	Title       string `json:"title"`
	Year        int    `json:"year,omitempty"`
	Description string `json:"description"`
}

// BuildPayload returns the compact JSON description of item sent as the
// user message.
func BuildPayload(item media.Item) (string, error) {
	var v any
	switch it := item.(type) {
	case *media.Episode:
		v = episodePayload{
			Title:         it.Title,
			SeriesTitle:   it.SeriesTitle,
			SeasonNumber:  it.SeasonNumber,
			EpisodeNumber: it.EpisodeNumber,
			Description:   it.Summary,
		}
	case *media.Movie:
		v = moviePayload{
			Title:       it.Title,
			Year:        it.Year,
			Description: it.Summary,
		}
	default:
		return "", fmt.Errorf("%w: %T", media.ErrUnknownKind, item)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(data), nil
}
