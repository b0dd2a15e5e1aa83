package aiclassifier

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/holidarr/holidarr/internal/holiday"
)

type rawClassification struct {
	Holiday    string      `json:"holiday"`
	Confidence json.Number `json:"confidence"`
	Reason     string      `json:"reason"`
}

type rawResponse struct {
	Holidays *[]rawClassification `json:"holidays"`
}

// extractJSON strips code fences and surrounding prose from a model answer.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// parse decodes the backend answer into actionable classifications. Unknown
// tokens are dropped and logged; duplicates keep the highest confidence.
func (c *Classifier) parse(externalID, content string) ([]holiday.Classification, error) {
	var resp rawResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Holidays == nil {
		return nil, fmt.Errorf("%w: missing \"holidays\"", ErrMalformedResponse)
	}

	best := make(map[holiday.Holiday]holiday.Classification)
	for _, raw := range *resp.Holidays {
		h, ok := holiday.FromToken(raw.Holiday)
		if !ok {
			c.metrics.IncDroppedToken()
			c.logger.Warn().Str("externalId", externalID).Str("token", raw.Holiday).Msg("Dropping unrecognized holiday token")
			continue
		}
		f, err := raw.Confidence.Float64()
		if err != nil {
			c.logger.Warn().Str("externalId", externalID).Str("holiday", h.String()).Str("confidence", raw.Confidence.String()).Msg("Dropping classification with invalid confidence")
			continue
		}
		// Truncate so a fractional score never rounds up across the floor.
		confidence := int(math.Floor(math.Max(0, math.Min(100, f))))

		cl := holiday.Classification{Holiday: h, Confidence: confidence, Reason: strings.TrimSpace(raw.Reason)}
		if prev, ok := best[h]; !ok || cl.Confidence > prev.Confidence {
			best[h] = cl
		}
	}

	out := make([]holiday.Classification, 0, len(best))
	for _, cl := range best {
		if !cl.Actionable() {
			c.logger.Debug().Str("externalId", externalID).Str("holiday", cl.Holiday.String()).Int("confidence", cl.Confidence).Msg("Discarding low-confidence classification")
			continue
		}
		out = append(out, cl)
	}
	holiday.SortClassifications(out)
	return out, nil
}
