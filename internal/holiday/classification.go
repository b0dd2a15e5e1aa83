package holiday

import (
	"cmp"
	"slices"
)

// ActionableConfidence is the floor below which a classification is discarded
// by every consumer.
const ActionableConfidence = 70

// Classification associates a media item with one holiday.
type Classification struct {
	Holiday    Holiday `json:"holiday"`
	Confidence int     `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// Actionable reports whether the classification clears ActionableConfidence.
func (c Classification) Actionable() bool {
	return c.Confidence >= ActionableConfidence
}

// FilterActionable returns the actionable classifications restricted to the
// selected set. A nil selection keeps every holiday.
func FilterActionable(cs []Classification, selected Set) []Classification {
	out := make([]Classification, 0, len(cs))
	for _, c := range cs {
		if !c.Actionable() {
			continue
		}
		if selected != nil && !selected.Has(c.Holiday) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SortClassifications orders by confidence, highest first, then by holiday
// enum order.
func SortClassifications(cs []Classification) {
	slices.SortStableFunc(cs, func(a, b Classification) int {
		if a.Confidence != b.Confidence {
			return cmp.Compare(b.Confidence, a.Confidence)
		}
		return cmp.Compare(indexOf(a.Holiday), indexOf(b.Holiday))
	})
}
