package oracle

import (
	"context"
	"strings"
)

// homophones folds words that transcription commonly confuses onto one
// spelling. Inputs are already normalized, so keys carry no apostrophes.
var homophones = map[string]string{
	"them":    "then",
	"too":     "to",
	"two":     "to",
	"youre":   "your",
	"their":   "there",
	"theyre":  "there",
	"hear":    "here",
	"no":      "know",
	"write":   "right",
	"four":    "for",
	"buy":     "by",
	"bye":     "by",
	"eight":   "ate",
	"hole":    "whole",
	"whether": "weather",
	"wood":    "would",
	"weight":  "wait",
	"knight":  "night",
	"won":     "one",
}

// Ordered is a deterministic, offline oracle. It matches when every word of the
// instruction appears in the utterance in order, allowing extra words anywhere
// and treating the homophones above as equal. Synonyms and reordering fail.
type Ordered struct{}

func NewOrdered() *Ordered { return &Ordered{} }

func (Ordered) Evaluate(ctx context.Context, expected, actual string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	want := strings.Fields(expected)
	if len(want) == 0 {
		return false, nil
	}

	i := 0
	for _, w := range strings.Fields(actual) {
		if fold(w) == fold(want[i]) {
			i++
			if i == len(want) {
				return true, nil
			}
		}
	}
	return false, nil
}

func fold(w string) string {
	if c, ok := homophones[w]; ok {
		return c
	}
	return w
}
