// Package oracle holds the implementations that decide whether a spoken
// command is present in a transcript.
package oracle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

const systemPrompt = `You are a careful listening assistant. Decide whether a specific spoken command occurs inside a user's free-form speech, allowing for common speech-to-text mistakes. Reply with a JSON object that has exactly one boolean key: "match".`

const userPromptTemplate = `The user is speaking freely. Does their speech contain the ordered command "{{.Expected}}"?

Full utterance: "{{.Actual}}"

Decide using these rules:
1. Every key word of the command must appear in the utterance, in the same order.
2. Ignore filler the user adds around or between the words (for example "um", "I think", "I guess").
3. Phonetic leniency: accept words that sound alike and are commonly confused by transcription, such as "then"/"them", "to"/"too", "your"/"you're", "there"/"their".
4. Strictness: do NOT accept synonyms (for example "go" instead of "move") or a different word order.

Answer only with {"match": true} or {"match": false}. Do not add any explanation.`

var userPrompt = template.Must(template.New("userPrompt").Parse(userPromptTemplate))

// PromptVersion is a short digest of the prompts. Cached verdicts from an
// older wording are never reused.
var PromptVersion = promptDigest()

func promptDigest() string {
	sum := sha256.Sum256([]byte(systemPrompt + "\x00" + userPromptTemplate))
	return hex.EncodeToString(sum[:6])
}

type promptData struct {
	Expected string
	Actual   string
}

// renderPrompt returns the system and user messages for one evaluation.
func renderPrompt(expected, actual string) (string, string, error) {
	var buf bytes.Buffer
	if err := userPrompt.Execute(&buf, promptData{Expected: expected, Actual: actual}); err != nil {
		return "", "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return systemPrompt, buf.String(), nil
}

// parseVerdict extracts {"match": bool} from a model reply. ok is false when the
// reply is not a JSON object with a boolean "match" field.
func parseVerdict(content string) (match bool, ok bool) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return false, false
	}
	raw, found := obj["match"]
	if !found {
		return false, false
	}
	if err := json.Unmarshal(raw, &match); err != nil {
		return false, false
	}
	return match, true
}
