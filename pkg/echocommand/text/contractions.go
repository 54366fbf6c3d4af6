package text

import (
	"regexp"
	"sort"
	"strings"
)

// contractions maps lowercase contracted forms to their expansion. Every key
// contains an apostrophe, so normalized output (which has none) never matches
// again.
var contractions = map[string]string{
	"ain't":     "are not",
	"aren't":    "are not",
	"can't":     "cannot",
	"can't've":  "cannot have",
	"could've":  "could have",
	"couldn't":  "could not",
	"didn't":    "did not",
	"doesn't":   "does not",
	"don't":     "do not",
	"hadn't":    "had not",
	"hasn't":    "has not",
	"haven't":   "have not",
	"he'd":      "he would",
	"he'll":     "he will",
	"he's":      "he is",
	"how'd":     "how did",
	"how'll":    "how will",
	"how's":     "how is",
	"i'd":       "i would",
	"i'll":      "i will",
	"i'm":       "i am",
	"i've":      "i have",
	"isn't":     "is not",
	"it'd":      "it would",
	"it'll":     "it will",
	"it's":      "it is",
	"let's":     "let us",
	"ma'am":     "madam",
	"mightn't":  "might not",
	"might've":  "might have",
	"mustn't":   "must not",
	"must've":   "must have",
	"needn't":   "need not",
	"o'clock":   "of the clock",
	"shan't":    "shall not",
	"she'd":     "she would",
	"she'll":    "she will",
	"she's":     "she is",
	"should've": "should have",
	"shouldn't": "should not",
	"that'd":    "that would",
	"that'll":   "that will",
	"that's":    "that is",
	"there'd":   "there would",
	"there'll":  "there will",
	"there's":   "there is",
	"they'd":    "they would",
	"they'll":   "they will",
	"they're":   "they are",
	"they've":   "they have",
	"wasn't":    "was not",
	"we'd":      "we would",
	"we'll":     "we will",
	"we're":     "we are",
	"we've":     "we have",
	"weren't":   "were not",
	"what'll":   "what will",
	"what're":   "what are",
	"what's":    "what is",
	"what've":   "what have",
	"when's":    "when is",
	"where'd":   "where did",
	"where's":   "where is",
	"where've":  "where have",
	"who'd":     "who would",
	"who'll":    "who will",
	"who're":    "who are",
	"who's":     "who is",
	"who've":    "who have",
	"why's":     "why is",
	"won't":     "will not",
	"would've":  "would have",
	"wouldn't":  "would not",
	"y'all":     "you all",
	"you'd":     "you would",
	"you'll":    "you will",
	"you're":    "you are",
	"you've":    "you have",
}

var contractionPattern = buildContractionPattern()

// buildContractionPattern compiles one case-insensitive alternation, longest
// keys first so "can't've" wins over "can't".
func buildContractionPattern() *regexp.Regexp {
	keys := make([]string, 0, len(contractions))
	for k := range contractions {
		keys = append(keys, regexp.QuoteMeta(k))
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(keys, "|") + `)\b`)
}

// ExpandContractions replaces known contractions with their full form. Text
// that is not a known contraction is returned untouched.
func ExpandContractions(s string) string {
	return contractionPattern.ReplaceAllStringFunc(s, func(m string) string {
		if full, ok := contractions[strings.ToLower(m)]; ok {
			return full
		}
		return m
	})
}
