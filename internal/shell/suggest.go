package shell

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// suggestThreshold is the similarity ratio a name must exceed to be offered.
const suggestThreshold = 0.6

// Suggest returns the name most similar to input, compared character by
// character with a SequenceMatcher ratio. ok is false when no name scores
// above the threshold.
func Suggest(input string, names []string) (best string, ok bool) {
	a := strings.Split(input, "")
	score := 0.0
	for _, name := range names {
		r := difflib.NewMatcher(a, strings.Split(name, "")).Ratio()
		if r > score {
			best, score = name, r
		}
	}
	if score <= suggestThreshold {
		return "", false
	}
	return best, true
}
