package prompt

import (
	"regexp"
	"strconv"
	"strings"

	"tracktalk/internal/models"
)

// numberWords maps spelled-out quantities ("give me five songs") to values.
var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"a couple": 2, "a few": 3, "a dozen": 12,
}

// moodKeywords are qualitative constraints passed through to the model verbatim.
var moodKeywords = []string{
	"happy", "sad", "energetic", "chill", "relaxed", "upbeat", "mellow",
	"romantic", "angry", "party", "dance", "workout", "study", "focus",
	"sleep", "driving", "running", "acoustic", "instrumental", "nostalgic",
	"summer", "winter", "rainy",
}

// exclusionSignals mark an utterance as referring to already-heard tracks.
var exclusionSignals = []string{
	"already heard", "already listened", "heard that", "heard those",
	"heard them", "listened to that", "know that one", "skip that",
}

var quantityPattern = regexp.MustCompile(`\b(\d{1,3})\b`)

// ParseRequest derives a [models.RecommendationRequest] from a user utterance.
//
// The quantity defaults to 1 when the utterance names none, and is clamped to
// [1, maxQuantity]. It never comes out zero or unbounded.
func ParseRequest(utterance string, maxQuantity int) models.RecommendationRequest {
	if maxQuantity <= 0 {
		maxQuantity = 10
	}

	req := models.RecommendationRequest{
		Utterance: strings.TrimSpace(utterance),
		Quantity:  1,
	}

	lower := strings.ToLower(req.Utterance)

	if q, ok := parseQuantity(lower); ok {
		req.Quantity = q
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}
	if req.Quantity > maxQuantity {
		req.Quantity = maxQuantity
	}

	for _, mood := range moodKeywords {
		if containsWord(lower, mood) {
			req.Hints = append(req.Hints, mood)
		}
	}

	return req
}

func parseQuantity(lower string) (int, bool) {
	if m := quantityPattern.FindString(lower); m != "" {
		if q, err := strconv.Atoi(m); err == nil && q > 0 {
			return q, true
		}
	}

	for word, q := range numberWords {
		if containsWord(lower, word) {
			return q, true
		}
	}

	return 0, false
}

// HasExclusionSignal reports whether the utterance tells the assistant the
// previous recommendations were already known.
func HasExclusionSignal(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, signal := range exclusionSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}

// containsWord matches whole words only, so "five" does not fire on "drive".
func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isLetter(s[start-1])
		afterOK := end == len(s) || !isLetter(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
