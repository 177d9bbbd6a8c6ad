// package interpret parses free-text model replies into structured recommendation results.
package interpret

import (
	"fmt"
	"regexp"
	"strings"

	"tracktalk/internal/models"
	"tracktalk/internal/shared"
)

// entryPattern matches one list entry: an optional numbered/bulleted marker
// followed by the entry body.
var entryPattern = regexp.MustCompile(`^\s*(?:\d+[.)]|[-•*])\s*(.+)$`)

// bySplit matches "Title by Artist" with a lowercase "by" delimiter.
var bySplit = regexp.MustCompile(`^(.{2,}?)\s+by\s+(.+)$`)

// Interpret parses a model reply against its originating request.
//
// Entries that fail to parse, and entries naming an excluded track, are
// dropped and counted as shortfall. The result is flagged partial when fewer
// entries than requested survive; it is never padded. A reply with zero
// parseable entries returns [shared.ErrUnparseableResponse] so the caller can
// retry once with a stricter format instruction.
func Interpret(reply string, req models.RecommendationRequest) (*models.RecommendationResult, error) {
	entries := parseEntries(reply)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no list entries found", shared.ErrUnparseableResponse)
	}

	result := &models.RecommendationResult{Requested: req.Quantity}
	seen := make(map[string]bool)
	excludedHits := 0

	for _, e := range entries {
		key := e.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		// The prompt already lists exclusions; this is the backstop for a
		// model that recommends one anyway.
		if req.Excluded[key] {
			excludedHits++
			continue
		}

		result.Entries = append(result.Entries, e)
		if len(result.Entries) == req.Quantity {
			break
		}
	}

	if len(result.Entries) < req.Quantity {
		result.Partial = true
		result.Shortfall = req.Quantity - len(result.Entries)
		switch {
		case excludedHits > 0:
			result.Reason = fmt.Sprintf("%d suggestion(s) were already surfaced this session", excludedHits)
		default:
			result.Reason = "the model supplied fewer distinct suggestions than requested"
		}
	}

	return result, nil
}

// parseEntries extracts structured entries from numbered or bulleted lines.
func parseEntries(reply string) []models.RecommendationEntry {
	var entries []models.RecommendationEntry

	for _, line := range strings.Split(reply, "\n") {
		m := entryPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if entry, ok := parseEntry(m[1]); ok {
			entries = append(entries, entry)
		}
	}

	return entries
}

// parseEntry decomposes one list line into title, artist, and rationale.
//
// Preferred shape is "Title — Artist — reason"; "Title - Artist - reason" and
// "Title by Artist - reason" are accepted as fallbacks.
func parseEntry(body string) (models.RecommendationEntry, bool) {
	body = strings.TrimSpace(body)

	for _, delim := range []string{" — ", " – ", " - "} {
		parts := strings.Split(body, delim)
		if len(parts) >= 2 {
			entry := models.RecommendationEntry{
				Title:  clean(parts[0]),
				Artist: clean(parts[1]),
			}
			if len(parts) > 2 {
				entry.Rationale = strings.TrimSpace(strings.Join(parts[2:], delim))
			}
			if valid(entry) {
				return entry, true
			}
		}
	}

	if m := bySplit.FindStringSubmatch(body); m != nil {
		artist, rationale, _ := strings.Cut(m[2], " - ")
		entry := models.RecommendationEntry{
			Title:     clean(m[1]),
			Artist:    clean(artist),
			Rationale: strings.TrimSpace(rationale),
		}
		if valid(entry) {
			return entry, true
		}
	}

	return models.RecommendationEntry{}, false
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'“”‘’*`)
	return strings.TrimSpace(s)
}

func valid(e models.RecommendationEntry) bool {
	return len(e.Title) > 1 && len(e.Artist) > 1
}
