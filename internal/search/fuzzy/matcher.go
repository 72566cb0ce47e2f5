package fuzzy

import (
	"sort"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/medfolio/backend/internal/search/analyzer"
	"github.com/medfolio/backend/internal/storage/models"
)

const (
	// Threshold is the normalized edit-distance cutoff: 0 is exact,
	// 1 matches anything.
	Threshold = 0.3

	minMatchLength = 2
)

// fuzzyFields are searched in weight order; a hit in a heavier field
// outranks an equal-distance hit in a lighter one.
var fuzzyFields = []struct {
	extract func(models.DocumentRecord) string
	weight  float64
}{
	{func(d models.DocumentRecord) string { return d.DisplayName }, 0.4},
	{func(d models.DocumentRecord) string { return d.Filename }, 0.3},
	{func(d models.DocumentRecord) string { return d.Category }, 0.2},
	{func(d models.DocumentRecord) string { return d.Analysis.SearchSummary }, 0.2},
	{func(d models.DocumentRecord) string { return d.Notes }, 0.1},
}

type candidate struct {
	doc   models.DocumentRecord
	score float64
}

// Augment recovers near-miss documents from the candidate pool when exact
// keyword filtering came up sparse. It appends approximate matches not
// already present in exact (by ID) until the combined list reaches limit,
// and returns the list unranked.
func Augment(exact, pool []models.DocumentRecord, keywords []analyzer.KeywordGroup, limit int) []models.DocumentRecord {
	query := representativeQuery(keywords)
	if query == "" || len(pool) == 0 {
		return exact
	}

	present := make(map[string]bool, len(exact))
	for _, doc := range exact {
		present[doc.ID] = true
	}

	var candidates []candidate
	for _, doc := range pool {
		if present[doc.ID] {
			continue
		}
		if score, ok := matchScore(doc, query); ok {
			candidates = append(candidates, candidate{doc: doc, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})

	combined := exact
	for _, c := range candidates {
		if len(combined) >= limit {
			break
		}
		combined = append(combined, c.doc)
	}
	return combined
}

// representativeQuery joins the first term of every keyword group: one
// representative per group, not the full synonym expansion.
func representativeQuery(keywords []analyzer.KeywordGroup) string {
	terms := make([]string, 0, len(keywords))
	for _, group := range keywords {
		if len(group) > 0 {
			terms = append(terms, group[0])
		}
	}
	return strings.Join(terms, " ")
}

// matchScore returns the best weighted distance across the document's
// fields and whether any field cleared the threshold.
func matchScore(doc models.DocumentRecord, query string) (float64, bool) {
	best := 1.0
	matched := false
	for _, f := range fuzzyFields {
		dist := fieldDistance(f.extract(doc), query)
		if dist > Threshold {
			continue
		}
		matched = true
		// Heavier fields dampen the distance so they win ties.
		weighted := dist * (1.0 - f.weight)
		if weighted < best {
			best = weighted
		}
	}
	return best, matched
}

// fieldDistance is the minimum normalized edit distance between the query
// and any same-word-count window of the field, location-agnostic.
func fieldDistance(text, query string) float64 {
	text = strings.ToLower(strings.TrimSpace(text))
	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < minMatchLength || text == "" {
		return 1.0
	}
	if strings.Contains(text, query) {
		return 0.0
	}

	words := strings.Fields(text)
	span := len(strings.Fields(query))
	if span == 0 || span > len(words) {
		return normalizedDistance(text, query)
	}

	best := 1.0
	for i := 0; i+span <= len(words); i++ {
		window := strings.Join(words[i:i+span], " ")
		if d := normalizedDistance(window, query); d < best {
			best = d
		}
	}
	return best
}

func normalizedDistance(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0.0
	}
	return float64(smetrics.WagnerFischer(a, b, 1, 1, 1)) / float64(longest)
}
