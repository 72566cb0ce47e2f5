package ranking

import (
	"sort"
	"strings"
	"time"

	"github.com/medfolio/backend/internal/search/analyzer"
	"github.com/medfolio/backend/internal/storage/models"
)

// Field weights: where a term hits matters more than how often.
const (
	weightDisplayName    = 10.0
	weightFilename       = 8.0
	weightCategory       = 6.0
	weightSearchSummary  = 5.0
	weightNotes          = 4.0
	weightStructuredData = 2.0
)

type weightedField struct {
	text   string
	weight float64
}

type scoredDoc struct {
	doc   models.DocumentRecord
	score float64
}

// Rank reorders documents by relevance to the keyword groups. The score is
// an internal sort key only and is never exposed. With no keywords the list
// is simply sorted newest-first.
func Rank(docs []models.DocumentRecord, keywords []analyzer.KeywordGroup, now time.Time) []models.DocumentRecord {
	out := make([]models.DocumentRecord, len(docs))
	copy(out, docs)

	if len(keywords) == 0 {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UploadDate.After(out[j].UploadDate)
		})
		return out
	}

	scored := make([]scoredDoc, len(out))
	for i, doc := range out {
		scored[i] = scoredDoc{doc: doc, score: Score(doc, keywords, now)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].doc.UploadDate.After(scored[j].doc.UploadDate)
	})

	for i, s := range scored {
		out[i] = s.doc
	}
	return out
}

// Score computes the relevance of one document: weighted term frequency per
// keyword group (max across a group's synonyms, so synonymous hits are not
// double-counted), scaled by recency and completeness multipliers.
func Score(doc models.DocumentRecord, keywords []analyzer.KeywordGroup, now time.Time) float64 {
	fields := weightedFields(doc)

	var fieldScore float64
	for _, group := range keywords {
		var best float64
		for _, term := range group {
			var termScore float64
			for _, f := range fields {
				termScore += float64(termFrequency(f.text, term)) * f.weight
			}
			if termScore > best {
				best = termScore
			}
		}
		fieldScore += best
	}

	return fieldScore * recencyMultiplier(doc.UploadDate, now) * statusMultiplier(doc.Status)
}

// SearchableText returns the text the keyword filter and ranker match
// against, preferring the pre-computed flattened form over re-serializing
// the structured payload.
func SearchableText(doc models.DocumentRecord) string {
	structured := doc.Analysis.SearchableText
	if structured == "" {
		structured = models.FlattenStructuredData(doc.Analysis.StructuredData)
	}
	parts := []string{
		doc.DisplayName,
		doc.Filename,
		doc.Category,
		doc.Analysis.SearchSummary,
		doc.Notes,
		structured,
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func weightedFields(doc models.DocumentRecord) []weightedField {
	structured := doc.Analysis.SearchableText
	if structured == "" {
		structured = models.FlattenStructuredData(doc.Analysis.StructuredData)
	}
	return []weightedField{
		{text: strings.ToLower(doc.DisplayName), weight: weightDisplayName},
		{text: strings.ToLower(doc.Filename), weight: weightFilename},
		{text: strings.ToLower(doc.Category), weight: weightCategory},
		{text: strings.ToLower(doc.Analysis.SearchSummary), weight: weightSearchSummary},
		{text: strings.ToLower(doc.Notes), weight: weightNotes},
		{text: strings.ToLower(structured), weight: weightStructuredData},
	}
}

// termFrequency counts non-overlapping occurrences; the scan position
// advances by the term length after each hit.
func termFrequency(text, term string) int {
	if term == "" || text == "" {
		return 0
	}
	term = strings.ToLower(term)

	count := 0
	pos := 0
	for {
		idx := strings.Index(text[pos:], term)
		if idx < 0 {
			return count
		}
		count++
		pos += idx + len(term)
	}
}

func recencyMultiplier(uploadDate, now time.Time) float64 {
	age := now.Sub(uploadDate)
	switch {
	case age <= 30*24*time.Hour:
		return 1.20
	case age <= 90*24*time.Hour:
		return 1.10
	case age <= 365*24*time.Hour:
		return 1.05
	default:
		return 1.00
	}
}

func statusMultiplier(status string) float64 {
	if status == models.StatusComplete {
		return 1.10
	}
	return 1.00
}
