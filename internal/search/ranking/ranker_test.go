package ranking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medfolio/backend/internal/search/analyzer"
	"github.com/medfolio/backend/internal/search/ranking"
	"github.com/medfolio/backend/internal/storage/models"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func doc(id, displayName string, uploadDate time.Time) models.DocumentRecord {
	return models.DocumentRecord{
		ID:          id,
		OwnerID:     "user-1",
		DisplayName: displayName,
		Status:      models.StatusComplete,
		UploadDate:  uploadDate,
	}
}

func ids(docs []models.DocumentRecord) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestRankEmptyKeywordsSortsByDate(t *testing.T) {
	docs := []models.DocumentRecord{
		doc("old", "Old Report", now.AddDate(-2, 0, 0)),
		doc("new", "New Report", now.AddDate(0, 0, -1)),
		doc("mid", "Mid Report", now.AddDate(0, -6, 0)),
	}

	ranked := ranking.Rank(docs, nil, now)
	require.Equal(t, []string{"new", "mid", "old"}, ids(ranked))
}

func TestRankIdempotent(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"cholesterol", "lipid"}}
	docs := []models.DocumentRecord{
		doc("a", "Cholesterol Panel", now.AddDate(0, 0, -10)),
		doc("b", "Lipid Panel", now.AddDate(0, 0, -20)),
		doc("c", "Visit Summary", now.AddDate(0, 0, -5)),
	}

	once := ranking.Rank(docs, keywords, now)
	twice := ranking.Rank(once, keywords, now)
	require.Equal(t, ids(once), ids(twice))
}

func TestRankDisplayNameOutweighsStructuredData(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"blood", "cbc", "hemogram"}}
	uploadDate := now.AddDate(0, 0, -10)

	nameHit := doc("name-hit", "Complete Blood Count", uploadDate)
	structuredHit := doc("structured-hit", "Annual Panel", uploadDate)
	structuredHit.Analysis.SearchableText = "cbc 12.3 hemogram normal"

	ranked := ranking.Rank([]models.DocumentRecord{structuredHit, nameHit}, keywords, now)
	require.Equal(t, "name-hit", ranked[0].ID)
}

func TestRankSynonymHitsNotDoubleCounted(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"cholesterol", "lipid"}}
	uploadDate := now.AddDate(0, 0, -10)

	both := doc("both", "Cholesterol Lipid Panel", uploadDate)
	single := doc("single", "Cholesterol Cholesterol Panel", uploadDate)

	// "single" has two hits of one synonym, "both" one hit of each: the
	// group contributes the max across synonyms, so "single" wins.
	ranked := ranking.Rank([]models.DocumentRecord{both, single}, keywords, now)
	require.Equal(t, "single", ranked[0].ID)
}

func TestRankRecencyBoost(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"thyroid"}}

	fresh := doc("fresh", "Thyroid Panel", now.AddDate(0, 0, -5))
	stale := doc("stale", "Thyroid Panel", now.AddDate(-2, 0, 0))

	ranked := ranking.Rank([]models.DocumentRecord{stale, fresh}, keywords, now)
	require.Equal(t, "fresh", ranked[0].ID)
}

func TestRankStatusBoost(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"thyroid"}}
	uploadDate := now.AddDate(0, 0, -5)

	complete := doc("complete", "Thyroid Panel", uploadDate)
	pending := doc("pending", "Thyroid Panel", uploadDate)
	pending.Status = models.StatusProcessing

	ranked := ranking.Rank([]models.DocumentRecord{pending, complete}, keywords, now)
	require.Equal(t, "complete", ranked[0].ID)
}

func TestRankTiesBrokenByUploadDate(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"thyroid"}}

	older := doc("older", "Thyroid Panel", now.AddDate(0, 0, -3))
	newer := doc("newer", "Thyroid Panel", now.AddDate(0, 0, -1))

	ranked := ranking.Rank([]models.DocumentRecord{older, newer}, keywords, now)
	require.Equal(t, []string{"newer", "older"}, ids(ranked))
}

func TestRankDoesNotMutateInput(t *testing.T) {
	docs := []models.DocumentRecord{
		doc("a", "Old", now.AddDate(-1, 0, 0)),
		doc("b", "New", now.AddDate(0, 0, -1)),
	}

	ranking.Rank(docs, nil, now)
	require.Equal(t, []string{"a", "b"}, ids(docs))
}

func TestSearchableTextPrefersPrecomputed(t *testing.T) {
	d := doc("a", "Report", now)
	d.Analysis.StructuredData = map[string]interface{}{"ldl": "130"}
	d.Analysis.SearchableText = "precomputed text"

	text := ranking.SearchableText(d)
	require.Contains(t, text, "precomputed text")
	require.NotContains(t, text, "ldl")
}

func TestScoreNonOverlappingTermFrequency(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"aa"}}
	d := doc("a", "aaaa", now)

	// "aa" occurs twice non-overlapping in "aaaa": 2 × 10 with a fresh
	// upload (×1.20) and complete status (×1.10).
	score := ranking.Score(d, keywords, now)
	require.InDelta(t, 2*10*1.20*1.10, score, 0.0001)
}
