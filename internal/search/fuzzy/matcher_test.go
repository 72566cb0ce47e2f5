package fuzzy_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medfolio/backend/internal/search/analyzer"
	"github.com/medfolio/backend/internal/search/fuzzy"
	"github.com/medfolio/backend/internal/storage/models"
)

var uploadDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func doc(id, displayName string) models.DocumentRecord {
	return models.DocumentRecord{
		ID:          id,
		OwnerID:     "user-1",
		DisplayName: displayName,
		UploadDate:  uploadDate,
	}
}

func TestAugmentRecoversTypos(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"cholesterol", "lipid"}}
	exact := []models.DocumentRecord{doc("exact-1", "Cholesterol Panel")}
	pool := []models.DocumentRecord{
		doc("exact-1", "Cholesterol Panel"),
		doc("typo-1", "Cholestrol Report"),
		doc("unrelated", "Flu Vaccine Record"),
	}

	combined := fuzzy.Augment(exact, pool, keywords, 20)
	require.Len(t, combined, 2)
	require.Equal(t, "exact-1", combined[0].ID)
	require.Equal(t, "typo-1", combined[1].ID)
}

func TestAugmentCombinedCount(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"cholesterol"}}

	var exact []models.DocumentRecord
	var pool []models.DocumentRecord
	for i := 0; i < 3; i++ {
		d := doc(fmt.Sprintf("exact-%d", i), "Cholesterol Panel")
		exact = append(exact, d)
		pool = append(pool, d)
	}
	for i := 0; i < 4; i++ {
		pool = append(pool, doc(fmt.Sprintf("typo-%d", i), fmt.Sprintf("Cholestrol Report %d", i)))
	}
	pool = append(pool, doc("noise-1", "Flu Vaccine Record"))

	combined := fuzzy.Augment(exact, pool, keywords, 20)
	require.Len(t, combined, 7)
}

func TestAugmentCapsCombinedList(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"cholesterol"}}

	var pool []models.DocumentRecord
	for i := 0; i < 25; i++ {
		pool = append(pool, doc(fmt.Sprintf("typo-%d", i), "Cholestrol Report"))
	}

	combined := fuzzy.Augment(nil, pool, keywords, 20)
	require.Len(t, combined, 20)
}

func TestAugmentSkipsDocumentsAlreadyPresent(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"cholesterol"}}
	exact := []models.DocumentRecord{doc("doc-1", "Cholesterol Panel")}
	pool := []models.DocumentRecord{doc("doc-1", "Cholesterol Panel")}

	combined := fuzzy.Augment(exact, pool, keywords, 20)
	require.Len(t, combined, 1)
}

func TestAugmentEmptyPool(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"cholesterol"}}
	exact := []models.DocumentRecord{doc("doc-1", "Cholesterol Panel")}

	combined := fuzzy.Augment(exact, nil, keywords, 20)
	require.Equal(t, exact, combined)
}

func TestAugmentNoKeywords(t *testing.T) {
	exact := []models.DocumentRecord{doc("doc-1", "Cholesterol Panel")}
	pool := []models.DocumentRecord{doc("doc-2", "Cholestrol Report")}

	combined := fuzzy.Augment(exact, pool, nil, 20)
	require.Equal(t, exact, combined)
}

func TestAugmentUsesFirstTermPerGroup(t *testing.T) {
	keywords := []analyzer.KeywordGroup{
		{"blood", "cbc", "hemogram"},
		{"pressure"},
	}
	pool := []models.DocumentRecord{
		doc("bp-log", "Blood Pressure Log"),
		doc("noise", "Immunization History"),
	}

	combined := fuzzy.Augment(nil, pool, keywords, 20)
	require.Len(t, combined, 1)
	require.Equal(t, "bp-log", combined[0].ID)
}

func TestAugmentClosestMatchesFirst(t *testing.T) {
	keywords := []analyzer.KeywordGroup{{"cholesterol"}}
	pool := []models.DocumentRecord{
		doc("far", "Colestrol Panel"),
		doc("near", "Cholestrol Panel"),
	}

	combined := fuzzy.Augment(nil, pool, keywords, 20)
	require.Equal(t, "near", combined[0].ID)
	require.Equal(t, "far", combined[1].ID)
}
