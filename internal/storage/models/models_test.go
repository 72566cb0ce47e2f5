package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medfolio/backend/internal/storage/models"
)

func TestValidate(t *testing.T) {
	doc := models.DocumentRecord{ID: "doc-1", OwnerID: "user-1", DisplayName: "Lab Panel"}
	require.NoError(t, doc.Validate())

	missing := models.DocumentRecord{OwnerID: "user-1", DisplayName: "Lab Panel"}
	require.ErrorIs(t, missing.Validate(), models.ErrMissingID)

	noOwner := models.DocumentRecord{ID: "doc-1", DisplayName: "Lab Panel"}
	require.ErrorIs(t, noOwner.Validate(), models.ErrMissingOwnerID)

	noName := models.DocumentRecord{ID: "doc-1", OwnerID: "user-1", DisplayName: "  "}
	require.ErrorIs(t, noName.Validate(), models.ErrMissingName)
}

func TestApplyDefaults(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	doc := models.DocumentRecord{
		ID:          "doc-1",
		OwnerID:     "user-1",
		DisplayName: "Lab Panel",
		Analysis: models.DocumentAnalysis{
			StructuredData: map[string]interface{}{"ldl": "130"},
		},
	}

	doc.ApplyDefaults(now)
	require.Equal(t, models.StatusProcessing, doc.Status)
	require.Equal(t, "Other", doc.Category)
	require.Equal(t, now, doc.UploadDate)
	require.Contains(t, doc.Analysis.SearchableText, "ldl 130")
}

func TestApplyPatchDoesNotMutateOriginal(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	original := models.DocumentRecord{
		ID:          "doc-1",
		OwnerID:     "user-1",
		DisplayName: "Lab Panel",
		Notes:       "fasting",
	}

	name := "Annual Lab Panel"
	patched := models.ApplyPatch(original, models.DocumentPatch{DisplayName: &name}, now)

	require.Equal(t, "Lab Panel", original.DisplayName)
	require.Equal(t, "Annual Lab Panel", patched.DisplayName)
	require.Equal(t, "fasting", patched.Notes)
	require.Equal(t, now, patched.UpdatedAt)
}

func TestApplyPatchRederivesSearchableText(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	original := models.DocumentRecord{
		ID:          "doc-1",
		OwnerID:     "user-1",
		DisplayName: "Lab Panel",
		Analysis: models.DocumentAnalysis{
			SearchableText: "ldl 160",
			StructuredData: map[string]interface{}{"ldl": "160"},
		},
	}

	patched := models.ApplyPatch(original, models.DocumentPatch{
		StructuredData: map[string]interface{}{"ldl": "130", "hdl": "55"},
	}, now)

	require.Contains(t, patched.Analysis.SearchableText, "ldl 130")
	require.Contains(t, patched.Analysis.SearchableText, "hdl 55")
	require.Equal(t, "ldl 160", original.Analysis.SearchableText)
}

func TestFlattenStructuredDataStableOrder(t *testing.T) {
	data := map[string]interface{}{"zinc": "normal", "alt": 24.0}
	first := models.FlattenStructuredData(data)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, models.FlattenStructuredData(data))
	}
	require.Equal(t, "alt 24 zinc normal", first)
}
