package search_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medfolio/backend/internal/search"
	"github.com/medfolio/backend/internal/search/cache"
	"github.com/medfolio/backend/internal/storage/models"
)

type fakeStore struct {
	docs       []models.DocumentRecord
	fetchCount int
	err        error
}

func (s *fakeStore) FetchDocuments(_ context.Context, ownerID string, opts search.FetchOptions) ([]models.DocumentRecord, error) {
	s.fetchCount++
	if s.err != nil {
		return nil, s.err
	}

	var out []models.DocumentRecord
	for _, doc := range s.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		if opts.Category != "" && doc.Category != opts.Category {
			continue
		}
		out = append(out, doc)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

type fakeGenerator struct {
	answer   *search.GeneratedAnswer
	err      error
	lastDocs []models.DocumentRecord
	calls    int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, docs []models.DocumentRecord) (*search.GeneratedAnswer, error) {
	g.calls++
	g.lastDocs = docs
	if g.err != nil {
		return nil, g.err
	}
	return g.answer, nil
}

func labDoc(id string, uploadDate time.Time) models.DocumentRecord {
	return models.DocumentRecord{
		ID:          id,
		OwnerID:     "user-1",
		DisplayName: "Lab Panel " + id,
		Category:    "Lab Results",
		Status:      models.StatusComplete,
		UploadDate:  uploadDate,
	}
}

func newEngine(store *fakeStore, generator *fakeGenerator) *search.Engine {
	return search.NewEngine(store, cache.NewMemory(100, time.Minute), generator, search.Config{})
}

func TestSearchYearAndCategoryFilter(t *testing.T) {
	store := &fakeStore{docs: []models.DocumentRecord{
		labDoc("lab-2023", time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)),
		labDoc("lab-2022", time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)),
	}}
	engine := newEngine(store, &fakeGenerator{})

	resp, err := engine.Search(context.Background(), search.Request{Query: "2023 labs", UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, "documents", resp.Type)
	require.Equal(t, 1, resp.Count)
	require.Equal(t, "lab-2023", resp.Results[0].ID)
}

func TestSearchSummaryIntentWithCategory(t *testing.T) {
	prescription := models.DocumentRecord{
		ID:          "rx-1",
		OwnerID:     "user-1",
		DisplayName: "Metformin Prescription",
		Category:    "Prescriptions",
		Status:      models.StatusComplete,
		UploadDate:  time.Now().AddDate(0, 0, -10),
	}
	lab := labDoc("lab-1", time.Now().AddDate(0, 0, -5))

	store := &fakeStore{docs: []models.DocumentRecord{prescription, lab}}
	generator := &fakeGenerator{answer: &search.GeneratedAnswer{Text: "You have one active prescription."}}
	engine := newEngine(store, generator)

	resp, err := engine.Search(context.Background(), search.Request{Query: "show all prescriptions", UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, "summary", resp.Type)
	require.NotNil(t, resp.Answer)
	require.False(t, resp.Fallback)

	// Category pre-filtering means only the prescription reaches the
	// generator.
	require.Len(t, generator.lastDocs, 1)
	require.Equal(t, "rx-1", generator.lastDocs[0].ID)
}

func TestSearchAnswerIntentGeneratorFallback(t *testing.T) {
	store := &fakeStore{docs: []models.DocumentRecord{
		labDoc("lab-1", time.Now().AddDate(0, 0, -5)),
	}}
	generator := &fakeGenerator{err: errors.New("provider unavailable")}
	engine := newEngine(store, generator)

	resp, err := engine.Search(context.Background(), search.Request{Query: "what was my cholesterol?", UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, "documents", resp.Type)
	require.True(t, resp.Fallback)
	require.NotEmpty(t, resp.FallbackReason)
	require.Nil(t, resp.Answer)
}

func TestSearchCacheHitSkipsStore(t *testing.T) {
	store := &fakeStore{docs: []models.DocumentRecord{
		labDoc("lab-1", time.Now().AddDate(0, 0, -5)),
	}}
	engine := newEngine(store, &fakeGenerator{})
	req := search.Request{Query: "2023 labs", UserID: "user-1"}

	_, err := engine.Search(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, store.fetchCount)

	_, err = engine.Search(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, store.fetchCount)
}

func TestSearchInvalidationForcesRecompute(t *testing.T) {
	store := &fakeStore{docs: []models.DocumentRecord{
		labDoc("lab-1", time.Now().AddDate(0, 0, -5)),
	}}
	engine := newEngine(store, &fakeGenerator{})
	req := search.Request{Query: "2023 labs", UserID: "user-1"}

	_, err := engine.Search(context.Background(), req)
	require.NoError(t, err)

	engine.OnDocumentMutated(context.Background(), "user-1")

	_, err = engine.Search(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, store.fetchCount)
}

func TestSearchEmptyQueryListsAllByDate(t *testing.T) {
	newer := labDoc("lab-new", time.Now().AddDate(0, 0, -1))
	older := labDoc("lab-old", time.Now().AddDate(0, -6, 0))
	store := &fakeStore{docs: []models.DocumentRecord{older, newer}}
	engine := newEngine(store, &fakeGenerator{})

	resp, err := engine.Search(context.Background(), search.Request{Query: "", UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, "documents", resp.Type)
	require.Equal(t, 2, resp.Count)
	require.Equal(t, "lab-new", resp.Results[0].ID)
}

func TestSearchEmptyQueryReturnsFullListing(t *testing.T) {
	var docs []models.DocumentRecord
	for i := 0; i < 25; i++ {
		docs = append(docs, labDoc(fmt.Sprintf("lab-%02d", i), time.Now().AddDate(0, 0, -i)))
	}
	store := &fakeStore{docs: docs}
	engine := newEngine(store, &fakeGenerator{})

	resp, err := engine.Search(context.Background(), search.Request{Query: "", UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, 25, resp.Count)
	require.Len(t, resp.Results, 25)
}

func TestSearchExactMatchesNotTruncated(t *testing.T) {
	var docs []models.DocumentRecord
	for i := 0; i < 30; i++ {
		d := labDoc(fmt.Sprintf("thyroid-%02d", i), time.Now().AddDate(0, 0, -i))
		d.DisplayName = fmt.Sprintf("Thyroid Panel %02d", i)
		docs = append(docs, d)
	}
	store := &fakeStore{docs: docs}
	engine := newEngine(store, &fakeGenerator{})

	resp, err := engine.Search(context.Background(), search.Request{Query: "thyroid", UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, 30, resp.Count)
}

func TestSearchFuzzyAugmentsSparseMatches(t *testing.T) {
	exact := models.DocumentRecord{
		ID:          "exact-1",
		OwnerID:     "user-1",
		DisplayName: "Cholesterol Panel",
		Category:    "Lab Results",
		Status:      models.StatusComplete,
		UploadDate:  time.Now().AddDate(0, 0, -5),
	}
	typo := models.DocumentRecord{
		ID:          "typo-1",
		OwnerID:     "user-1",
		DisplayName: "Cholestrol Report",
		Category:    "Lab Results",
		Status:      models.StatusComplete,
		UploadDate:  time.Now().AddDate(0, 0, -10),
	}

	store := &fakeStore{docs: []models.DocumentRecord{exact, typo}}
	engine := newEngine(store, &fakeGenerator{})

	resp, err := engine.Search(context.Background(), search.Request{Query: "cholesterol", UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Count)
	require.Equal(t, "exact-1", resp.Results[0].ID)
}

func TestSearchStoreErrorPropagates(t *testing.T) {
	store := &fakeStore{err: errors.New("store unavailable")}
	engine := newEngine(store, &fakeGenerator{})

	_, err := engine.Search(context.Background(), search.Request{Query: "labs", UserID: "user-1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "store unavailable")
}

func TestSearchAnswerIntentWithoutCategoryKeepsKeywordFilter(t *testing.T) {
	thyroid := models.DocumentRecord{
		ID:          "thyroid-1",
		OwnerID:     "user-1",
		DisplayName: "Thyroid Panel",
		Category:    "Lab Results",
		Status:      models.StatusComplete,
		UploadDate:  time.Now().AddDate(0, 0, -5),
	}
	other := models.DocumentRecord{
		ID:          "other-1",
		OwnerID:     "user-1",
		DisplayName: "Visit Invoice",
		Category:    "Other",
		Status:      models.StatusComplete,
		UploadDate:  time.Now().AddDate(0, 0, -2),
	}

	store := &fakeStore{docs: []models.DocumentRecord{thyroid, other}}
	generator := &fakeGenerator{answer: &search.GeneratedAnswer{Text: "TSH was normal."}}
	engine := newEngine(store, generator)

	resp, err := engine.Search(context.Background(), search.Request{Query: "how is my thyroid", UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, "answer", resp.Type)
	require.Len(t, generator.lastDocs, 1)
	require.Equal(t, "thyroid-1", generator.lastDocs[0].ID)
}
