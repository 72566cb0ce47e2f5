package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medfolio/backend/internal/metrics"
	"github.com/medfolio/backend/internal/search/analyzer"
	"github.com/medfolio/backend/internal/search/cache"
	"github.com/medfolio/backend/internal/search/fuzzy"
	"github.com/medfolio/backend/internal/search/ranking"
	"github.com/medfolio/backend/internal/storage/models"
	"github.com/medfolio/backend/pkg/logger"
	"github.com/medfolio/backend/pkg/utils"
)

type FetchOptions struct {
	Category string
	Limit    int
}

// DocumentStore returns a user's documents ordered newest-first, optionally
// pre-filtered by category. The engine never writes through it.
type DocumentStore interface {
	FetchDocuments(ctx context.Context, ownerID string, opts FetchOptions) ([]models.DocumentRecord, error)
}

type GeneratedAnswer struct {
	Text             string   `json:"text"`
	CitedDocumentIDs []string `json:"cited_document_ids"`
}

// Generator synthesizes an answer or summary over the filtered documents.
// Only reached for summary/answer intents; failures are recovered by the
// engine with a ranked document fallback.
type Generator interface {
	Generate(ctx context.Context, query string, docs []models.DocumentRecord) (*GeneratedAnswer, error)
}

type Request struct {
	Query  string
	UserID string
}

type Response struct {
	Type           string                  `json:"type"`
	Query          string                  `json:"query"`
	Results        []models.DocumentRecord `json:"results,omitempty"`
	Count          int                     `json:"count"`
	Answer         *GeneratedAnswer        `json:"answer,omitempty"`
	Fallback       bool                    `json:"fallback,omitempty"`
	FallbackReason string                  `json:"fallback_reason,omitempty"`
}

type Config struct {
	MinExactMatches int
	MaxResults      int
	AISliceLimit    int
}

// Engine composes the search pipeline: classify, fetch, filter, fuzzy
// fallback, rank, cache. Stateless between requests except for the injected
// cache.
type Engine struct {
	store     DocumentStore
	cache     cache.ResultCache
	generator Generator

	minExactMatches int
	maxResults      int
	aiSliceLimit    int
}

func NewEngine(store DocumentStore, resultCache cache.ResultCache, generator Generator, cfg Config) *Engine {
	if cfg.MinExactMatches <= 0 {
		cfg.MinExactMatches = 5
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.AISliceLimit <= 0 {
		cfg.AISliceLimit = 30
	}
	return &Engine{
		store:           store,
		cache:           resultCache,
		generator:       generator,
		minExactMatches: cfg.MinExactMatches,
		maxResults:      cfg.MaxResults,
		aiSliceLimit:    cfg.AISliceLimit,
	}
}

func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()
	searchID := uuid.New().String()

	analysis := analyzer.AnalyzeAt(req.Query, startTime)

	logger.Info("Processing search",
		zap.String("search_id", searchID),
		zap.String("query_hash", utils.HashString(req.Query)),
		zap.String("intent", string(analysis.Intent)),
		zap.String("category", analysis.Category),
		zap.Int("keyword_groups", len(analysis.Keywords)),
	)

	var resp *Response
	var err error
	if analysis.Intent == analyzer.IntentDocuments {
		resp, err = e.searchDocuments(ctx, req, analysis, startTime)
	} else {
		resp, err = e.searchWithGenerator(ctx, req, analysis, startTime)
	}
	if err != nil {
		metrics.SearchTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.SearchTotal.WithLabelValues("success").Inc()
	metrics.SearchDuration.WithLabelValues(string(analysis.Intent)).Observe(time.Since(startTime).Seconds())

	logger.Info("Search completed",
		zap.String("search_id", searchID),
		zap.String("type", resp.Type),
		zap.Int("count", resp.Count),
		zap.Bool("fallback", resp.Fallback),
		zap.Duration("latency", time.Since(startTime)),
	)

	return resp, nil
}

func (e *Engine) searchDocuments(ctx context.Context, req Request, analysis analyzer.Analysis, now time.Time) (*Response, error) {
	filters := cache.Filters{Category: analysis.Category, TimeRange: analysis.TimeRange}

	if cached, ok := e.cache.Get(ctx, req.Query, req.UserID, filters); ok {
		metrics.CacheHits.Inc()
		return &Response{
			Type:    string(analyzer.IntentDocuments),
			Query:   req.Query,
			Results: cached,
			Count:   len(cached),
		}, nil
	}
	metrics.CacheMisses.Inc()

	docs, err := e.store.FetchDocuments(ctx, req.UserID, FetchOptions{Category: analysis.Category})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}

	timeFiltered := filterByTime(docs, analysis.TimeRange)
	exact := filterByKeywords(timeFiltered, analysis.Keywords)

	if len(analysis.Keywords) > 0 && len(exact) < e.minExactMatches {
		metrics.FuzzyFallbackTotal.Inc()
		exact = fuzzy.Augment(exact, timeFiltered, analysis.Keywords, e.maxResults)
	}

	// The cap applies only to the fuzzy-augmented combined list; exact
	// matches and unfocused listings are returned in full.
	ranked := ranking.Rank(exact, analysis.Keywords, now)

	e.cache.Set(ctx, req.Query, req.UserID, filters, ranked)

	return &Response{
		Type:    string(analyzer.IntentDocuments),
		Query:   req.Query,
		Results: ranked,
		Count:   len(ranked),
	}, nil
}

func (e *Engine) searchWithGenerator(ctx context.Context, req Request, analysis analyzer.Analysis, now time.Time) (*Response, error) {
	docs, err := e.store.FetchDocuments(ctx, req.UserID, FetchOptions{
		Category: analysis.Category,
		Limit:    e.aiSliceLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}

	candidates := filterByTime(docs, analysis.TimeRange)

	// An identified category is treated as sufficient narrowing; stacking
	// the keyword filter on top risks false negatives on phrasing
	// mismatches.
	if analysis.Category == "" {
		candidates = filterByKeywords(candidates, analysis.Keywords)
	}

	answer, err := e.generator.Generate(ctx, req.Query, candidates)
	if err != nil {
		logger.Warn("Answer generation failed, falling back to ranked documents", zap.Error(err))
		metrics.GeneratorFallbackTotal.Inc()

		ranked := ranking.Rank(candidates, analysis.Keywords, now)
		return &Response{
			Type:           string(analyzer.IntentDocuments),
			Query:          req.Query,
			Results:        ranked,
			Count:          len(ranked),
			Fallback:       true,
			FallbackReason: "answer generation unavailable",
		}, nil
	}

	return &Response{
		Type:   string(analysis.Intent),
		Query:  req.Query,
		Answer: answer,
	}, nil
}

// OnDocumentMutated is the engine's only mutation-facing entry point: the
// persistence layer calls it after every successful create, update or
// delete, and the owner's cache namespace is evicted synchronously.
func (e *Engine) OnDocumentMutated(ctx context.Context, ownerID string) {
	e.cache.InvalidateUser(ctx, ownerID)
}

func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

func filterByTime(docs []models.DocumentRecord, tr *analyzer.TimeRange) []models.DocumentRecord {
	if tr == nil {
		return docs
	}
	filtered := make([]models.DocumentRecord, 0, len(docs))
	for _, doc := range docs {
		if tr.Matches(doc.UploadDate) {
			filtered = append(filtered, doc)
		}
	}
	return filtered
}

// filterByKeywords keeps documents where every keyword group has at least
// one term present in the document's searchable text.
func filterByKeywords(docs []models.DocumentRecord, keywords []analyzer.KeywordGroup) []models.DocumentRecord {
	if len(keywords) == 0 {
		return docs
	}
	filtered := make([]models.DocumentRecord, 0, len(docs))
	for _, doc := range docs {
		text := ranking.SearchableText(doc)
		matchesAll := true
		for _, group := range keywords {
			groupHit := false
			for _, term := range group {
				if strings.Contains(text, strings.ToLower(term)) {
					groupHit = true
					break
				}
			}
			if !groupHit {
				matchesAll = false
				break
			}
		}
		if matchesAll {
			filtered = append(filtered, doc)
		}
	}
	return filtered
}
