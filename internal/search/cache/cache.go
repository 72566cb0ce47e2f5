package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/medfolio/backend/internal/search/analyzer"
	"github.com/medfolio/backend/internal/storage/models"
)

const (
	DefaultMaxEntries = 100
	DefaultTTL        = 5 * time.Minute
)

// Filters are the analysis outputs that change what a query returns, and so
// belong in the cache key.
type Filters struct {
	Category  string
	TimeRange *analyzer.TimeRange
}

type Stats struct {
	Size    int           `json:"size"`
	MaxSize int           `json:"max_size"`
	TTL     time.Duration `json:"ttl"`
}

// ResultCache stores final ranked result lists per user. Implementations
// must be safe for concurrent use; Get slides the entry's TTL.
type ResultCache interface {
	Get(ctx context.Context, query, userID string, filters Filters) ([]models.DocumentRecord, bool)
	Set(ctx context.Context, query, userID string, filters Filters, value []models.DocumentRecord)
	InvalidateUser(ctx context.Context, userID string)
	Stats() Stats
}

type filterKey struct {
	Category  interface{} `json:"category"`
	TimeRange interface{} `json:"time_range"`
}

// Key builds the cache key: userID + ":" + normalized query + ":" +
// canonical JSON of the filters. Absent filters encode as null so
// semantically identical requests collide.
func Key(query, userID string, filters Filters) string {
	fk := filterKey{}
	if filters.Category != "" {
		fk.Category = filters.Category
	}
	if filters.TimeRange != nil {
		fk.TimeRange = filters.TimeRange
	}
	encoded, _ := json.Marshal(fk)

	normalized := strings.ToLower(strings.TrimSpace(query))
	return userID + ":" + normalized + ":" + string(encoded)
}
