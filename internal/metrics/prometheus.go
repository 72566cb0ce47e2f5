package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medfolio_search_duration_seconds",
			Help:    "Search processing duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"intent"},
	)

	SearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medfolio_search_total",
			Help: "Total number of searches processed",
		},
		[]string{"status"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medfolio_search_cache_hits_total",
			Help: "Total result cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medfolio_search_cache_misses_total",
			Help: "Total result cache misses",
		},
	)

	FuzzyFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medfolio_search_fuzzy_fallback_total",
			Help: "Searches where sparse exact matches triggered fuzzy augmentation",
		},
	)

	GeneratorFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medfolio_search_generator_fallback_total",
			Help: "AI-intent searches that fell back to ranked documents",
		},
	)

	DocumentMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medfolio_document_mutations_total",
			Help: "Document create/update/delete operations",
		},
		[]string{"operation"},
	)
)

func Init() {
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(FuzzyFallbackTotal)
	prometheus.MustRegister(GeneratorFallbackTotal)
	prometheus.MustRegister(DocumentMutations)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
