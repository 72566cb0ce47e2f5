package analyzer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kljensen/snowball/english"
)

type Intent string

const (
	IntentDocuments Intent = "documents"
	IntentSummary   Intent = "summary"
	IntentAnswer    Intent = "answer"
)

type TimeKind string

const (
	TimeAfter    TimeKind = "after"
	TimeYear     TimeKind = "year"
	TimeYearFrom TimeKind = "yearFrom"
)

// TimeRange restricts matching documents by upload date. After is set for
// the "after" kind, Year for the year kinds.
type TimeRange struct {
	Kind  TimeKind  `json:"kind"`
	After time.Time `json:"after,omitempty"`
	Year  int       `json:"year,omitempty"`
}

// Matches reports whether an upload date falls inside the range.
func (tr *TimeRange) Matches(t time.Time) bool {
	switch tr.Kind {
	case TimeAfter:
		return !t.Before(tr.After)
	case TimeYear:
		return t.Year() == tr.Year
	case TimeYearFrom:
		return t.Year() >= tr.Year
	default:
		return true
	}
}

// KeywordGroup is a set of interchangeable terms: the base term first, then
// dictionary synonyms, then stemmed variants. Groups are ANDed together by
// the filter; terms within a group are ORed.
type KeywordGroup []string

// Analysis is the parsed form of a raw query. Immutable once returned.
type Analysis struct {
	Intent     Intent         `json:"intent"`
	Category   string         `json:"category,omitempty"`
	Keywords   []KeywordGroup `json:"keywords"`
	TimeRange  *TimeRange     `json:"time_range,omitempty"`
	Confidence float64        `json:"confidence"`
}

var (
	yearPattern       = regexp.MustCompile(`\b(20[0-9]{2})\b`)
	lastMonthsPattern = regexp.MustCompile(`last (\d+) months?`)
)

// Analyze parses a raw query into intent, category, time range and expanded
// keyword groups. It performs no I/O.
func Analyze(query string) Analysis {
	return AnalyzeAt(query, time.Now())
}

// AnalyzeAt is Analyze with an explicit clock, so one request uses a single
// notion of "now" across analysis and ranking.
func AnalyzeAt(query string, now time.Time) Analysis {
	original := strings.TrimSpace(query)
	normalized := strings.ToLower(original)
	work := strings.ReplaceAll(normalized, "?", " ")

	timeRange, work := extractTimeRange(work, now)
	category, work := extractCategory(work)
	keywords := extractKeywords(work)
	intent, confidence := classify(original, normalized)

	return Analysis{
		Intent:     intent,
		Category:   category,
		Keywords:   keywords,
		TimeRange:  timeRange,
		Confidence: confidence,
	}
}

// extractTimeRange applies the time rules in fixed priority order. The first
// rule that matches wins and its trigger text is erased from the working
// copy so later stages never treat it as a content keyword.
func extractTimeRange(work string, now time.Time) (*TimeRange, string) {
	if strings.Contains(work, "recent") {
		return &TimeRange{Kind: TimeAfter, After: now.AddDate(0, 0, -90)},
			strings.ReplaceAll(work, "recent", " ")
	}

	if strings.Contains(work, "last year") {
		return &TimeRange{Kind: TimeYear, Year: now.Year() - 1},
			strings.ReplaceAll(work, "last year", " ")
	}

	if loc := yearPattern.FindStringIndex(work); loc != nil {
		year, _ := strconv.Atoi(work[loc[0]:loc[1]])
		kind := TimeYear
		start := loc[0]
		if start >= 5 && work[start-5:start] == "from " {
			kind = TimeYearFrom
			start -= 5
		}
		return &TimeRange{Kind: kind, Year: year}, work[:start] + " " + work[loc[1]:]
	}

	if m := lastMonthsPattern.FindStringSubmatchIndex(work); m != nil {
		months, _ := strconv.Atoi(work[m[2]:m[3]])
		return &TimeRange{Kind: TimeAfter, After: now.AddDate(0, -months, 0)},
			work[:m[0]] + " " + work[m[1]:]
	}

	return nil, work
}

// extractCategory picks the first category whose trigger phrases hit, then
// strips every phrase of that category so none leak into the keywords.
func extractCategory(work string) (string, string) {
	for _, def := range categoryTable {
		hit := false
		for _, phrase := range def.Phrases {
			if strings.Contains(work, phrase) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		for _, phrase := range def.Phrases {
			work = strings.ReplaceAll(work, phrase, " ")
		}
		return def.Label, work
	}
	return "", work
}

func extractKeywords(work string) []KeywordGroup {
	for _, pattern := range stopWordPatterns {
		work = pattern.ReplaceAllString(work, " ")
	}

	groups := []KeywordGroup{}

	for _, key := range synonymKeys {
		if !strings.Contains(work, key) {
			continue
		}
		groups = append(groups, buildGroup(key, synonymDict[key]))
		work = strings.ReplaceAll(work, key, " ")
	}

	for _, token := range strings.Fields(work) {
		if len(token) <= 2 {
			continue
		}
		group := KeywordGroup{token}
		if stem := stemTerm(token); stem != token {
			group = append(group, stem)
		}
		groups = append(groups, group)
	}

	return groups
}

// buildGroup expands a dictionary hit into base term + synonyms + stems,
// de-duplicated, base term first.
func buildGroup(key string, synonyms []string) KeywordGroup {
	terms := append([]string{key}, synonyms...)
	for _, term := range terms {
		if stem := stemTerm(term); stem != term {
			terms = append(terms, stem)
		}
	}

	seen := make(map[string]bool, len(terms))
	group := make(KeywordGroup, 0, len(terms))
	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true
		group = append(group, term)
	}
	return group
}

// stemTerm stems each word of a term so multi-word synonyms stay matchable.
func stemTerm(term string) string {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = english.Stem(w, false)
	}
	return strings.Join(words, " ")
}

func classify(original, normalized string) (Intent, float64) {
	if strings.HasSuffix(original, "?") {
		return IntentAnswer, 0.95
	}
	if fields := strings.Fields(normalized); len(fields) > 0 {
		first := strings.TrimSuffix(fields[0], "?")
		for _, qw := range questionWords {
			if first == qw {
				return IntentAnswer, 0.95
			}
		}
	}
	for _, pattern := range actionWordPatterns {
		if pattern.MatchString(normalized) {
			return IntentSummary, 0.90
		}
	}
	return IntentDocuments, 0.80
}
