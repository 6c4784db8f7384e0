package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/logger"
)

const (
	maxTitleDistance     = 2
	minFuzzyTitleWordLen = 4
	titleMatchWeight     = 2.0
	maxTagDistance       = 1
	tagMatchWeight       = 1.5
	fuzzyScoreThreshold  = 1.0
)

// FuzzyMatcher finds approved documents close to the query tokens by edit distance.
type FuzzyMatcher interface {
	Match(ctx context.Context, tokens []string) (map[string]float64, error)
}

type fuzzyMatcher struct {
	logger logger.Logger
	store  db.Store
}

func NewFuzzyMatcher(logger logger.Logger, store db.Store) FuzzyMatcher {
	return &fuzzyMatcher{logger: logger, store: store}
}

// Match scans every approved document and returns the ones scoring above the threshold.
func (m *fuzzyMatcher) Match(ctx context.Context, tokens []string) (map[string]float64, error) {
	matches := make(map[string]float64)
	if len(tokens) == 0 {
		return matches, nil
	}

	documents, err := m.store.FindApproved(ctx)
	if err != nil {
		m.logger.Error("could not read approved documents for fuzzy matching", "err", err.Error())
		return nil, err
	}

	for _, document := range documents {
		if score := Score(tokens, document); score > fuzzyScoreThreshold {
			matches[document.ID] = score
		}
	}

	m.logger.Debug("fuzzy matching finished", "tokens", tokens, "scanned", len(documents), "matched", len(matches))
	return matches, nil
}

// Score adds up the edit-distance rewards of every (query token, title word) and
// (query token, tag) pair of a document.
func Score(tokens []string, document db.Document) float64 {
	titleWords := strings.Fields(strings.ToLower(document.Title))

	var score float64
	for _, token := range tokens {
		for _, word := range titleWords {
			distance := Levenshtein(token, word)
			if distance <= maxTitleDistance && utf8.RuneCountInString(word) >= minFuzzyTitleWordLen {
				score += float64(maxTitleDistance+1-distance) * titleMatchWeight
			}
		}

		for _, tag := range document.Tags {
			distance := Levenshtein(token, strings.ToLower(tag))
			if distance <= maxTagDistance {
				score += float64(maxTagDistance+1-distance) * tagMatchWeight
			}
		}
	}

	return score
}

// Levenshtein returns the minimum number of single-rune insertions, deletions and
// substitutions that turn a into b.
func Levenshtein(a, b string) int {
	source, target := []rune(a), []rune(b)
	m, n := len(source), len(target)

	distance := make([][]int, n+1)
	for i := range distance {
		distance[i] = make([]int, m+1)
		distance[i][0] = i
	}
	for j := 0; j <= m; j++ {
		distance[0][j] = j
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			substitutionCost := 1
			if target[i-1] == source[j-1] {
				substitutionCost = 0
			}
			distance[i][j] = min(
				distance[i-1][j-1]+substitutionCost,
				distance[i-1][j]+1,
				distance[i][j-1]+1,
			)
		}
	}

	return distance[n][m]
}
