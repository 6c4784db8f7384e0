package search

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/meghashyamc/docsearch/db"
)

const (
	minSuggestionLength  = 2
	suggestionSourceDocs = 5
	maxSuggestions       = 8
)

// Suggest returns up to eight distinct titles, subjects and tags taken from the
// most recent approved documents whose tokens start with partial.
func (s *Service) Suggest(ctx context.Context, partial string) ([]string, error) {
	normalized := strings.ToLower(strings.TrimSpace(partial))
	if utf8.RuneCountInString(normalized) < minSuggestionLength {
		return []string{}, nil
	}

	trie := s.index.Current()
	cacheKey := fmt.Sprintf("%d:%s", trie.Generation(), normalized)
	if s.suggestionCache != nil {
		if suggestions, ok := s.suggestionCache.Get(cacheKey); ok {
			return slices.Clone(suggestions), nil
		}
	}

	ids := trie.Search(normalized)
	if len(ids) == 0 {
		return []string{}, nil
	}

	documents, err := s.store.Find(ctx, db.ListQuery{
		Filter: db.Filter{IDs: ids},
		Sort:   db.SortRecent,
		Limit:  suggestionSourceDocs,
	})
	if err != nil {
		s.logger.Error("could not read documents for suggestions", "partial", normalized, "err", err.Error())
		return nil, &QueryError{Op: "suggestions", Err: err}
	}

	suggestions := collectSuggestions(documents)
	if s.suggestionCache != nil {
		// callers own the returned slice
		s.suggestionCache.Add(cacheKey, slices.Clone(suggestions))
	}

	return suggestions, nil
}

func collectSuggestions(documents []db.Document) []string {
	suggestions := make([]string, 0, maxSuggestions)
	seen := make(map[string]struct{})

	add := func(value string) {
		if value == "" || len(suggestions) >= maxSuggestions {
			return
		}
		if _, ok := seen[value]; ok {
			return
		}
		seen[value] = struct{}{}
		suggestions = append(suggestions, value)
	}

	for _, document := range documents {
		add(document.Title)
		add(document.Subject)
		for _, tag := range document.Tags {
			add(tag)
		}
	}

	return suggestions
}
