package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/meghashyamc/docsearch/db"
	"github.com/stretchr/testify/require"
)

func TestSuggest(t *testing.T) {
	testCases := []struct {
		name     string
		partial  string
		expected []string
	}{
		{name: "title subject then tags", partial: "ca", expected: []string{"Calculus Review", "Math", "exam"}},
		{name: "case and whitespace are normalized", partial: "  CALC ", expected: []string{"Calculus Review", "Math", "exam"}},
		{name: "too short", partial: "c", expected: []string{}},
		{name: "empty", partial: "", expected: []string{}},
		{name: "no match", partial: "zz", expected: []string{}},
		{name: "whole partial is looked up", partial: "data notes", expected: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := require.New(t)
			service := newTestService(scenarioDocuments, Options{})

			suggestions, err := service.Suggest(context.Background(), tc.partial)
			assert.NoError(err)
			assert.Equal(tc.expected, suggestions)
		})
	}
}

func TestSuggestDeduplicatesAndCaps(t *testing.T) {
	assert := require.New(t)
	documents := make([]db.Document, 0, 6)
	for i := 0; i < 6; i++ {
		documents = append(documents, db.Document{
			ID:        fmt.Sprintf("doc-%d", i),
			Title:     fmt.Sprintf("Physics Volume %d", i),
			Subject:   "Physics",
			Tags:      []string{"physics", "mechanics"},
			Status:    db.StatusApproved,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Hour),
		})
	}
	service := newTestService(documents, Options{})

	suggestions, err := service.Suggest(context.Background(), "phys")
	assert.NoError(err)
	assert.Equal([]string{
		"Physics Volume 5",
		"Physics",
		"physics",
		"mechanics",
		"Physics Volume 4",
		"Physics Volume 3",
		"Physics Volume 2",
		"Physics Volume 1",
	}, suggestions)
}

func TestSuggestUsesCache(t *testing.T) {
	assert := require.New(t)
	service := newTestService(scenarioDocuments, Options{SuggestionCacheSize: 16})

	first, err := service.Suggest(context.Background(), "ca")
	assert.NoError(err)
	assert.Equal(1, service.store.findCalls)

	second, err := service.Suggest(context.Background(), "CA")
	assert.NoError(err)
	assert.Equal(first, second)
	assert.Equal(1, service.store.findCalls)
}

func TestSuggestCallerCannotChangeCachedResult(t *testing.T) {
	assert := require.New(t)
	service := newTestService(scenarioDocuments, Options{SuggestionCacheSize: 16})

	first, err := service.Suggest(context.Background(), "ca")
	assert.NoError(err)
	first[0] = "changed"

	second, err := service.Suggest(context.Background(), "ca")
	assert.NoError(err)
	assert.Equal([]string{"Calculus Review", "Math", "exam"}, second)
	assert.Equal(1, service.store.findCalls)

	second[1] = "changed"
	third, err := service.Suggest(context.Background(), "ca")
	assert.NoError(err)
	assert.Equal([]string{"Calculus Review", "Math", "exam"}, third)
}

func TestSuggestStoreFailure(t *testing.T) {
	assert := require.New(t)
	service := newTestService(scenarioDocuments, Options{})
	service.store.err = errors.New("connection refused")

	suggestions, err := service.Suggest(context.Background(), "ca")
	assert.Nil(suggestions)
	assert.ErrorIs(err, ErrSearchFailed)
}
