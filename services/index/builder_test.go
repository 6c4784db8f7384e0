package index

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/logger"
	"github.com/stretchr/testify/require"
)

type fakeApprovedReader struct {
	mu        sync.Mutex
	documents []db.Document
	err       error
	calls     int
}

func (f *fakeApprovedReader) FindApproved(ctx context.Context) ([]db.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	documents := make([]db.Document, len(f.documents))
	copy(documents, f.documents)
	return documents, nil
}

func (f *fakeApprovedReader) set(documents []db.Document, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = documents
	f.err = err
}

var scenarioDocuments = []db.Document{
	{ID: "A", Title: "Data Structures Notes", Tags: []string{"algorithms"}},
	{ID: "B", Title: "Calculus Review", Tags: []string{"math"}},
}

func TestBuildIndexesScenarioDocuments(t *testing.T) {
	assert := require.New(t)
	builder := NewBuilder(logger.New("debug"), &fakeApprovedReader{documents: scenarioDocuments})

	trie, err := builder.Build(context.Background())
	assert.NoError(err)

	assert.Equal([]string{"A"}, trie.Search("data"))
	assert.Equal([]string{"A"}, trie.Search("struct"))
	assert.Equal([]string{"A"}, trie.Search("algo"))
	assert.Equal([]string{"B"}, trie.Search("calc"))
	assert.Equal([]string{"B"}, trie.Search("math"))
	assert.Empty(trie.Search("dtaa"))
	assert.Equal(2, trie.Documents())
	assert.False(trie.BuiltAt().IsZero())
}

func TestBuildTokenizationRules(t *testing.T) {
	assert := require.New(t)
	documents := []db.Document{{
		ID:          "X",
		Title:       "An OS of Go",
		Description: "Intro to compilers",
		Subject:     "Computer Science",
		Tags:        []string{"c", "Operating Systems"},
	}}
	builder := NewBuilder(logger.New("debug"), &fakeApprovedReader{documents: documents})

	trie, err := builder.Build(context.Background())
	assert.NoError(err)

	// title and description words of 2 characters or fewer are dropped
	assert.Empty(trie.Search("an"))
	assert.Empty(trie.Search("os"))
	assert.Empty(trie.Search("go"))
	assert.Empty(trie.Search("to"))
	assert.Equal([]string{"X"}, trie.Search("intro"))
	assert.Equal([]string{"X"}, trie.Search("compilers"))

	// subject is a single token, not split into words
	assert.True(hasWord(trie, "computer science"))
	assert.False(hasWord(trie, "computer"))
	assert.Empty(trie.Search("science"))

	// tags are indexed whole and even when short
	assert.True(hasWord(trie, "c"))
	assert.True(hasWord(trie, "operating systems"))
}

func TestBuildFailureIsBuildError(t *testing.T) {
	assert := require.New(t)
	cause := errors.New("connection reset")
	builder := NewBuilder(logger.New("debug"), &fakeApprovedReader{err: cause})

	trie, err := builder.Build(context.Background())
	assert.Nil(trie)
	assert.ErrorIs(err, ErrBuildFailed)
	assert.ErrorIs(err, cause)

	var buildErr *BuildError
	assert.ErrorAs(err, &buildErr)
}
