package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/logger"
	"github.com/meghashyamc/docsearch/services/index"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var scenarioDocuments = []db.Document{
	{
		ID:           "A",
		Title:        "Data Structures Notes",
		Subject:      "Computer Science",
		Tags:         []string{"algorithms"},
		Semester:     "3",
		ResourceType: db.ResourceTypeNotes,
		Status:       db.StatusApproved,
		UploadedBy:   "user-1",
		Views:        40,
		Downloads:    5,
		CreatedAt:    baseTime,
		StorageID:    "storage/a",
		ReviewedBy:   "admin-1",
	},
	{
		ID:           "B",
		Title:        "Calculus Review",
		Subject:      "Math",
		Tags:         []string{"exam"},
		Semester:     "1",
		ResourceType: db.ResourceTypeQuestionPaper,
		Status:       db.StatusApproved,
		UploadedBy:   "user-2",
		Views:        10,
		Downloads:    50,
		CreatedAt:    baseTime.Add(time.Hour),
	},
}

// fakeStore filters, sorts and pages an in-memory slice of approved documents.
type fakeStore struct {
	mu         sync.Mutex
	documents  []db.Document
	err        error
	findCalls  int
	countCalls int
}

func (f *fakeStore) FindApproved(ctx context.Context) ([]db.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var documents []db.Document
	for _, document := range f.documents {
		if document.Status == db.StatusApproved {
			documents = append(documents, document.Searchable())
		}
	}
	return documents, nil
}

func (f *fakeStore) Find(ctx context.Context, query db.ListQuery) ([]db.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.err != nil {
		return nil, f.err
	}

	documents := f.matching(query.Filter)
	sort.SliceStable(documents, func(i, j int) bool {
		switch query.Sort {
		case db.SortPopular:
			return documents[i].Views > documents[j].Views
		case db.SortDownloads:
			return documents[i].Downloads > documents[j].Downloads
		default:
			return documents[i].CreatedAt.After(documents[j].CreatedAt)
		}
	})

	if query.Skip >= len(documents) {
		return []db.Document{}, nil
	}
	documents = documents[query.Skip:]
	if query.Limit > 0 && query.Limit < len(documents) {
		documents = documents[:query.Limit]
	}
	return documents, nil
}

func (f *fakeStore) Count(ctx context.Context, filter db.Filter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.err != nil {
		return 0, f.err
	}
	return len(f.matching(filter)), nil
}

func (f *fakeStore) Close() error {
	return nil
}

func (f *fakeStore) matching(filter db.Filter) []db.Document {
	var ids map[string]struct{}
	if filter.IDs != nil {
		ids = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	documents := []db.Document{}
	for _, document := range f.documents {
		if document.Status != db.StatusApproved {
			continue
		}
		if ids != nil {
			if _, ok := ids[document.ID]; !ok {
				continue
			}
		}
		if filter.Subject != "" && !containsFold(document.Subject, filter.Subject) {
			continue
		}
		if filter.Semester != "" && !containsFold(document.Semester, filter.Semester) {
			continue
		}
		if filter.University != "" && !containsFold(document.University, filter.University) {
			continue
		}
		if filter.ResourceType != "" && document.ResourceType != filter.ResourceType {
			continue
		}
		if filter.ExcludeUploader != "" && document.UploadedBy == filter.ExcludeUploader {
			continue
		}
		documents = append(documents, document)
	}
	return documents
}

func containsFold(value, substring string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(substring))
}

// countingMatcher wraps a FuzzyMatcher and records how often it is consulted.
type countingMatcher struct {
	mu    sync.Mutex
	inner FuzzyMatcher
	calls int
}

func (c *countingMatcher) Match(ctx context.Context, tokens []string) (map[string]float64, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Match(ctx, tokens)
}

func (c *countingMatcher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type staticIndex struct {
	trie *index.Trie
}

func (s staticIndex) Current() *index.Trie {
	return s.trie
}

// buildIndex indexes documents the same way a rebuild does.
func buildIndex(documents []db.Document) *index.Trie {
	store := &fakeStore{documents: documents}
	trie, err := index.NewBuilder(logger.New("error"), store).Build(context.Background())
	if err != nil {
		panic(err)
	}
	return trie
}

type testService struct {
	*Service
	store   *fakeStore
	matcher *countingMatcher
}

func newTestService(documents []db.Document, opts Options) *testService {
	testLogger := logger.New("debug")
	store := &fakeStore{documents: documents}
	matcher := &countingMatcher{inner: NewFuzzyMatcher(testLogger, store)}

	service, err := New(testLogger, store, staticIndex{trie: buildIndex(documents)}, matcher, opts)
	if err != nil {
		panic(err)
	}
	return &testService{Service: service, store: store, matcher: matcher}
}
