package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/db/kvdb"
	"github.com/meghashyamc/docsearch/logger"
	"github.com/meghashyamc/docsearch/services/index"
	"github.com/meghashyamc/docsearch/services/search"
	"github.com/stretchr/testify/require"
)

var testDocuments = []db.Document{
	{ID: "A", Title: "Data Structures Notes", Subject: "Computer Science", Tags: []string{"algorithms"}, Status: db.StatusApproved, UploadedBy: "user-1", CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	{ID: "B", Title: "Calculus Review", Subject: "Math", Tags: []string{"exam"}, Status: db.StatusApproved, UploadedBy: "user-2", CreatedAt: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)},
}

// memoryStore lists documents newest first and only understands the id filter.
type memoryStore struct {
	documents []db.Document
}

func (m *memoryStore) FindApproved(ctx context.Context) ([]db.Document, error) {
	return m.documents, nil
}

func (m *memoryStore) Find(ctx context.Context, query db.ListQuery) ([]db.Document, error) {
	documents := m.matching(query.Filter)
	if query.Skip >= len(documents) {
		return []db.Document{}, nil
	}
	documents = documents[query.Skip:]
	if query.Limit < len(documents) {
		documents = documents[:query.Limit]
	}
	return documents, nil
}

func (m *memoryStore) Count(ctx context.Context, filter db.Filter) (int, error) {
	return len(m.matching(filter)), nil
}

func (m *memoryStore) Close() error {
	return nil
}

func (m *memoryStore) matching(filter db.Filter) []db.Document {
	documents := []db.Document{}
	for _, document := range m.documents {
		if filter.IDs != nil && !contains(filter.IDs, document.ID) {
			continue
		}
		if filter.ExcludeUploader != "" && document.UploadedBy == filter.ExcludeUploader {
			continue
		}
		documents = append(documents, document)
	}
	sort.Slice(documents, func(i, j int) bool { return documents[i].CreatedAt.After(documents[j].CreatedAt) })
	return documents
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}

type memoryMetadataStore struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memoryMetadataStore) Set(bucket string, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[bucket+"/"+key] = value
	return nil
}

func (m *memoryMetadataStore) Get(bucket string, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[bucket+"/"+key]
	if !ok {
		return "", &kvdb.NotFoundError{Bucket: bucket, Key: key}
	}
	return value, nil
}

func (m *memoryMetadataStore) Delete(bucket string, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, bucket+"/"+key)
	return nil
}

func newTestServer(t *testing.T) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	testLogger := logger.New("debug")
	store := &memoryStore{documents: testDocuments}
	indexService := index.New(ctx, testLogger, index.NewBuilder(testLogger, store), &memoryMetadataStore{values: map[string]string{}}, 5*time.Second)
	require.NoError(t, indexService.Rebuild(ctx))

	searchService, err := search.New(testLogger, store, indexService, search.NewFuzzyMatcher(testLogger, store), search.Options{})
	require.NoError(t, err)

	return New(testLogger, searchService, indexService)
}

func callTool(handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
}

func resultJSON(t *testing.T, result *mcp.CallToolResult, target any) {
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	require.NoError(t, json.Unmarshal([]byte(text.Text), target))
}

func TestHandleSearchDocuments(t *testing.T) {
	testCases := []struct {
		name         string
		args         map[string]interface{}
		expectedIDs  []string
		expectedCode int
	}{
		{name: "ExactPrefix", args: map[string]interface{}{"query": "data"}, expectedIDs: []string{"A"}},
		{name: "FuzzyFallback", args: map[string]interface{}{"query": "Dtaa"}, expectedIDs: []string{"A"}},
		{name: "ListAll", args: map[string]interface{}{}, expectedIDs: []string{"B", "A"}},
		{name: "ExcludeOwn", args: map[string]interface{}{"exclude_own": true, "caller_id": "user-2"}, expectedIDs: []string{"A"}},
		{name: "LimitFromJSONNumber", args: map[string]interface{}{"limit": float64(1), "page": float64(2)}, expectedIDs: []string{"A"}},
		{name: "InvalidSort", args: map[string]interface{}{"sort": "oldest"}, expectedCode: ErrorCodeInvalidParams},
		{name: "InvalidResourceType", args: map[string]interface{}{"resource_type": "video"}, expectedCode: ErrorCodeInvalidParams},
		{name: "InvalidPage", args: map[string]interface{}{"page": float64(0)}, expectedCode: ErrorCodeInvalidParams},
		{name: "InvalidLimit", args: map[string]interface{}{"limit": float64(500)}, expectedCode: ErrorCodeInvalidParams},
	}

	server := newTestServer(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := require.New(t)
			result, err := callTool(server.handleSearchDocuments, "search_documents", tc.args)
			if tc.expectedCode != 0 {
				var mcpErr *MCPError
				assert.True(errors.As(err, &mcpErr))
				assert.Equal(tc.expectedCode, mcpErr.Code)
				return
			}
			assert.NoError(err)

			var page search.ResultPage
			resultJSON(t, result, &page)
			ids := make([]string, 0, len(page.Files))
			for _, file := range page.Files {
				ids = append(ids, file.ID)
				assert.Equal("anonymous", file.UploadedBy)
			}
			assert.Equal(tc.expectedIDs, ids)
		})
	}
}

func TestHandleSuggest(t *testing.T) {
	assert := require.New(t)
	server := newTestServer(t)

	result, err := callTool(server.handleSuggest, "suggest", map[string]interface{}{"partial": "ca"})
	assert.NoError(err)

	var response struct {
		Suggestions []string `json:"suggestions"`
	}
	resultJSON(t, result, &response)
	assert.Equal([]string{"Calculus Review", "Math", "exam"}, response.Suggestions)

	_, err = callTool(server.handleSuggest, "suggest", map[string]interface{}{})
	var mcpErr *MCPError
	assert.True(errors.As(err, &mcpErr))
	assert.Equal(ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleRebuildIndex(t *testing.T) {
	assert := require.New(t)
	server := newTestServer(t)

	result, err := callTool(server.handleRebuildIndex, "rebuild_index", map[string]interface{}{"wait": true})
	assert.NoError(err)

	var stats index.Stats
	resultJSON(t, result, &stats)
	assert.Equal(uint64(2), stats.Generation)
	assert.Equal(2, stats.Documents)

	result, err = callTool(server.handleRebuildIndex, "rebuild_index", nil)
	assert.NoError(err)

	var queued struct {
		Queued bool   `json:"queued"`
		ID     string `json:"id"`
	}
	resultJSON(t, result, &queued)
	assert.True(queued.Queued)
	assert.NotEmpty(queued.ID)
}

func TestHandleIndexStats(t *testing.T) {
	assert := require.New(t)
	server := newTestServer(t)

	result, err := callTool(server.handleIndexStats, "index_stats", nil)
	assert.NoError(err)

	var stats index.Stats
	resultJSON(t, result, &stats)
	assert.Equal(uint64(1), stats.Generation)
	assert.Equal(2, stats.Documents)
	assert.Positive(stats.Tokens)
	assert.NotNil(stats.LastPersisted)
	assert.Equal(uint64(1), stats.LastPersisted.Generation)
}

func TestServeStopsWhenContextCancelled(t *testing.T) {
	assert := require.New(t)
	server := newTestServer(t)

	stdin, stdinWriter := io.Pipe()
	defer stdinWriter.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.serve(ctx, stdin, io.Discard)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(err)
	case <-time.After(5 * time.Second):
		assert.Fail("serve did not return after its context was cancelled")
	}
}
