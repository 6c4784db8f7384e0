// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/docsearch/config"
	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/db/docstore"
	"github.com/meghashyamc/docsearch/db/kvdb"
	"github.com/meghashyamc/docsearch/db/searchdb"
	"github.com/meghashyamc/docsearch/logger"
	"github.com/meghashyamc/docsearch/services/index"
	"github.com/meghashyamc/docsearch/services/search"
	"github.com/meghashyamc/docsearch/validation"
	"github.com/stretchr/testify/require"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

var testCreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var testDocuments = []db.Document{
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
		CreatedAt:    testCreatedAt,
		StorageID:    "storage/a",
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
		CreatedAt:    testCreatedAt.Add(time.Hour),
	},
	{
		ID:           "P",
		Title:        "Database Systems",
		Subject:      "Computer Science",
		Semester:     "4",
		ResourceType: db.ResourceTypeBook,
		Status:       db.StatusPending,
		UploadedBy:   "user-3",
		CreatedAt:    testCreatedAt.Add(2 * time.Hour),
	},
}

type testCase struct {
	name             string
	requestHeaders   map[string]string
	requestBody      map[string]any
	queryParams      map[string]string
	expectedStatus   int
	expectedIDs      []string
	expectedResponse map[string]any
}

type testServer struct {
	router *gin.Engine
	store  *docstore.Store
	index  *index.Service
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func setupTestServer(t *testing.T, assert *require.Assertions) (*testServer, func()) {

	t.Setenv("ENV", "test")
	t.Setenv("KVDB_PATH", filepath.Join(t.TempDir(), "docsearch.db"))

	cfg, err := config.Load("test")
	assert.NoError(err, "could not load config")

	testLogger := newTestLogger()

	kvDB, err := kvdb.New(testLogger, cfg)
	assert.NoError(err, "could not create kv database")

	listing, err := searchdb.New(testLogger, cfg)
	assert.NoError(err, "could not create listing index")

	store, err := docstore.New(testLogger, kvDB, listing)
	assert.NoError(err, "could not create document store")

	ctx, cancel := context.WithCancel(context.Background())
	for _, document := range testDocuments {
		assert.NoError(store.Upsert(ctx, document), "could not seed document")
	}

	indexService := index.New(ctx, testLogger, index.NewBuilder(testLogger, store), kvDB, cfg.GetRebuildTimeout())
	assert.NoError(indexService.Rebuild(ctx), "could not build search index")

	searchService, err := search.New(testLogger, store, indexService, search.NewFuzzyMatcher(testLogger, store), search.Options{
		DefaultLimit:        cfg.GetDefaultResultsPerPage(),
		MaxLimit:            cfg.GetMaxResultsPerPage(),
		AnonymousUploader:   cfg.GetAnonymousUploader(),
		SuggestionCacheSize: cfg.GetSuggestionCacheSize(),
	})
	assert.NoError(err, "could not create search service")

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextKeyCallerID, c.GetHeader(HeaderUserID))
		c.Next()
	})

	SetupSearch(router, testLogger, searchService, validator, cfg.GetDefaultResultsPerPage())
	SetupIndex(router, testLogger, indexService)
	SetupDocuments(router, testLogger, store, indexService, validator)

	cleanup := func() {
		cancel()
		err := store.Close()
		assert.NoError(err, "could not close document store")
		err = kvDB.Close()
		assert.NoError(err, "could not close kv database")
	}

	return &testServer{router: router, store: store, index: indexService}, cleanup
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBodyMap map[string]interface{}, queryParams map[string]string) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		values := url.Values{}
		for key, value := range queryParams {
			values.Set(key, value)
		}
		endpoint = endpoint + "?" + values.Encode()
	}
	var jsonBody []byte
	var req *http.Request
	if requestBodyMap != nil {
		jsonBody, err = json.Marshal(requestBodyMap)
		assert.NoError(err)
	}

	slog.Info("Making test request", "method", method, "endpoint", endpoint, "headers", headers, "body", string(jsonBody))

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

func decodeResponse(assert *require.Assertions, w *httptest.ResponseRecorder) map[string]any {
	var responseMap map[string]any
	err := json.Unmarshal(w.Body.Bytes(), &responseMap)
	assert.NoError(err, "could not unmarshal response %s", w.Body.String())
	return responseMap
}

func fileIDs(assert *require.Assertions, responseMap map[string]any) []string {
	data, ok := responseMap["data"].(map[string]any)
	assert.True(ok, "response has no data object")
	files, ok := data["files"].([]any)
	assert.True(ok, "response data has no files array")

	ids := make([]string, 0, len(files))
	for _, file := range files {
		ids = append(ids, file.(map[string]any)["id"].(string))
	}
	return ids
}
