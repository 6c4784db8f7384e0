package search

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/logger"
	"github.com/meghashyamc/docsearch/services/index"
	"golang.org/x/sync/errgroup"
)

const (
	defaultResultsPerPage    = 20
	maxResultsPerPage        = 100
	defaultAnonymousUploader = "anonymous"
	minQueryTokenLength      = 2
)

// IndexReader hands out the Trie currently serving searches.
type IndexReader interface {
	Current() *index.Trie
}

type Options struct {
	DefaultLimit        int
	MaxLimit            int
	AnonymousUploader   string
	SuggestionCacheSize int
}

type Service struct {
	logger            logger.Logger
	store             db.Store
	index             IndexReader
	fuzzy             FuzzyMatcher
	defaultLimit      int
	maxLimit          int
	anonymousUploader string
	suggestionCache   *lru.Cache[string, []string]
}

type Query struct {
	Text         string
	Subject      string
	Semester     string
	University   string
	ResourceType db.ResourceType
	ExcludeOwn   bool
	CallerID     string
	Sort         db.SortKey
	Page         int
	Limit        int
}

// File is the anonymized projection of a document returned to callers.
type File struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Subject      string          `json:"subject"`
	Tags         []string        `json:"tags"`
	University   string          `json:"university,omitempty"`
	Semester     string          `json:"semester"`
	ResourceType db.ResourceType `json:"resource_type"`
	UploadedBy   string          `json:"uploaded_by"`
	Views        int64           `json:"views"`
	Downloads    int64           `json:"downloads"`
	CreatedAt    time.Time       `json:"created_at"`
	FileURL      string          `json:"file_url,omitempty"`
	FileType     string          `json:"file_type,omitempty"`
	FileSize     int64           `json:"file_size,omitempty"`
}

type Pagination struct {
	CurrentPage  int  `json:"current_page"`
	PageSize     int  `json:"page_size"`
	TotalPages   int  `json:"total_pages"`
	HasNextPage  bool `json:"has_next_page"`
	HasPrevPage  bool `json:"has_prev_page"`
	TotalResults int  `json:"total_results"`
}

type AppliedFilters struct {
	Subject      string          `json:"subject,omitempty"`
	Semester     string          `json:"semester,omitempty"`
	University   string          `json:"university,omitempty"`
	ResourceType db.ResourceType `json:"resource_type,omitempty"`
	ExcludeOwn   bool            `json:"exclude_own"`
	Sort         db.SortKey      `json:"sort"`
}

type ResultPage struct {
	Files       []File         `json:"files"`
	Pagination  Pagination     `json:"pagination"`
	SearchQuery string         `json:"search_query"`
	Filters     AppliedFilters `json:"filters"`
}

func New(logger logger.Logger, store db.Store, indexReader IndexReader, fuzzy FuzzyMatcher, opts Options) (*Service, error) {
	service := &Service{
		logger:            logger,
		store:             store,
		index:             indexReader,
		fuzzy:             fuzzy,
		defaultLimit:      opts.DefaultLimit,
		maxLimit:          opts.MaxLimit,
		anonymousUploader: opts.AnonymousUploader,
	}

	if service.maxLimit <= 0 {
		service.maxLimit = maxResultsPerPage
	}
	if service.defaultLimit <= 0 || service.defaultLimit > service.maxLimit {
		service.defaultLimit = min(defaultResultsPerPage, service.maxLimit)
	}
	if service.anonymousUploader == "" {
		service.anonymousUploader = defaultAnonymousUploader
	}

	if opts.SuggestionCacheSize > 0 {
		cache, err := lru.New[string, []string](opts.SuggestionCacheSize)
		if err != nil {
			logger.Error("could not create suggestion cache", "err", err.Error())
			return nil, err
		}
		service.suggestionCache = cache
	}

	return service, nil
}

// Search answers a query with one page of anonymized approved documents.
// Exact prefix matches always win; fuzzy matching runs only when no query token
// has a prefix match.
func (s *Service) Search(ctx context.Context, query Query) (*ResultPage, error) {
	query = s.normalizeQuery(query)
	filter := baseFilter(query)

	if query.Text != "" {
		candidates, err := s.findCandidates(ctx, query.Text)
		if err != nil {
			return nil, err
		}

		if len(candidates) == 0 {
			s.logger.Debug("no candidates for query", "query", query.Text)
			return s.newResultPage(query, nil, 0), nil
		}
		filter.IDs = candidates
	}

	var documents []db.Document
	var total int

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		documents, err = s.store.Find(groupCtx, db.ListQuery{
			Filter: filter,
			Sort:   query.Sort,
			Skip:   (query.Page - 1) * query.Limit,
			Limit:  query.Limit,
		})
		return err
	})
	group.Go(func() error {
		var err error
		total, err = s.store.Count(groupCtx, filter)
		return err
	})
	if err := group.Wait(); err != nil {
		s.logger.Error("could not list matching documents", "query", query.Text, "err", err.Error())
		return nil, &QueryError{Op: "listing", Err: err}
	}

	return s.newResultPage(query, documents, total), nil
}

// findCandidates returns the sorted identifiers of documents relevant to text.
func (s *Service) findCandidates(ctx context.Context, text string) ([]string, error) {
	tokens := queryTokens(text)
	trie := s.index.Current()

	candidates := make(map[string]struct{})
	for _, token := range tokens {
		for _, id := range trie.Search(token) {
			candidates[id] = struct{}{}
		}
	}

	if len(candidates) == 0 {
		matches, err := s.fuzzy.Match(ctx, tokens)
		if err != nil {
			return nil, &QueryError{Op: "fuzzy matching", Err: err}
		}
		for id := range matches {
			candidates[id] = struct{}{}
		}
		s.logger.Debug("used fuzzy matching", "query", text, "matches", len(matches))
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids, nil
}

func (s *Service) normalizeQuery(query Query) Query {
	query.Text = strings.TrimSpace(query.Text)
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = s.defaultLimit
	}
	if query.Limit > s.maxLimit {
		query.Limit = s.maxLimit
	}
	if !query.Sort.Valid() {
		query.Sort = db.SortRelevance
	}

	return query
}

func baseFilter(query Query) db.Filter {
	filter := db.Filter{
		Subject:      strings.TrimSpace(query.Subject),
		Semester:     strings.TrimSpace(query.Semester),
		University:   strings.TrimSpace(query.University),
		ResourceType: query.ResourceType,
	}
	if query.ExcludeOwn && query.CallerID != "" {
		filter.ExcludeUploader = query.CallerID
	}

	return filter
}

// queryTokens splits text on whitespace into lowercase tokens of at least two runes.
func queryTokens(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if utf8.RuneCountInString(word) >= minQueryTokenLength {
			tokens = append(tokens, word)
		}
	}

	return tokens
}

func (s *Service) newResultPage(query Query, documents []db.Document, total int) *ResultPage {
	files := make([]File, 0, len(documents))
	for _, document := range documents {
		files = append(files, s.anonymize(document))
	}

	return &ResultPage{
		Files:       files,
		Pagination:  calculatePagination(total, query.Page, query.Limit),
		SearchQuery: query.Text,
		Filters: AppliedFilters{
			Subject:      query.Subject,
			Semester:     query.Semester,
			University:   query.University,
			ResourceType: query.ResourceType,
			ExcludeOwn:   query.ExcludeOwn,
			Sort:         query.Sort,
		},
	}
}

// anonymize hides the uploader and leaves out storage and moderation fields.
func (s *Service) anonymize(document db.Document) File {
	return File{
		ID:           document.ID,
		Title:        document.Title,
		Description:  document.Description,
		Subject:      document.Subject,
		Tags:         document.Tags,
		University:   document.University,
		Semester:     document.Semester,
		ResourceType: document.ResourceType,
		UploadedBy:   s.anonymousUploader,
		Views:        document.Views,
		Downloads:    document.Downloads,
		CreatedAt:    document.CreatedAt,
		FileURL:      document.FileURL,
		FileType:     document.FileType,
		FileSize:     document.FileSize,
	}
}

func calculatePagination(total, page, limit int) Pagination {
	totalPages := (total + limit - 1) / limit

	return Pagination{
		CurrentPage:  page,
		PageSize:     limit,
		TotalPages:   totalPages,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
		TotalResults: total,
	}
}
