package searchdb

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/meghashyamc/docsearch/config"
	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/logger"
)

const IndexingBatchSize = 100

const lowercaseKeywordAnalyzer = "lowercase_keyword"

const (
	indexFieldStatus       = "status"
	indexFieldSubject      = "subject"
	indexFieldSemester     = "semester"
	indexFieldUniversity   = "university"
	indexFieldResourceType = "resource_type"
	indexFieldUploadedBy   = "uploaded_by"
	indexFieldViews        = "views"
	indexFieldDownloads    = "downloads"
	indexFieldCreatedAt    = "created_at"
)

type BleveDB struct {
	indexPath string
	logger    logger.Logger
	index     bleve.Index
}

func New(logger logger.Logger, cfg *config.Config) (*BleveDB, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		logger.Error("could not create index mapping", "err", err.Error())
		return nil, err
	}

	indexPath := cfg.GetIndexPath()
	if indexPath == "" {
		index, err := bleve.NewMemOnly(indexMapping)
		if err != nil {
			logger.Error("could not create in-memory listing index", "err", err.Error())
			return nil, err
		}
		return &BleveDB{logger: logger, index: index}, nil
	}

	index, err := bleve.New(indexPath, indexMapping)
	if err != nil {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Error("could not open index", "err", err.Error(), "path", indexPath)
			return nil, err
		}
	}
	return &BleveDB{indexPath: indexPath, logger: logger, index: index}, nil
}

func (b *BleveDB) BuildIndex(documents []db.Document) error {

	batch := b.index.NewBatch()

	for i, doc := range documents {

		if err := batch.Index(doc.ID, toListingFields(doc)); err != nil {
			b.logger.Error("could not index document", "id", doc.ID, "err", err.Error())
			return err
		}

		if (i+1)%IndexingBatchSize == 0 {
			if err := b.index.Batch(batch); err != nil {
				b.logger.Error("could not index batch of documents", "err", err.Error())
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not index document", "err", err.Error())
			return err
		}
	}

	return nil
}

func toListingFields(doc db.Document) map[string]interface{} {
	return map[string]interface{}{
		indexFieldStatus:       string(doc.Status),
		indexFieldSubject:      doc.Subject,
		indexFieldSemester:     doc.Semester,
		indexFieldUniversity:   doc.University,
		indexFieldResourceType: string(doc.ResourceType),
		indexFieldUploadedBy:   doc.UploadedBy,
		indexFieldViews:        float64(doc.Views),
		indexFieldDownloads:    float64(doc.Downloads),
		indexFieldCreatedAt:    doc.CreatedAt.UTC(),
	}
}

func createIndexMapping() (mapping.IndexMapping, error) {

	indexMapping := bleve.NewIndexMapping()
	if err := indexMapping.AddCustomAnalyzer(lowercaseKeywordAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("could not register %s analyzer: %w", lowercaseKeywordAnalyzer, err)
	}

	docMapping := bleve.NewDocumentMapping()

	// Exact-match fields
	for _, field := range []string{indexFieldStatus, indexFieldResourceType, indexFieldUploadedBy} {
		fieldMapping := bleve.NewTextFieldMapping()
		fieldMapping.Analyzer = keyword.Name
		fieldMapping.Store = false
		docMapping.AddFieldMappingsAt(field, fieldMapping)
	}

	// Case-insensitive substring fields, matched with wildcard queries
	for _, field := range []string{indexFieldSubject, indexFieldSemester, indexFieldUniversity} {
		fieldMapping := bleve.NewTextFieldMapping()
		fieldMapping.Analyzer = lowercaseKeywordAnalyzer
		fieldMapping.Store = false
		docMapping.AddFieldMappingsAt(field, fieldMapping)
	}

	for _, field := range []string{indexFieldViews, indexFieldDownloads} {
		docMapping.AddFieldMappingsAt(field, bleve.NewNumericFieldMapping())
	}
	docMapping.AddFieldMappingsAt(indexFieldCreatedAt, bleve.NewDateTimeFieldMapping())

	indexMapping.DefaultMapping = docMapping

	return indexMapping, nil
}

func (b *BleveDB) Search(listQuery db.ListQuery) (*Response, error) {
	if listQuery.Filter.IDs != nil && len(listQuery.Filter.IDs) == 0 {
		return &Response{IDs: []string{}}, nil
	}

	searchRequest := bleve.NewSearchRequestOptions(buildFilterQuery(listQuery.Filter), listQuery.Limit, listQuery.Skip, false)
	searchRequest.SortBy(sortOrder(listQuery.Sort))

	searchResult, err := b.index.Search(searchRequest)
	if err != nil {
		b.logger.Error("listing search failed", "err", err.Error())
		return nil, fmt.Errorf("listing search failed: %w", err)
	}

	ids := make([]string, len(searchResult.Hits))
	for i, hit := range searchResult.Hits {
		ids[i] = hit.ID
	}

	return &Response{IDs: ids}, nil
}

func (b *BleveDB) Count(filter db.Filter) (uint64, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return 0, nil
	}

	searchRequest := bleve.NewSearchRequestOptions(buildFilterQuery(filter), 0, 0, false)
	searchResult, err := b.index.Search(searchRequest)
	if err != nil {
		b.logger.Error("listing count failed", "err", err.Error())
		return 0, fmt.Errorf("listing count failed: %w", err)
	}

	return searchResult.Total, nil
}

func buildFilterQuery(filter db.Filter) query.Query {

	statusQuery := bleve.NewTermQuery(string(db.StatusApproved))
	statusQuery.SetField(indexFieldStatus)
	must := []query.Query{statusQuery}

	substringFilters := []struct {
		field string
		value string
	}{
		{indexFieldSubject, filter.Subject},
		{indexFieldSemester, filter.Semester},
		{indexFieldUniversity, filter.University},
	}
	for _, substringFilter := range substringFilters {
		if value := cleanWildcardTerm(substringFilter.value); value != "" {
			wildcardQuery := bleve.NewWildcardQuery("*" + value + "*")
			wildcardQuery.SetField(substringFilter.field)
			must = append(must, wildcardQuery)
		}
	}

	if filter.ResourceType != "" {
		resourceTypeQuery := bleve.NewTermQuery(string(filter.ResourceType))
		resourceTypeQuery.SetField(indexFieldResourceType)
		must = append(must, resourceTypeQuery)
	}

	if filter.IDs != nil {
		must = append(must, bleve.NewDocIDQuery(filter.IDs))
	}

	booleanQuery := bleve.NewBooleanQuery()
	booleanQuery.AddMust(must...)

	if filter.ExcludeUploader != "" {
		uploaderQuery := bleve.NewTermQuery(filter.ExcludeUploader)
		uploaderQuery.SetField(indexFieldUploadedBy)
		booleanQuery.AddMustNot(uploaderQuery)
	}

	return booleanQuery
}

// cleanWildcardTerm lowercases a filter value and drops the wildcard metacharacters,
// so user input is always matched literally.
func cleanWildcardTerm(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.NewReplacer("*", "", "?", "").Replace(value)
}

func sortOrder(sortKey db.SortKey) []string {
	switch sortKey {
	case db.SortPopular:
		return []string{"-" + indexFieldViews, "-" + indexFieldCreatedAt, "_id"}
	case db.SortDownloads:
		return []string{"-" + indexFieldDownloads, "-" + indexFieldCreatedAt, "_id"}
	default:
		// recent and relevance both list newest first
		return []string{"-" + indexFieldCreatedAt, "_id"}
	}
}

func (b *BleveDB) DeleteDocuments(documentIDs []string) error {
	batch := b.index.NewBatch()

	for i, docID := range documentIDs {
		batch.Delete(docID)

		if (i+1)%IndexingBatchSize == 0 {
			if err := b.index.Batch(batch); err != nil {
				b.logger.Error("could not delete documents", "err", err.Error())
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not delete documents", "err", err.Error())
			return err
		}
	}

	return nil
}

// ListIDs returns the identifier of every document in the listing index, whatever its status.
func (b *BleveDB) ListIDs() ([]string, error) {
	ids := []string{}
	for from := 0; ; from += IndexingBatchSize {
		searchRequest := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), IndexingBatchSize, from, false)
		searchRequest.SortBy([]string{"_id"})

		searchResult, err := b.index.Search(searchRequest)
		if err != nil {
			b.logger.Error("could not list document ids", "err", err.Error())
			return nil, fmt.Errorf("could not list document ids: %w", err)
		}

		for _, hit := range searchResult.Hits {
			ids = append(ids, hit.ID)
		}
		if len(searchResult.Hits) < IndexingBatchSize {
			return ids, nil
		}
	}
}

func (b *BleveDB) GetDocCount() (uint64, error) {
	return b.index.DocCount()
}

func (b *BleveDB) Close() error {

	if b.index != nil {
		if err := b.index.Close(); err != nil {
			b.logger.Error("could not close listing index", "err", err.Error())
			return err
		}
	}
	return nil
}
