package searchdb

import "github.com/meghashyamc/docsearch/db"

// DB is the listing index that answers filtered, sorted and paginated queries
// over document metadata. It holds identifiers and listing fields only.
type DB interface {
	BuildIndex(documents []db.Document) error
	DeleteDocuments(documentIDs []string) error
	Search(query db.ListQuery) (*Response, error)
	Count(filter db.Filter) (uint64, error)
	ListIDs() ([]string, error)
	GetDocCount() (uint64, error)
	Close() error
}

type Response struct {
	IDs []string `json:"ids"`
}
