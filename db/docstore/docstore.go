// Package docstore is the embedded document store: documents are persisted as JSON in
// bbolt and mirrored into a bleve listing index that answers filtered, sorted and
// paginated reads.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/db/kvdb"
	"github.com/meghashyamc/docsearch/db/searchdb"
	"github.com/meghashyamc/docsearch/logger"
)

type Store struct {
	logger  logger.Logger
	kv      kvdb.DB
	listing searchdb.DB
}

// New opens the store and re-synchronizes the listing index from bbolt.
func New(logger logger.Logger, kv kvdb.DB, listing searchdb.DB) (*Store, error) {
	store := &Store{
		logger:  logger,
		kv:      kv,
		listing: listing,
	}

	if err := store.syncListing(); err != nil {
		return nil, err
	}

	return store, nil
}

// syncListing re-indexes every stored document and purges listing entries whose
// document is no longer in bbolt, such as one left by a crash during Delete.
func (s *Store) syncListing() error {
	documents, err := s.scan(func(db.Document) bool { return true })
	if err != nil {
		s.logger.Error("could not read documents to sync listing index", "err", err.Error())
		return fmt.Errorf("could not read documents to sync listing index: %w", err)
	}

	if err := s.listing.BuildIndex(documents); err != nil {
		s.logger.Error("could not sync listing index", "err", err.Error())
		return fmt.Errorf("could not sync listing index: %w", err)
	}

	listedIDs, err := s.listing.ListIDs()
	if err != nil {
		return fmt.Errorf("could not read listing index ids: %w", err)
	}

	stored := make(map[string]struct{}, len(documents))
	for _, document := range documents {
		stored[document.ID] = struct{}{}
	}
	var staleIDs []string
	for _, id := range listedIDs {
		if _, ok := stored[id]; !ok {
			staleIDs = append(staleIDs, id)
		}
	}

	if len(staleIDs) > 0 {
		if err := s.listing.DeleteDocuments(staleIDs); err != nil {
			s.logger.Error("could not purge stale listing entries", "count", len(staleIDs), "err", err.Error())
			return fmt.Errorf("could not purge stale listing entries: %w", err)
		}
	}

	listed, err := s.listing.GetDocCount()
	if err != nil {
		s.logger.Error("could not count listing index", "err", err.Error())
		return fmt.Errorf("could not count listing index: %w", err)
	}
	if listed != uint64(len(documents)) {
		s.logger.Warn("listing index size differs from store after sync", "listed", listed, "documents", len(documents))
	}

	s.logger.Info("synced listing index", "documents", len(documents), "purged", len(staleIDs), "listed", listed)
	return nil
}

func (s *Store) FindApproved(ctx context.Context) ([]db.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	documents, err := s.scan(func(document db.Document) bool { return document.Status == db.StatusApproved })
	if err != nil {
		s.logger.Error("could not read approved documents", "err", err.Error())
		return nil, err
	}

	for i := range documents {
		documents[i] = documents[i].Searchable()
	}

	return documents, nil
}

func (s *Store) Find(ctx context.Context, query db.ListQuery) ([]db.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response, err := s.listing.Search(query)
	if err != nil {
		return nil, err
	}

	documents := make([]db.Document, 0, len(response.IDs))
	for _, id := range response.IDs {
		document, err := s.Get(ctx, id)
		if err != nil {
			// the listing index can briefly hold an id that was deleted from bbolt
			if errors.Is(err, db.ErrNotFound) {
				s.logger.Warn("listed document missing from store", "id", id)
				continue
			}
			return nil, err
		}
		documents = append(documents, *document)
	}

	return documents, nil
}

func (s *Store) Count(ctx context.Context, filter db.Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	total, err := s.listing.Count(filter)
	if err != nil {
		return 0, err
	}

	return int(total), nil
}

func (s *Store) Get(ctx context.Context, id string) (*db.Document, error) {
	value, err := s.kv.Get(kvdb.DocumentsBucket, id)
	if err != nil {
		if errors.Is(err, kvdb.ErrNotFound) || errors.Is(err, kvdb.ErrInvalidKey) {
			return nil, fmt.Errorf("%w: %s", db.ErrNotFound, id)
		}
		return nil, err
	}

	var document db.Document
	if err := json.Unmarshal([]byte(value), &document); err != nil {
		s.logger.Error("failed to unmarshal document", "id", id, "err", err.Error())
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
	}

	return &document, nil
}

func (s *Store) Upsert(ctx context.Context, document db.Document) error {
	if document.ID == "" {
		return &kvdb.InvalidKeyError{Key: document.ID, Reason: "document id cannot be empty"}
	}

	data, err := json.Marshal(document)
	if err != nil {
		s.logger.Error("failed to marshal document", "id", document.ID, "err", err.Error())
		return fmt.Errorf("failed to marshal document %s: %w", document.ID, err)
	}

	if err := s.kv.Set(kvdb.DocumentsBucket, document.ID, string(data)); err != nil {
		return err
	}

	if err := s.listing.BuildIndex([]db.Document{document}); err != nil {
		return fmt.Errorf("failed to update listing index for %s: %w", document.ID, err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.kv.Delete(kvdb.DocumentsBucket, id); err != nil {
		return err
	}

	return s.listing.DeleteDocuments([]string{id})
}

func (s *Store) Close() error {
	return s.listing.Close()
}

func (s *Store) scan(keep func(db.Document) bool) ([]db.Document, error) {
	var documents []db.Document
	err := s.kv.ForEach(kvdb.DocumentsBucket, func(key string, value []byte) error {
		var document db.Document
		if err := json.Unmarshal(value, &document); err != nil {
			return fmt.Errorf("failed to unmarshal document %s: %w", key, err)
		}
		if keep(document) {
			documents = append(documents, document)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return documents, nil
}
