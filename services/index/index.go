package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/docsearch/db/kvdb"
	"github.com/meghashyamc/docsearch/logger"
)

const (
	ProgressStatusQueued   = 0
	ProgressStatusReading  = 10
	ProgressStatusComplete = 100
	ProgressStatusFailed   = -1

	indexMetadataKey = "__index_metadata__"
)

type Stats struct {
	Generation  uint64    `json:"generation"`
	LastIndexed time.Time `json:"last_indexed"`
	Documents   int       `json:"documents"`
	Tokens      int       `json:"tokens"`
	// LastPersisted is the most recent successful build recorded in the metadata store,
	// which after a restart can describe an index built by an earlier run.
	LastPersisted *kvdb.IndexMetadata `json:"last_persisted,omitempty"`
}

// Service owns the Trie that serves searches. Readers take the current Trie with
// Current and keep using that instance even if a rebuild publishes a new one.
type Service struct {
	logger         logger.Logger
	builder        *Builder
	metadataStore  MetadataStore
	rebuildTimeout time.Duration

	current    atomic.Pointer[Trie]
	generation uint64
	// rebuildMu serializes builds so generations are published in order.
	rebuildMu sync.Mutex

	rebuildC chan rebuildRequest
}

type rebuildRequest struct {
	requestID string
}

// New creates the service with an empty index and starts the background rebuild
// worker, which stops when ctx is cancelled.
func New(ctx context.Context, logger logger.Logger, builder *Builder, metadataStore MetadataStore, rebuildTimeout time.Duration) *Service {
	indexService := &Service{
		logger:         logger,
		builder:        builder,
		metadataStore:  metadataStore,
		rebuildTimeout: rebuildTimeout,
		// one rebuild may wait while another runs; it starts after any write that queued it
		rebuildC: make(chan rebuildRequest, 1),
	}
	indexService.current.Store(NewTrie())

	go indexService.build(ctx)
	return indexService
}

// Current returns the Trie serving searches right now. It is never nil.
func (s *Service) Current() *Trie {
	return s.current.Load()
}

// Rebuild builds a new Trie from the document store and publishes it with a single swap.
// On failure the previous Trie keeps serving.
func (s *Service) Rebuild(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	trie, err := s.builder.Build(ctx)
	if err != nil {
		s.logger.Error("index rebuild failed, keeping previous index", "generation", s.Current().Generation(), "err", err.Error())
		return err
	}

	s.generation++
	trie.generation = s.generation
	s.current.Store(trie)

	s.saveIndexMetadata(trie)
	s.logger.Info("published search index", "generation", trie.generation, "documents", trie.documents)

	return nil
}

// RequestRebuild queues an asynchronous rebuild and returns its request ID.
func (s *Service) RequestRebuild() (string, error) {
	requestID := uuid.New().String()
	s.setRequestStatus(requestID, ProgressStatusQueued)

	select {
	// This leads to s.rebuild being called
	case s.rebuildC <- rebuildRequest{requestID: requestID}:
		return requestID, nil
	default:
		s.logger.Warn("rebuild requested while another rebuild is already queued")
		if err := s.metadataStore.Delete(kvdb.RequestsBucket, requestID); err != nil {
			s.logger.Error("failed to remove rejected rebuild request", "request_id", requestID, "err", err.Error())
		}
		return "", ErrRebuildInProgress
	}
}

// Status returns the progress of a rebuild request.
func (s *Service) Status(requestID string) (int, error) {
	value, err := s.metadataStore.Get(kvdb.RequestsBucket, requestID)
	if err != nil {
		if errors.Is(err, kvdb.ErrNotFound) || errors.Is(err, kvdb.ErrInvalidKey) {
			return 0, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
		}
		return 0, fmt.Errorf("could not read rebuild request status: %w", err)
	}

	status, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid status value: %w", err)
	}

	return status, nil
}

func (s *Service) Stats() Stats {
	trie := s.Current()
	stats := Stats{
		Generation:  trie.Generation(),
		LastIndexed: trie.BuiltAt(),
		Documents:   trie.Documents(),
		Tokens:      trie.Tokens(),
	}

	persisted, err := s.LastPersistedIndex()
	switch {
	case err == nil:
		stats.LastPersisted = persisted
	case !errors.Is(err, kvdb.ErrNotFound):
		s.logger.Warn("could not read persisted index metadata", "err", err.Error())
	}

	return stats
}

func (s *Service) build(ctx context.Context) {

	for {
		select {
		case req := <-s.rebuildC:
			s.rebuild(ctx, req.requestID)
		case <-ctx.Done():
			s.logger.Info("index service stopped", "reason", ctx.Err())
			return
		}
	}
}

func (s *Service) rebuild(ctx context.Context, requestID string) {
	rebuildCtx, cancel := context.WithTimeout(ctx, s.rebuildTimeout)
	defer cancel()

	s.setRequestStatus(requestID, ProgressStatusReading)
	if err := s.Rebuild(rebuildCtx); err != nil {
		s.logger.Error("rebuild request failed", "request_id", requestID, "err", err.Error())
		s.setRequestStatus(requestID, ProgressStatusFailed)
		return
	}

	s.setRequestStatus(requestID, ProgressStatusComplete)
}

func (s *Service) setRequestStatus(requestID string, status int) {
	if err := s.metadataStore.Set(kvdb.RequestsBucket, requestID, strconv.Itoa(status)); err != nil {
		s.logger.Error("failed to update request status", "request_id", requestID, "progress", status, "err", err.Error())
	}
}

func (s *Service) saveIndexMetadata(trie *Trie) {
	metadata := kvdb.IndexMetadata{
		LastIndexed: trie.builtAt,
		Generation:  trie.generation,
		Documents:   trie.documents,
		Tokens:      trie.tokens,
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		s.logger.Error("failed to marshal index metadata", "err", err.Error())
		return
	}

	if err := s.metadataStore.Set(kvdb.MetaBucket, indexMetadataKey, string(data)); err != nil {
		s.logger.Error("failed to save index metadata", "err", err.Error())
	}
}

// LastPersistedIndex returns the metadata saved by the most recent successful rebuild,
// including one from a previous run of the process.
func (s *Service) LastPersistedIndex() (*kvdb.IndexMetadata, error) {
	value, err := s.metadataStore.Get(kvdb.MetaBucket, indexMetadataKey)
	if err != nil {
		return nil, err
	}

	var metadata kvdb.IndexMetadata
	if err := json.Unmarshal([]byte(value), &metadata); err != nil {
		s.logger.Error("failed to unmarshal index metadata", "err", err.Error())
		return nil, fmt.Errorf("failed to unmarshal index metadata: %w", err)
	}

	return &metadata, nil
}
