package index

import (
	"context"
	"time"

	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/logger"
)

// ApprovedReader is the part of the document store the builder reads from.
type ApprovedReader interface {
	FindApproved(ctx context.Context) ([]db.Document, error)
}

type Builder struct {
	logger logger.Logger
	store  ApprovedReader
}

func NewBuilder(logger logger.Logger, store ApprovedReader) *Builder {
	return &Builder{logger: logger, store: store}
}

// Build reads every approved document and returns a new, fully populated Trie.
// The returned Trie is not shared with anything until the caller publishes it.
func (b *Builder) Build(ctx context.Context) (*Trie, error) {
	start := time.Now()

	documents, err := b.store.FindApproved(ctx)
	if err != nil {
		b.logger.Error("could not read approved documents for index build", "err", err.Error())
		return nil, &BuildError{Err: err}
	}

	trie := NewTrie()
	for _, document := range documents {
		for _, token := range documentTokens(document) {
			trie.Insert(token, document.ID)
		}
	}
	trie.documents = len(documents)
	trie.builtAt = time.Now().UTC()

	b.logger.Info("built search index", "documents", trie.documents, "tokens", trie.tokens, "duration", time.Since(start).String())

	return trie, nil
}
