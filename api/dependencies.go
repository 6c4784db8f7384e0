package api

import (
	"context"
	"fmt"

	"github.com/meghashyamc/docsearch/config"
	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/db/docstore"
	"github.com/meghashyamc/docsearch/db/kvdb"
	"github.com/meghashyamc/docsearch/db/mongodb"
	"github.com/meghashyamc/docsearch/db/searchdb"
	"github.com/meghashyamc/docsearch/logger"
	"github.com/meghashyamc/docsearch/services/index"
	"github.com/meghashyamc/docsearch/services/search"
)

// Dependencies are the services shared by the HTTP and MCP entry points.
type Dependencies struct {
	KV     kvdb.DB
	Store  db.Store
	Index  *index.Service
	Search *search.Service
}

// NewDependencies opens the configured document store, builds the first search index and
// starts the rebuild worker, which runs until ctx is cancelled.
func NewDependencies(ctx context.Context, logger logger.Logger, cfg *config.Config) (*Dependencies, error) {
	kvDB, err := kvdb.New(logger, cfg)
	if err != nil {
		logger.Error("error creating kvDB", "err", err.Error())
		return nil, err
	}

	store, err := openStore(ctx, logger, cfg, kvDB)
	if err != nil {
		kvDB.Close()
		return nil, err
	}

	indexService := index.New(ctx, logger, index.NewBuilder(logger, store), kvDB, cfg.GetRebuildTimeout())
	if err := indexService.Rebuild(ctx); err != nil {
		// searches run against the empty index until a rebuild succeeds
		logger.Warn("initial index build failed", "err", err.Error())
	}

	searchService, err := search.New(logger, store, indexService, search.NewFuzzyMatcher(logger, store), search.Options{
		DefaultLimit:        cfg.GetDefaultResultsPerPage(),
		MaxLimit:            cfg.GetMaxResultsPerPage(),
		AnonymousUploader:   cfg.GetAnonymousUploader(),
		SuggestionCacheSize: cfg.GetSuggestionCacheSize(),
	})
	if err != nil {
		logger.Error("error creating search service", "err", err.Error())
		store.Close()
		kvDB.Close()
		return nil, err
	}

	return &Dependencies{
		KV:     kvDB,
		Store:  store,
		Index:  indexService,
		Search: searchService,
	}, nil
}

func openStore(ctx context.Context, logger logger.Logger, cfg *config.Config, kvDB kvdb.DB) (db.Store, error) {
	switch driver := cfg.GetDatabaseDriver(); driver {
	case config.DriverBolt:
		listing, err := searchdb.New(logger, cfg)
		if err != nil {
			logger.Error("error creating listing index", "err", err.Error())
			return nil, err
		}
		store, err := docstore.New(logger, kvDB, listing)
		if err != nil {
			logger.Error("error creating document store", "err", err.Error())
			listing.Close()
			return nil, err
		}
		return store, nil

	case config.DriverMongo:
		store, err := mongodb.New(ctx, logger, cfg)
		if err != nil {
			logger.Error("error connecting to mongo", "err", err.Error())
			return nil, err
		}
		return store, nil

	default:
		logger.Error("unknown database driver", "driver", driver)
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

func (d *Dependencies) Close(logger logger.Logger) {
	if err := d.Store.Close(); err != nil {
		logger.Error("error closing document store", "err", err.Error())
	}
	if err := d.KV.Close(); err != nil {
		logger.Error("error closing kvDB", "err", err.Error())
	}
}
