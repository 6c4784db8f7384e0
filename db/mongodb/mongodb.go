// Package mongodb reads documents from the platform's MongoDB files collection.
// Writes belong to the upload and approval workflow, so the store is read-only.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/meghashyamc/docsearch/config"
	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

const (
	fieldID           = "_id"
	fieldTitle        = "title"
	fieldDescription  = "description"
	fieldSubject      = "subject"
	fieldTags         = "tags"
	fieldSemester     = "semester"
	fieldUniversity   = "university"
	fieldResourceType = "resourceType"
	fieldStatus       = "status"
	fieldUploadedBy   = "uploadedBy"
	fieldViews        = "views"
	fieldDownloads    = "downloads"
	fieldCreatedAt    = "createdAt"
)

var searchableProjection = bson.D{
	{Key: fieldID, Value: 1},
	{Key: fieldTitle, Value: 1},
	{Key: fieldDescription, Value: 1},
	{Key: fieldSubject, Value: 1},
	{Key: fieldTags, Value: 1},
}

type Store struct {
	logger     logger.Logger
	client     *mongo.Client
	collection *mongo.Collection
}

func New(ctx context.Context, logger logger.Logger, cfg *config.Config) (*Store, error) {
	uri := cfg.GetMongoURI()
	if uri == "" {
		return nil, errors.New("mongo uri is not configured")
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Error("could not connect to mongo", "err", err.Error())
		return nil, fmt.Errorf("could not connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		logger.Error("could not ping mongo", "err", err.Error())
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("could not ping mongo: %w", err)
	}

	collection := client.Database(cfg.GetMongoDatabase()).Collection(cfg.GetMongoCollection())
	logger.Info("connected to mongo", "database", cfg.GetMongoDatabase(), "collection", cfg.GetMongoCollection())

	return &Store{logger: logger, client: client, collection: collection}, nil
}

func (s *Store) FindApproved(ctx context.Context) ([]db.Document, error) {
	cursor, err := s.collection.Find(ctx,
		bson.M{fieldStatus: string(db.StatusApproved)},
		options.Find().SetProjection(searchableProjection))
	if err != nil {
		s.logger.Error("could not find approved documents", "err", err.Error())
		return nil, fmt.Errorf("could not find approved documents: %w", err)
	}

	var documents []db.Document
	if err := cursor.All(ctx, &documents); err != nil {
		s.logger.Error("could not decode approved documents", "err", err.Error())
		return nil, fmt.Errorf("could not decode approved documents: %w", err)
	}

	return documents, nil
}

func (s *Store) Find(ctx context.Context, query db.ListQuery) ([]db.Document, error) {
	findOptions := options.Find().
		SetSort(sortFor(query.Sort)).
		SetSkip(int64(query.Skip)).
		SetLimit(int64(query.Limit))

	cursor, err := s.collection.Find(ctx, buildFilter(query.Filter), findOptions)
	if err != nil {
		s.logger.Error("could not list documents", "err", err.Error())
		return nil, fmt.Errorf("could not list documents: %w", err)
	}

	documents := []db.Document{}
	if err := cursor.All(ctx, &documents); err != nil {
		s.logger.Error("could not decode listed documents", "err", err.Error())
		return nil, fmt.Errorf("could not decode listed documents: %w", err)
	}

	return documents, nil
}

func (s *Store) Count(ctx context.Context, filter db.Filter) (int, error) {
	count, err := s.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		s.logger.Error("could not count documents", "err", err.Error())
		return 0, fmt.Errorf("could not count documents: %w", err)
	}

	return int(count), nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	return s.client.Disconnect(ctx)
}

func buildFilter(filter db.Filter) bson.M {
	query := bson.M{fieldStatus: string(db.StatusApproved)}

	for field, value := range map[string]string{
		fieldSubject:    filter.Subject,
		fieldSemester:   filter.Semester,
		fieldUniversity: filter.University,
	} {
		if value = strings.TrimSpace(value); value != "" {
			query[field] = primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
		}
	}

	if filter.ResourceType != "" {
		query[fieldResourceType] = string(filter.ResourceType)
	}

	if filter.ExcludeUploader != "" {
		query[fieldUploadedBy] = bson.M{"$ne": idValue(filter.ExcludeUploader)}
	}

	if filter.IDs != nil {
		ids := make(bson.A, 0, len(filter.IDs))
		for _, id := range filter.IDs {
			ids = append(ids, idValue(id))
		}
		query[fieldID] = bson.M{"$in": ids}
	}

	return query
}

// idValue converts hex identifiers back to ObjectIDs, the type the collection stores them as.
func idValue(id string) interface{} {
	if objectID, err := primitive.ObjectIDFromHex(id); err == nil {
		return objectID
	}
	return id
}

func sortFor(sortKey db.SortKey) bson.D {
	switch sortKey {
	case db.SortPopular:
		return bson.D{{Key: fieldViews, Value: -1}, {Key: fieldCreatedAt, Value: -1}, {Key: fieldID, Value: 1}}
	case db.SortDownloads:
		return bson.D{{Key: fieldDownloads, Value: -1}, {Key: fieldCreatedAt, Value: -1}, {Key: fieldID, Value: 1}}
	default:
		return bson.D{{Key: fieldCreatedAt, Value: -1}, {Key: fieldID, Value: 1}}
	}
}
