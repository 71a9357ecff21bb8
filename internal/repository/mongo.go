package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"geonames-importer/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultMongoDatabase is used when the connection string names no database.
const DefaultMongoDatabase = "world-locations"

// MongoRepository stores records as GeoJSON documents keyed by geonameid.
type MongoRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to uri and verifies the connection. The database is taken
// from the URI path.
func OpenMongo(ctx context.Context, uri, collection string) (*MongoRepository, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("repository: failed to reach mongo: %w", err)
	}

	return NewMongoRepository(client, databaseName(uri), collection), nil
}

// NewMongoRepository wraps an already connected client.
func NewMongoRepository(client *mongo.Client, database, collection string) *MongoRepository {
	return &MongoRepository{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
}

func databaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return DefaultMongoDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return DefaultMongoDatabase
}

// EnsureSchema creates the 2dsphere index on loc.
func (r *MongoRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "loc", Value: "2dsphere"}},
	})
	if err != nil {
		return fmt.Errorf("repository: failed to create 2dsphere index: %w", err)
	}
	return nil
}

// Insert adds rec as a new document. Existing identifiers yield ErrDuplicate.
func (r *MongoRepository) Insert(ctx context.Context, rec *models.LocationRecord) error {
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("repository: insert %s: %w", rec.ID, ErrDuplicate)
		}
		return fmt.Errorf("repository: failed to insert %s: %w", rec.ID, err)
	}
	return nil
}

func (r *MongoRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count documents: %w", err)
	}
	return n, nil
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
