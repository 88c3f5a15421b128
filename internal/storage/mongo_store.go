package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spherical/pdf-summarizer/internal/domain"
)

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore persists document metadata in a MongoDB collection with a unique
// index on name.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	ShortSummary  string             `bson:"short_summary"`
	MediumSummary string             `bson:"medium_summary"`
	LongSummary   string             `bson:"long_summary"`
	Keywords      []string           `bson:"keywords"`
	ProcessedAt   time.Time          `bson:"processed_at"`
}

// NewMongoStore connects to MongoDB and ensures the name index exists.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create name index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

// Insert creates a new document and returns its ObjectID in hex.
func (s *MongoStore) Insert(ctx context.Context, meta *domain.DocumentMetadata) (string, error) {
	keywords := meta.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	res, err := s.coll.InsertOne(ctx, mongoDocument{
		Name:          meta.Name,
		ShortSummary:  meta.ShortSummary,
		MediumSummary: meta.MediumSummary,
		LongSummary:   meta.LongSummary,
		Keywords:      keywords,
		ProcessedAt:   meta.ProcessedAt.UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	meta.ID = oid.Hex()
	return meta.ID, nil
}

// Update sets the summaries and keywords of the document named name.
func (s *MongoStore) Update(ctx context.Context, name string, update domain.MetadataUpdate) (int64, error) {
	keywords := update.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{
			"short_summary":  update.ShortSummary,
			"medium_summary": update.MediumSummary,
			"long_summary":   update.LongSummary,
			"keywords":       keywords,
			"processed_at":   update.ProcessedAt.UTC(),
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("update document: %w", err)
	}
	// Matched, not modified: an identical rewrite still counts as found.
	return res.MatchedCount, nil
}

// FindByName retrieves a document by name.
func (s *MongoStore) FindByName(ctx context.Context, name string) (*domain.DocumentMetadata, error) {
	var doc mongoDocument
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc.toMetadata(), nil
}

// List returns every document ordered by name.
func (s *MongoStore) List(ctx context.Context) ([]*domain.DocumentMetadata, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}

	out := make([]*domain.DocumentMetadata, len(docs))
	for i := range docs {
		out[i] = docs[i].toMetadata()
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (d *mongoDocument) toMetadata() *domain.DocumentMetadata {
	return &domain.DocumentMetadata{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		ShortSummary:  d.ShortSummary,
		MediumSummary: d.MediumSummary,
		LongSummary:   d.LongSummary,
		Keywords:      d.Keywords,
		ProcessedAt:   d.ProcessedAt.UTC(),
	}
}

var _ domain.MetadataStore = (*MongoStore)(nil)
