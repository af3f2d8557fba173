package recommendations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection is the collection name shared with earlier deployments.
const MongoCollection = "recommendations"

// mongoDocument keeps the field names older documents were written with.
type mongoDocument struct {
	ID        any       `bson:"_id,omitempty"`
	Query     string    `bson:"user_input"`
	Items     []Item    `bson:"recommended_movies"`
	CreatedAt time.Time `bson:"timestamp"`
}

// MongoRepo implements Repo on a MongoDB collection.
type MongoRepo struct {
	Coll   *mongo.Collection
	client *mongo.Client
}

// NewMongoRepo connects to uri, pings the server and ensures the lookup index.
func NewMongoRepo(ctx context.Context, uri, database string) (*MongoRepo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	repo := &MongoRepo{Coll: client.Database(database).Collection(MongoCollection), client: client}
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

// EnsureIndexes creates the (user_input, timestamp) index used by FindByQuery.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.Coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_input", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create mongo index: %w", err)
	}
	return nil
}

// FindByQuery returns the oldest record for query.
func (r *MongoRepo) FindByQuery(ctx context.Context, query string) (Record, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	var doc mongoDocument
	err := r.Coll.FindOne(ctx, bson.M{"user_input": query}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:        documentID(doc.ID),
		Query:     doc.Query,
		Items:     cloneItems(doc.Items),
		CreatedAt: doc.CreatedAt.UTC(),
	}, nil
}

// Insert appends the record. The record ID becomes the document _id.
func (r *MongoRepo) Insert(ctx context.Context, record Record) error {
	doc := mongoDocument{
		Query:     record.Query,
		Items:     cloneItems(record.Items),
		CreatedAt: record.CreatedAt,
	}
	if record.ID != "" {
		doc.ID = record.ID
	}
	_, err := r.Coll.InsertOne(ctx, doc)
	return err
}

// Ping checks that the server behind the collection is reachable.
func (r *MongoRepo) Ping(ctx context.Context) error {
	return r.Coll.Database().Client().Ping(ctx, nil)
}

// Close disconnects the client opened by NewMongoRepo.
func (r *MongoRepo) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}

func documentID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}
