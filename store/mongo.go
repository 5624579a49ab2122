package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetpotato0/ai-autopilot/config"
	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
)

// mongoRecord is one log entry. The payload is kept as JSON text so record
// types need no bson tags.
type mongoRecord struct {
	Seq     int64  `bson:"seq"`
	Payload string `bson:"payload"`
}

// MongoLog stores records as documents ordered by a sequence number.
type MongoLog[T any] struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoLog connects to MongoDB and ensures the sequence index exists.
func NewMongoLog[T any](ctx context.Context, cfg config.MongoConfig) (*MongoLog[T], error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	l := &MongoLog[T]{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logging.WithComponent("store").With("backend", "mongo", "collection", cfg.Collection),
	}
	if err := l.createIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return l, nil
}

func (l *MongoLog[T]) createIndexes(ctx context.Context) error {
	_, err := l.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "seq", Value: 1}},
	})
	return err
}

// Append inserts rec with a time-ordered sequence number.
func (l *MongoLog[T]) Append(ctx context.Context, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	doc := mongoRecord{Seq: time.Now().UnixNano(), Payload: string(data)}
	if _, err := l.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to append record to MongoDB: %w", err)
	}
	return nil
}

// ReadAll returns every record sorted by sequence.
func (l *MongoLog[T]) ReadAll(ctx context.Context) ([]T, error) {
	cursor, err := l.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to read records from MongoDB: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoRecord
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return decodePayloads[T](l.logger, docs), nil
}

func decodePayloads[T any](logger *slog.Logger, docs []mongoRecord) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var rec T
		if err := json.Unmarshal([]byte(doc.Payload), &rec); err != nil {
			logger.Warn("skipping unparsable record", "seq", doc.Seq, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Rewrite replaces the collection content.
func (l *MongoLog[T]) Rewrite(ctx context.Context, recs []T) error {
	docs := make([]any, 0, len(recs))
	base := time.Now().UnixNano()
	for i, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		docs = append(docs, mongoRecord{Seq: base + int64(i), Payload: string(data)})
	}

	if _, err := l.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear MongoDB records: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := l.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to rewrite MongoDB records: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (l *MongoLog[T]) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.client.Disconnect(ctx)
}
