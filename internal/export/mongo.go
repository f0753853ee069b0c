package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reimburse/internal/logger"
	"reimburse/pkg/models"
)

// DataStore is the subset of a Mongo collection used by MongoSink.
type DataStore interface {
	InsertOne(
		ctx context.Context,
		document interface{},
		opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// auditDocument is the stored shape of one Row.
type auditDocument struct {
	MessageID   string                 `bson:"message_id"`
	Subject     string                 `bson:"subject"`
	Status      string                 `bson:"status"`
	FormTotal   *int64                 `bson:"form_total"`
	SumReceipts int64                  `bson:"sum_receipts"`
	Matched     int                    `bson:"matched"`
	Missing     int                    `bson:"missing"`
	Notes       string                 `bson:"notes"`
	Error       string                 `bson:"error,omitempty"`
	ProcessedAt time.Time              `bson:"processed_at"`
	Result      *models.AnalysisResult `bson:"result,omitempty"`
}

// MongoSink stores one document per row.
type MongoSink struct {
	store  DataStore
	client *mongo.Client
	log    zerolog.Logger
}

// ConnectMongo connects to uri and returns a sink for database.collection.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	const op = "ConnectMongo"

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to MongoDB: %w", op, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: failed to ping MongoDB: %w", op, err)
	}

	sink := NewMongoSink(client.Database(database).Collection(collection))
	sink.client = client
	return sink, nil
}

// NewMongoSink creates a sink over an existing collection.
func NewMongoSink(store DataStore) *MongoSink {
	return &MongoSink{
		store: store,
		log:   logger.WithComponent("export-mongo"),
	}
}

// Write implements Sink.
func (s *MongoSink) Write(ctx context.Context, rows []Row) error {
	const op = "MongoSink.Write"

	for _, r := range rows {
		doc := auditDocument{
			MessageID:   r.MessageID,
			Subject:     r.Subject,
			Status:      r.Status,
			FormTotal:   r.FormTotal,
			SumReceipts: r.SumReceipts,
			Matched:     r.Matched,
			Missing:     r.Missing,
			Notes:       r.Notes,
			Error:       r.Error,
			ProcessedAt: r.ProcessedAt.UTC(),
			Result:      r.Result,
		}
		if _, err := s.store.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("%s: failed to insert %s: %w", op, r.MessageID, err)
		}
	}

	s.log.Info().Int("rows", len(rows)).Msg("Stored audit documents")
	return nil
}

// Close implements Sink.
func (s *MongoSink) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
