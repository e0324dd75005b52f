// Package mongodb implements MongoDB adapters for the ticket pipeline.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ticket_server/core/port/out"
)

const collectionResponses = "ticket_responses"

// ResponseStore persists generated replies for audit and similarity search.
// One document per (ticket, source) pair; regenerated replies replace the
// earlier version.
type ResponseStore struct {
	collection *mongo.Collection
}

func NewResponseStore(db *mongo.Database) *ResponseStore {
	return &ResponseStore{collection: db.Collection(collectionResponses)}
}

// EnsureIndexes creates the indexes the store and the similarity searcher
// depend on.
func (s *ResponseStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "ticketId", Value: 1},
				{Key: "source", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
	}
	_, err := s.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("ensure response indexes: %w", err)
	}
	return nil
}

func (s *ResponseStore) SaveResponse(ctx context.Context, rec *out.ResponseRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	filter := bson.M{"ticketId": rec.TicketID, "source": rec.Source}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, filter, rec, opts); err != nil {
		return fmt.Errorf("save response for ticket %s: %w", rec.TicketID, err)
	}
	return nil
}
