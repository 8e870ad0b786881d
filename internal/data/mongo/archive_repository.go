// Package mongo provides the MongoDB implementation of the match archive.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bank-reconciliation/internal/domain/match"
)

const (
	// ArchiveCollectionName is the name of the match archive collection
	ArchiveCollectionName = "match_archive"
)

// ArchiveRepository implements the match.ArchiveRepository interface for MongoDB
type ArchiveRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewArchiveRepository creates a new MongoDB match archive repository
func NewArchiveRepository(logger *slog.Logger, db *mongo.Database) match.ArchiveRepository {
	return &ArchiveRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one committed match operation. The archive is append-only;
// there is no update path.
func (r *ArchiveRepository) Append(ctx context.Context, entry match.ArchiveEntry) error {
	collection := r.db.Collection(ArchiveCollectionName)

	if _, err := collection.InsertOne(ctx, entry); err != nil {
		r.logger.Error("Failed to append match archive entry",
			"scenario", string(entry.Scenario),
			"pairs", len(entry.Pairs),
			"error", err)
		return fmt.Errorf("failed to append match archive entry: %w", err)
	}

	return nil
}

// List retrieves paginated archive entries, newest first
func (r *ArchiveRepository) List(ctx context.Context, limit, offset int) ([]match.ArchiveEntry, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	opts := options.Find().
		SetSort(bson.M{"recorded_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to list match archive entries", "error", err)
		return nil, fmt.Errorf("failed to list match archive entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []match.ArchiveEntry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode match archive entries", "error", err)
		return nil, fmt.Errorf("failed to decode match archive entries: %w", err)
	}

	return entries, nil
}

// Count returns the total number of archived operations
func (r *ArchiveRepository) Count(ctx context.Context) (int64, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		r.logger.Error("Failed to count match archive entries", "error", err)
		return 0, fmt.Errorf("failed to count match archive entries: %w", err)
	}

	return count, nil
}

// Clear drops every archived entry. Used only by the administrative reset.
func (r *ArchiveRepository) Clear(ctx context.Context) error {
	collection := r.db.Collection(ArchiveCollectionName)

	if _, err := collection.DeleteMany(ctx, bson.M{}); err != nil {
		r.logger.Error("Failed to clear match archive", "error", err)
		return fmt.Errorf("failed to clear match archive: %w", err)
	}

	return nil
}
