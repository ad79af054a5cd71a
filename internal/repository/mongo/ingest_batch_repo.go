package mongo

import (
	"context"
	"errors"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ingestBatchCollectionName = "ingest_batches"

// mongoIngestBatchRepository implements repository.IngestBatchRepository
type mongoIngestBatchRepository struct {
	collection *mongo.Collection
}

// NewMongoIngestBatchRepository creates a new IngestBatch repository backed by MongoDB.
func NewMongoIngestBatchRepository(db *mongo.Database) repository.IngestBatchRepository {
	return &mongoIngestBatchRepository{
		collection: db.Collection(ingestBatchCollectionName),
	}
}

// Create inserts a new ingest batch record.
func (r *mongoIngestBatchRepository) Create(ctx context.Context, batch *domain.IngestBatch) (primitive.ObjectID, error) {
	if batch.SetID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("ingest batch set ID is required")
	}

	batch.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, batch)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves an ingest batch by its ID.
func (r *mongoIngestBatchRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.IngestBatch, error) {
	var batch domain.IngestBatch
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&batch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// GetBySetID retrieves all ingest batches for a challenge set, newest first.
func (r *mongoIngestBatchRepository) GetBySetID(ctx context.Context, setID primitive.ObjectID) ([]domain.IngestBatch, error) {
	var batches []domain.IngestBatch

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"setId": setID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &batches); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return batches, nil
}

// UpdateStatus changes the lifecycle status of a batch.
func (r *mongoIngestBatchRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.IngestBatchStatus) error {
	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureIngestBatchIndexes creates necessary indexes for the ingest_batches collection.
func EnsureIngestBatchIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "setId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
