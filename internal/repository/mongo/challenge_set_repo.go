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

const challengeSetCollectionName = "challenge_sets"

// mongoChallengeSetRepository implements repository.ChallengeSetRepository
type mongoChallengeSetRepository struct {
	collection *mongo.Collection
}

// NewMongoChallengeSetRepository creates a new ChallengeSet repository backed by MongoDB.
func NewMongoChallengeSetRepository(db *mongo.Database) repository.ChallengeSetRepository {
	return &mongoChallengeSetRepository{
		collection: db.Collection(challengeSetCollectionName),
	}
}

// Create inserts a new challenge set into the database.
func (r *mongoChallengeSetRepository) Create(ctx context.Context, set *domain.ChallengeSet) (primitive.ObjectID, error) {
	if set.Name == "" {
		return primitive.NilObjectID, errors.New("challenge set name is required")
	}

	set.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	set.CreatedAt = now
	set.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, set)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves a challenge set by its ID.
func (r *mongoChallengeSetRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ChallengeSet, error) {
	var set domain.ChallengeSet
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &set, nil
}

// List retrieves all challenge sets, newest first.
func (r *mongoChallengeSetRepository) List(ctx context.Context) ([]domain.ChallengeSet, error) {
	var sets []domain.ChallengeSet

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sets); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}

// Update modifies an existing challenge set.
func (r *mongoChallengeSetRepository) Update(ctx context.Context, set *domain.ChallengeSet) error {
	if set.ID == primitive.NilObjectID {
		return errors.New("challenge set ID is required for update")
	}
	if set.Name == "" {
		return errors.New("challenge set name cannot be empty")
	}

	update := bson.M{
		"$set": bson.M{
			"name":         set.Name,
			"description":  set.Description,
			"durationDays": set.DurationDays,
			"isActive":     set.IsActive,
			"updatedAt":    time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": set.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a challenge set by ID.
func (r *mongoChallengeSetRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureChallengeSetIndexes creates necessary indexes for the challenge_sets collection.
func EnsureChallengeSetIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
