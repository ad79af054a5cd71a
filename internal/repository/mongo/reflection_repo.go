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

const reflectionCollectionName = "reflections"

// mongoReflectionRepository implements repository.ReflectionRepository
type mongoReflectionRepository struct {
	collection *mongo.Collection
}

// NewMongoReflectionRepository creates a new Reflection repository backed by MongoDB.
func NewMongoReflectionRepository(db *mongo.Database) repository.ReflectionRepository {
	return &mongoReflectionRepository{
		collection: db.Collection(reflectionCollectionName),
	}
}

// Upsert inserts or replaces the reflection for (user, cohort, day).
func (r *mongoReflectionRepository) Upsert(ctx context.Context, reflection *domain.Reflection) (primitive.ObjectID, error) {
	if reflection.UserID == primitive.NilObjectID || reflection.CohortID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("reflection user ID and cohort ID are required")
	}
	if reflection.DayNumber < 1 {
		return primitive.NilObjectID, errors.New("reflection day number must be positive")
	}

	now := time.Now().UTC()
	filter := bson.M{
		"userId":    reflection.UserID,
		"cohortId":  reflection.CohortID,
		"dayNumber": reflection.DayNumber,
	}
	update := bson.M{
		"$set": bson.M{
			"text":      reflection.Text,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"userId":    reflection.UserID,
			"cohortId":  reflection.CohortID,
			"dayNumber": reflection.DayNumber,
			"createdAt": now,
		},
	}

	opts := options.Update().SetUpsert(true)
	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return primitive.NilObjectID, err
	}

	if result.UpsertedID != nil {
		if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
			return id, nil
		}
	}

	// Updated an existing document; fetch its id.
	var existing domain.Reflection
	if err := r.collection.FindOne(ctx, filter).Decode(&existing); err != nil {
		return primitive.NilObjectID, err
	}
	return existing.ID, nil
}

// GetByUserAndCohort retrieves all reflections of a user within a cohort,
// ordered by day number.
func (r *mongoReflectionRepository) GetByUserAndCohort(ctx context.Context, userID, cohortID primitive.ObjectID) ([]domain.Reflection, error) {
	var reflections []domain.Reflection
	filter := bson.M{"userId": userID, "cohortId": cohortID}

	findOptions := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &reflections); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return reflections, nil
}

// EnsureReflectionIndexes creates necessary indexes for the reflections collection.
func EnsureReflectionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "cohortId", Value: 1},
				{Key: "dayNumber", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
