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

const cohortCollectionName = "cohorts"

// mongoCohortRepository implements repository.CohortRepository
type mongoCohortRepository struct {
	collection *mongo.Collection
}

// NewMongoCohortRepository creates a new Cohort repository backed by MongoDB.
func NewMongoCohortRepository(db *mongo.Database) repository.CohortRepository {
	return &mongoCohortRepository{
		collection: db.Collection(cohortCollectionName),
	}
}

// Create inserts a new cohort into the database.
func (r *mongoCohortRepository) Create(ctx context.Context, cohort *domain.Cohort) (primitive.ObjectID, error) {
	if cohort.Name == "" || cohort.ChallengeSetID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("cohort name and challenge set ID are required")
	}

	cohort.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	cohort.CreatedAt = now
	cohort.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, cohort)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves a cohort by its ID.
func (r *mongoCohortRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Cohort, error) {
	var cohort domain.Cohort
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&cohort)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &cohort, nil
}

// GetByName retrieves a cohort by its unique name.
func (r *mongoCohortRepository) GetByName(ctx context.Context, name string) (*domain.Cohort, error) {
	var cohort domain.Cohort
	err := r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&cohort)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &cohort, nil
}

// List retrieves all cohorts, newest first.
func (r *mongoCohortRepository) List(ctx context.Context) ([]domain.Cohort, error) {
	var cohorts []domain.Cohort

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &cohorts); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return cohorts, nil
}

// Update modifies an existing cohort.
func (r *mongoCohortRepository) Update(ctx context.Context, cohort *domain.Cohort) error {
	if cohort.ID == primitive.NilObjectID {
		return errors.New("cohort ID is required for update")
	}

	update := bson.M{
		"$set": bson.M{
			"name":           cohort.Name,
			"challengeSetId": cohort.ChallengeSetID,
			"startDate":      cohort.StartDate,
			"isActive":       cohort.IsActive,
			"updatedAt":      time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": cohort.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// EnsureCohortIndexes creates necessary indexes for the cohorts collection.
func EnsureCohortIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "challengeSetId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
