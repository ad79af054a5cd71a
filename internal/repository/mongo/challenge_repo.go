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

const challengeCollectionName = "challenges"

// mongoChallengeRepository implements repository.ChallengeRepository
type mongoChallengeRepository struct {
	collection *mongo.Collection
}

// NewMongoChallengeRepository creates a new Challenge repository backed by MongoDB.
func NewMongoChallengeRepository(db *mongo.Database) repository.ChallengeRepository {
	return &mongoChallengeRepository{
		collection: db.Collection(challengeCollectionName),
	}
}

// Create inserts a new daily challenge into the database.
func (r *mongoChallengeRepository) Create(ctx context.Context, challenge *domain.Challenge) (primitive.ObjectID, error) {
	if challenge.Title == "" || challenge.SetID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("challenge title and set ID are required")
	}
	if challenge.DayNumber < 1 {
		return primitive.NilObjectID, errors.New("challenge day number must be positive")
	}

	challenge.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	challenge.CreatedAt = now
	challenge.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, challenge)
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

// GetByID retrieves a challenge by its ID.
func (r *mongoChallengeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Challenge, error) {
	var challenge domain.Challenge
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&challenge)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

// GetBySetAndDay retrieves the challenge for a specific day of a set.
func (r *mongoChallengeRepository) GetBySetAndDay(ctx context.Context, setID primitive.ObjectID, dayNumber int) (*domain.Challenge, error) {
	var challenge domain.Challenge
	filter := bson.M{"setId": setID, "dayNumber": dayNumber}

	err := r.collection.FindOne(ctx, filter).Decode(&challenge)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

// GetBySetID retrieves all challenges of a set, ordered by day number.
func (r *mongoChallengeRepository) GetBySetID(ctx context.Context, setID primitive.ObjectID) ([]domain.Challenge, error) {
	var challenges []domain.Challenge
	filter := bson.M{"setId": setID}

	findOptions := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &challenges); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return challenges, nil
}

// Update modifies an existing challenge. The SetID and DayNumber keys are not
// changed by an update; moving a challenge to another day is a delete+create.
func (r *mongoChallengeRepository) Update(ctx context.Context, challenge *domain.Challenge) error {
	if challenge.ID == primitive.NilObjectID {
		return errors.New("challenge ID is required for update")
	}
	if challenge.Title == "" {
		return errors.New("challenge title cannot be empty")
	}

	filter := bson.M{"_id": challenge.ID}
	update := bson.M{
		"$set": bson.M{
			"title":              challenge.Title,
			"challengeText1":     challenge.ChallengeText1,
			"challengeType1":     challenge.ChallengeType1,
			"challengeText2":     challenge.ChallengeText2,
			"challengeType2":     challenge.ChallengeType2,
			"videoUrl1":          challenge.VideoURL1,
			"videoUrl2":          challenge.VideoURL2,
			"imageUrl1":          challenge.ImageURL1,
			"thumbnailUrl1":      challenge.ThumbnailURL1,
			"imageUrl2":          challenge.ImageURL2,
			"imageKey1":          challenge.ImageKey1,
			"reflectionQuestion": challenge.ReflectionQuestion,
			"intendedInsights":   challenge.IntendedInsights,
			"isActive":           challenge.IsActive,
			"updatedAt":          time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a challenge by ID.
func (r *mongoChallengeRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureChallengeIndexes creates necessary indexes for the challenges collection.
func EnsureChallengeIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One challenge per day per set; this backs the bulk upsert.
			Keys:    bson.D{{Key: "setId", Value: 1}, {Key: "dayNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
