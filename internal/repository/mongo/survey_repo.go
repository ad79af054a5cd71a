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

const surveyCollectionName = "survey_responses"

// mongoSurveyRepository implements repository.SurveyRepository
type mongoSurveyRepository struct {
	collection *mongo.Collection
}

// NewMongoSurveyRepository creates a new Survey repository backed by MongoDB.
func NewMongoSurveyRepository(db *mongo.Database) repository.SurveyRepository {
	return &mongoSurveyRepository{
		collection: db.Collection(surveyCollectionName),
	}
}

// Create inserts a new survey response into the database.
func (r *mongoSurveyRepository) Create(ctx context.Context, response *domain.SurveyResponse) (primitive.ObjectID, error) {
	if response.UserID == primitive.NilObjectID || response.CohortID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("survey response user ID and cohort ID are required")
	}
	if response.Phase != domain.SurveyPhasePre && response.Phase != domain.SurveyPhasePost {
		return primitive.NilObjectID, errors.New("survey phase must be pre or post")
	}

	response.ID = primitive.NewObjectID()
	response.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, response)
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

// GetByUserAndCohort retrieves all survey responses of a user within a cohort.
func (r *mongoSurveyRepository) GetByUserAndCohort(ctx context.Context, userID, cohortID primitive.ObjectID) ([]domain.SurveyResponse, error) {
	var responses []domain.SurveyResponse
	filter := bson.M{"userId": userID, "cohortId": cohortID}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &responses); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return responses, nil
}

// GetByPhase retrieves the response for one survey phase, or ErrNotFound.
func (r *mongoSurveyRepository) GetByPhase(ctx context.Context, userID, cohortID primitive.ObjectID, phase domain.SurveyPhase) (*domain.SurveyResponse, error) {
	var response domain.SurveyResponse
	filter := bson.M{"userId": userID, "cohortId": cohortID, "phase": phase}

	err := r.collection.FindOne(ctx, filter).Decode(&response)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &response, nil
}

// EnsureSurveyIndexes creates necessary indexes for the survey_responses collection.
func EnsureSurveyIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "cohortId", Value: 1},
				{Key: "phase", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
