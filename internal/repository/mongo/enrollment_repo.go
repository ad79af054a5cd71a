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

const enrollmentCollectionName = "enrollments"

// mongoEnrollmentRepository implements repository.EnrollmentRepository
type mongoEnrollmentRepository struct {
	collection *mongo.Collection
}

// NewMongoEnrollmentRepository creates a new Enrollment repository backed by MongoDB.
func NewMongoEnrollmentRepository(db *mongo.Database) repository.EnrollmentRepository {
	return &mongoEnrollmentRepository{
		collection: db.Collection(enrollmentCollectionName),
	}
}

// Create inserts a new enrollment into the database.
func (r *mongoEnrollmentRepository) Create(ctx context.Context, enrollment *domain.Enrollment) (primitive.ObjectID, error) {
	if enrollment.UserID == primitive.NilObjectID || enrollment.CohortID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("enrollment user ID and cohort ID are required")
	}

	enrollment.ID = primitive.NewObjectID()
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, enrollment)
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

// GetByUserID retrieves all enrollments for a user.
func (r *mongoEnrollmentRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Enrollment, error) {
	var enrollments []domain.Enrollment

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &enrollments); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return enrollments, nil
}

// GetByUserAndCohort retrieves a single enrollment for a (user, cohort) pair.
func (r *mongoEnrollmentRepository) GetByUserAndCohort(ctx context.Context, userID, cohortID primitive.ObjectID) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	filter := bson.M{"userId": userID, "cohortId": cohortID}

	err := r.collection.FindOne(ctx, filter).Decode(&enrollment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &enrollment, nil
}

// EnsureEnrollmentIndexes creates necessary indexes for the enrollments collection.
func EnsureEnrollmentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "cohortId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
