package repository

import (
	"context"

	"habitloop/habit-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// ChallengeSetRepository defines the interface for interacting with challenge sets.
type ChallengeSetRepository interface {
	Create(ctx context.Context, set *domain.ChallengeSet) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ChallengeSet, error)
	List(ctx context.Context) ([]domain.ChallengeSet, error)
	Update(ctx context.Context, set *domain.ChallengeSet) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ChallengeRepository defines the interface for interacting with daily challenges.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge *domain.Challenge) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Challenge, error)
	// GetBySetAndDay returns the single challenge for a (set, day) pair, or
	// ErrNotFound. The bulk uploader uses it to decide create vs. update.
	GetBySetAndDay(ctx context.Context, setID primitive.ObjectID, dayNumber int) (*domain.Challenge, error)
	GetBySetID(ctx context.Context, setID primitive.ObjectID) ([]domain.Challenge, error)
	Update(ctx context.Context, challenge *domain.Challenge) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CohortRepository defines the interface for interacting with cohorts.
type CohortRepository interface {
	Create(ctx context.Context, cohort *domain.Cohort) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Cohort, error)
	GetByName(ctx context.Context, name string) (*domain.Cohort, error)
	List(ctx context.Context) ([]domain.Cohort, error)
	Update(ctx context.Context, cohort *domain.Cohort) error
}

// EnrollmentRepository links participants to cohorts.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *domain.Enrollment) (primitive.ObjectID, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Enrollment, error)
	GetByUserAndCohort(ctx context.Context, userID, cohortID primitive.ObjectID) (*domain.Enrollment, error)
}

// ReflectionRepository defines the interface for participant reflections.
type ReflectionRepository interface {
	// Upsert inserts or replaces the reflection for (user, cohort, day).
	Upsert(ctx context.Context, reflection *domain.Reflection) (primitive.ObjectID, error)
	GetByUserAndCohort(ctx context.Context, userID, cohortID primitive.ObjectID) ([]domain.Reflection, error)
}

// SurveyRepository defines the interface for pre/post survey responses.
type SurveyRepository interface {
	Create(ctx context.Context, response *domain.SurveyResponse) (primitive.ObjectID, error)
	GetByUserAndCohort(ctx context.Context, userID, cohortID primitive.ObjectID) ([]domain.SurveyResponse, error)
	GetByPhase(ctx context.Context, userID, cohortID primitive.ObjectID, phase domain.SurveyPhase) (*domain.SurveyResponse, error)
}

// IngestBatchRepository records bulk upload outcomes for audit and rollback.
type IngestBatchRepository interface {
	Create(ctx context.Context, batch *domain.IngestBatch) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.IngestBatch, error)
	GetBySetID(ctx context.Context, setID primitive.ObjectID) ([]domain.IngestBatch, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.IngestBatchStatus) error
}
