package service

import (
	"context"
	"errors"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/ingest"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrCohortNotFound      = errors.New("cohort not found")
	ErrCohortNameTaken     = errors.New("a cohort with this name already exists")
	ErrCohortNameInvalid   = errors.New("cohort name may only contain letters, digits, underscores and hyphens, max 50 characters")
	ErrAlreadyEnrolled     = errors.New("participant is already enrolled in this cohort")
	ErrParticipantNotFound = errors.New("participant user not found")
)

// --- Service Interface ---
type CohortService interface {
	CreateCohort(ctx context.Context, name string, setID primitive.ObjectID, startDate time.Time) (*domain.Cohort, error)
	GetCohort(ctx context.Context, cohortID primitive.ObjectID) (*domain.Cohort, error)
	ListCohorts(ctx context.Context) ([]domain.Cohort, error)
	SetActive(ctx context.Context, cohortID primitive.ObjectID, active bool) (*domain.Cohort, error)
	Enroll(ctx context.Context, userID, cohortID primitive.ObjectID) (*domain.Enrollment, error)
}

// --- Service Implementation ---

type cohortService struct {
	cohortRepo     repository.CohortRepository
	setRepo        repository.ChallengeSetRepository
	userRepo       repository.UserRepository
	enrollmentRepo repository.EnrollmentRepository
}

// NewCohortService creates a new instance of cohortService.
func NewCohortService(
	cohortRepo repository.CohortRepository,
	setRepo repository.ChallengeSetRepository,
	userRepo repository.UserRepository,
	enrollmentRepo repository.EnrollmentRepository,
) CohortService {
	return &cohortService{
		cohortRepo:     cohortRepo,
		setRepo:        setRepo,
		userRepo:       userRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// CreateCohort validates the name with the same rules the CSV ingestor
// applies, so cohorts referenced from bulk uploads always resolve.
func (s *cohortService) CreateCohort(ctx context.Context, name string, setID primitive.ObjectID, startDate time.Time) (*domain.Cohort, error) {
	if !ingest.ValidCohortName(name) {
		return nil, ErrCohortNameInvalid
	}

	if _, err := s.setRepo.GetByID(ctx, setID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeSetNotFound
		}
		return nil, err
	}

	cohort := &domain.Cohort{
		Name:           name,
		ChallengeSetID: setID,
		StartDate:      startDate.UTC(),
		IsActive:       true,
	}

	id, err := s.cohortRepo.Create(ctx, cohort)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCohortNameTaken
		}
		return nil, err
	}
	cohort.ID = id
	return cohort, nil
}

func (s *cohortService) GetCohort(ctx context.Context, cohortID primitive.ObjectID) (*domain.Cohort, error) {
	cohort, err := s.cohortRepo.GetByID(ctx, cohortID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCohortNotFound
		}
		return nil, err
	}
	return cohort, nil
}

func (s *cohortService) ListCohorts(ctx context.Context) ([]domain.Cohort, error) {
	return s.cohortRepo.List(ctx)
}

// SetActive toggles whether the cohort is open to participants.
func (s *cohortService) SetActive(ctx context.Context, cohortID primitive.ObjectID, active bool) (*domain.Cohort, error) {
	cohort, err := s.GetCohort(ctx, cohortID)
	if err != nil {
		return nil, err
	}

	cohort.IsActive = active
	if err := s.cohortRepo.Update(ctx, cohort); err != nil {
		return nil, err
	}
	return cohort, nil
}

// Enroll adds a participant to a cohort.
func (s *cohortService) Enroll(ctx context.Context, userID, cohortID primitive.ObjectID) (*domain.Enrollment, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	if !user.IsParticipant() {
		return nil, errors.New("only participants can enroll in cohorts")
	}

	if _, err := s.GetCohort(ctx, cohortID); err != nil {
		return nil, err
	}

	enrollment := &domain.Enrollment{
		UserID:   userID,
		CohortID: cohortID,
		JoinedAt: time.Now().UTC(),
	}

	id, err := s.enrollmentRepo.Create(ctx, enrollment)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, err
	}
	enrollment.ID = id
	return enrollment, nil
}
