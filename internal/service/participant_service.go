package service

import (
	"context"
	"errors"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/repository"
	"habitloop/habit-app/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrNotEnrolled          = errors.New("participant is not enrolled in any cohort")
	ErrCohortNotStarted     = errors.New("the cohort has not started yet")
	ErrCohortFinished       = errors.New("the cohort program is over")
	ErrReflectionTooShort   = errors.New("reflection text is required")
	ErrReflectionTooLong    = errors.New("reflection text exceeds 2000 characters")
	ErrSurveyAlreadyDone    = errors.New("survey for this phase was already submitted")
	ErrSurveyAnswersMissing = errors.New("survey answers are required")
)

const maxReflectionLen = 2000

// DailyChallenge is the participant-facing view of today's content.
type DailyChallenge struct {
	Cohort    domain.Cohort    `json:"cohort"`
	DayNumber int              `json:"dayNumber"`
	Challenge domain.Challenge `json:"challenge"`
}

// --- Service Interface ---
type ParticipantService interface {
	// TodaysChallenge resolves the participant's active cohort, computes the
	// current program day from the cohort start date, and returns that day's
	// challenge.
	TodaysChallenge(ctx context.Context, userID primitive.ObjectID) (*DailyChallenge, error)
	SubmitReflection(ctx context.Context, userID primitive.ObjectID, dayNumber int, text string) (*domain.Reflection, error)
	ListReflections(ctx context.Context, userID primitive.ObjectID) ([]domain.Reflection, error)
	SubmitSurvey(ctx context.Context, userID primitive.ObjectID, phase domain.SurveyPhase, answers map[string]string) (*domain.SurveyResponse, error)
	ListSurveys(ctx context.Context, userID primitive.ObjectID) ([]domain.SurveyResponse, error)
}

// --- Service Implementation ---

type participantService struct {
	cohortRepo     repository.CohortRepository
	challengeRepo  repository.ChallengeRepository
	enrollmentRepo repository.EnrollmentRepository
	reflectionRepo repository.ReflectionRepository
	surveyRepo     repository.SurveyRepository
	fileStorage    storage.FileStorage
	now            func() time.Time
}

// NewParticipantService creates a new instance of participantService.
func NewParticipantService(
	cohortRepo repository.CohortRepository,
	challengeRepo repository.ChallengeRepository,
	enrollmentRepo repository.EnrollmentRepository,
	reflectionRepo repository.ReflectionRepository,
	surveyRepo repository.SurveyRepository,
	fileStorage storage.FileStorage,
) ParticipantService {
	return &participantService{
		cohortRepo:     cohortRepo,
		challengeRepo:  challengeRepo,
		enrollmentRepo: enrollmentRepo,
		reflectionRepo: reflectionRepo,
		surveyRepo:     surveyRepo,
		fileStorage:    fileStorage,
		now:            time.Now,
	}
}

// activeCohort finds the participant's current cohort. Participants usually
// belong to a single active cohort; the first active one wins.
func (s *participantService) activeCohort(ctx context.Context, userID primitive.ObjectID) (*domain.Cohort, error) {
	enrollments, err := s.enrollmentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, enrollment := range enrollments {
		cohort, err := s.cohortRepo.GetByID(ctx, enrollment.CohortID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if cohort.IsActive {
			return cohort, nil
		}
	}
	return nil, ErrNotEnrolled
}

// CurrentDayNumber computes the 1-based program day for a cohort at the given
// time. Day 1 is the start date itself.
func CurrentDayNumber(cohort *domain.Cohort, at time.Time) int {
	start := cohort.StartDate.UTC().Truncate(24 * time.Hour)
	today := at.UTC().Truncate(24 * time.Hour)
	return int(today.Sub(start).Hours()/24) + 1
}

func (s *participantService) TodaysChallenge(ctx context.Context, userID primitive.ObjectID) (*DailyChallenge, error) {
	cohort, err := s.activeCohort(ctx, userID)
	if err != nil {
		return nil, err
	}

	day := CurrentDayNumber(cohort, s.now())
	if day < 1 {
		return nil, ErrCohortNotStarted
	}

	challenge, err := s.challengeRepo.GetBySetAndDay(ctx, cohort.ChallengeSetID, day)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCohortFinished
		}
		return nil, err
	}

	daily := &DailyChallenge{
		Cohort:    *cohort,
		DayNumber: day,
		Challenge: *challenge,
	}

	// When the bucket is private the stored URL is not directly fetchable;
	// presign a short-lived download URL from the raw object key instead.
	if challenge.ImageKey1 != nil && s.fileStorage != nil {
		if signed, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, *challenge.ImageKey1, storage.DefaultPresignedURLExpiry); err == nil {
			daily.Challenge.ImageURL1 = &signed
		}
	}

	return daily, nil
}

func (s *participantService) SubmitReflection(ctx context.Context, userID primitive.ObjectID, dayNumber int, text string) (*domain.Reflection, error) {
	if text == "" {
		return nil, ErrReflectionTooShort
	}
	if len(text) > maxReflectionLen {
		return nil, ErrReflectionTooLong
	}

	cohort, err := s.activeCohort(ctx, userID)
	if err != nil {
		return nil, err
	}
	if dayNumber < 1 || dayNumber > CurrentDayNumber(cohort, s.now()) {
		return nil, errors.New("cannot submit a reflection for a future day")
	}

	reflection := &domain.Reflection{
		UserID:    userID,
		CohortID:  cohort.ID,
		DayNumber: dayNumber,
		Text:      text,
	}

	id, err := s.reflectionRepo.Upsert(ctx, reflection)
	if err != nil {
		return nil, err
	}
	reflection.ID = id
	return reflection, nil
}

func (s *participantService) ListReflections(ctx context.Context, userID primitive.ObjectID) ([]domain.Reflection, error) {
	cohort, err := s.activeCohort(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.reflectionRepo.GetByUserAndCohort(ctx, userID, cohort.ID)
}

func (s *participantService) SubmitSurvey(ctx context.Context, userID primitive.ObjectID, phase domain.SurveyPhase, answers map[string]string) (*domain.SurveyResponse, error) {
	if len(answers) == 0 {
		return nil, ErrSurveyAnswersMissing
	}

	cohort, err := s.activeCohort(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.surveyRepo.GetByPhase(ctx, userID, cohort.ID, phase); err == nil {
		return nil, ErrSurveyAlreadyDone
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	response := &domain.SurveyResponse{
		UserID:   userID,
		CohortID: cohort.ID,
		Phase:    phase,
		Answers:  answers,
	}

	id, err := s.surveyRepo.Create(ctx, response)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrSurveyAlreadyDone
		}
		return nil, err
	}
	response.ID = id
	return response, nil
}

func (s *participantService) ListSurveys(ctx context.Context, userID primitive.ObjectID) ([]domain.SurveyResponse, error) {
	cohort, err := s.activeCohort(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.surveyRepo.GetByUserAndCohort(ctx, userID, cohort.ID)
}
