package service

import (
	"context"
	"errors"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrChallengeSetNotFound = errors.New("challenge set not found")
	ErrChallengeNotFound    = errors.New("challenge not found for this day")
	ErrInvalidDayNumber     = errors.New("day number is outside the set's duration")
)

// ChallengeDayUpdate carries the editable fields of one challenge day. The
// manual editor can fill both challenge slots, unlike the bulk uploader.
type ChallengeDayUpdate struct {
	Title              string
	ChallengeText1     string
	ChallengeType1     string
	ChallengeText2     *string
	ChallengeType2     *string
	VideoURL1          *string
	VideoURL2          *string
	ReflectionQuestion string
	IntendedInsights   []string
	IsActive           bool
}

// --- Service Interface ---
type ChallengeService interface {
	CreateSet(ctx context.Context, adminID primitive.ObjectID, name, description string, durationDays int) (*domain.ChallengeSet, error)
	GetSet(ctx context.Context, setID primitive.ObjectID) (*domain.ChallengeSet, error)
	ListSets(ctx context.Context) ([]domain.ChallengeSet, error)
	DeleteSet(ctx context.Context, setID primitive.ObjectID) error

	GetDay(ctx context.Context, setID primitive.ObjectID, dayNumber int) (*domain.Challenge, error)
	ListDays(ctx context.Context, setID primitive.ObjectID) ([]domain.Challenge, error)
	UpdateDay(ctx context.Context, setID primitive.ObjectID, dayNumber int, update ChallengeDayUpdate) (*domain.Challenge, error)
}

// --- Service Implementation ---

type challengeService struct {
	setRepo       repository.ChallengeSetRepository
	challengeRepo repository.ChallengeRepository
}

// NewChallengeService creates a new instance of challengeService.
func NewChallengeService(setRepo repository.ChallengeSetRepository, challengeRepo repository.ChallengeRepository) ChallengeService {
	return &challengeService{
		setRepo:       setRepo,
		challengeRepo: challengeRepo,
	}
}

// CreateSet creates an empty challenge set; days are added by the manual
// editor or the bulk uploader.
func (s *challengeService) CreateSet(ctx context.Context, adminID primitive.ObjectID, name, description string, durationDays int) (*domain.ChallengeSet, error) {
	if name == "" {
		return nil, errors.New("challenge set name is required")
	}
	if durationDays < 1 {
		return nil, errors.New("duration must be at least one day")
	}

	set := &domain.ChallengeSet{
		Name:         name,
		Description:  description,
		DurationDays: durationDays,
		CreatedBy:    adminID,
		IsActive:     true,
	}

	id, err := s.setRepo.Create(ctx, set)
	if err != nil {
		return nil, err
	}
	set.ID = id
	return set, nil
}

func (s *challengeService) GetSet(ctx context.Context, setID primitive.ObjectID) (*domain.ChallengeSet, error) {
	set, err := s.setRepo.GetByID(ctx, setID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeSetNotFound
		}
		return nil, err
	}
	return set, nil
}

func (s *challengeService) ListSets(ctx context.Context) ([]domain.ChallengeSet, error) {
	return s.setRepo.List(ctx)
}

// DeleteSet removes the set and every challenge that belongs to it.
func (s *challengeService) DeleteSet(ctx context.Context, setID primitive.ObjectID) error {
	challenges, err := s.challengeRepo.GetBySetID(ctx, setID)
	if err != nil {
		return err
	}
	for _, c := range challenges {
		if err := s.challengeRepo.Delete(ctx, c.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	if err := s.setRepo.Delete(ctx, setID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChallengeSetNotFound
		}
		return err
	}
	return nil
}

func (s *challengeService) GetDay(ctx context.Context, setID primitive.ObjectID, dayNumber int) (*domain.Challenge, error) {
	challenge, err := s.challengeRepo.GetBySetAndDay(ctx, setID, dayNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return challenge, nil
}

func (s *challengeService) ListDays(ctx context.Context, setID primitive.ObjectID) ([]domain.Challenge, error) {
	return s.challengeRepo.GetBySetID(ctx, setID)
}

// UpdateDay edits one day of a set, creating the day if it does not exist yet.
func (s *challengeService) UpdateDay(ctx context.Context, setID primitive.ObjectID, dayNumber int, update ChallengeDayUpdate) (*domain.Challenge, error) {
	set, err := s.GetSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if dayNumber < 1 || dayNumber > set.DurationDays {
		return nil, ErrInvalidDayNumber
	}
	if update.Title == "" {
		return nil, errors.New("challenge title is required")
	}

	challengeType := update.ChallengeType1
	if challengeType == "" {
		challengeType = domain.ChallengeTypeStandard
	}

	existing, err := s.challengeRepo.GetBySetAndDay(ctx, setID, dayNumber)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	challenge := &domain.Challenge{
		SetID:              setID,
		DayNumber:          dayNumber,
		Title:              update.Title,
		ChallengeText1:     update.ChallengeText1,
		ChallengeType1:     challengeType,
		ChallengeText2:     update.ChallengeText2,
		ChallengeType2:     update.ChallengeType2,
		VideoURL1:          update.VideoURL1,
		VideoURL2:          update.VideoURL2,
		ReflectionQuestion: update.ReflectionQuestion,
		IntendedInsights:   update.IntendedInsights,
		IsActive:           update.IsActive,
	}

	if existing == nil {
		id, err := s.challengeRepo.Create(ctx, challenge)
		if err != nil {
			return nil, err
		}
		challenge.ID = id
		return challenge, nil
	}

	// Manual edits keep the images uploaded by the bulk pipeline.
	challenge.ID = existing.ID
	challenge.ImageURL1 = existing.ImageURL1
	challenge.ImageKey1 = existing.ImageKey1
	challenge.ThumbnailURL1 = existing.ThumbnailURL1
	challenge.ImageURL2 = existing.ImageURL2

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}
