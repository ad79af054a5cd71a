package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reflection is a participant's free-text answer to a day's reflection
// question. One per (user, cohort, day); resubmitting replaces the text.
type Reflection struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	CohortID  primitive.ObjectID `bson:"cohortId" json:"cohortId"`
	DayNumber int                `bson:"dayNumber" json:"dayNumber"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SurveyPhase distinguishes the pre-program survey from the post-program one.
type SurveyPhase string

const (
	SurveyPhasePre  SurveyPhase = "pre"
	SurveyPhasePost SurveyPhase = "post"
)

// SurveyResponse stores a participant's answers for one survey phase.
// One per (user, cohort, phase).
type SurveyResponse struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	CohortID  primitive.ObjectID `bson:"cohortId" json:"cohortId"`
	Phase     SurveyPhase        `bson:"phase" json:"phase"`
	Answers   map[string]string  `bson:"answers" json:"answers"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
