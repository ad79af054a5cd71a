package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cohort is a group of participants running through a challenge set together,
// all counting days from the same start date.
type Cohort struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	// Name is unique and restricted to [a-zA-Z0-9_-], max 50 chars, so it can
	// be referenced verbatim from bulk-upload CSV files.
	Name           string             `bson:"name" json:"name"`
	ChallengeSetID primitive.ObjectID `bson:"challengeSetId" json:"challengeSetId"`
	StartDate      time.Time          `bson:"startDate" json:"startDate"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Enrollment links a participant to a cohort.
type Enrollment struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   primitive.ObjectID `bson:"userId" json:"userId"`
	CohortID primitive.ObjectID `bson:"cohortId" json:"cohortId"`
	JoinedAt time.Time          `bson:"joinedAt" json:"joinedAt"`
}
