package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChallengeTypeStandard is the placeholder type assigned to challenges created
// through the bulk upload pipeline. The manual editor may assign other types.
const ChallengeTypeStandard = "standard"

// ChallengeSet groups the daily challenges of one multi-day program.
type ChallengeSet struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	DurationDays int                `bson:"durationDays" json:"durationDays"` // e.g. 15 for a 15-day program
	CreatedBy    primitive.ObjectID `bson:"createdBy" json:"createdBy"`       // Admin who created the set
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Challenge is the content for one day of a challenge set. Each day carries up
// to two paired challenge slots; bulk upload only ever fills the first one,
// the manual editor can fill both.
type Challenge struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SetID primitive.ObjectID `bson:"setId" json:"setId"`
	// DayNumber orders challenges within a set; unique per (setId, dayNumber).
	DayNumber int    `bson:"dayNumber" json:"dayNumber"`
	Title     string `bson:"title" json:"title"`

	ChallengeText1 string  `bson:"challengeText1" json:"challengeText1"`
	ChallengeType1 string  `bson:"challengeType1" json:"challengeType1"`
	ChallengeText2 *string `bson:"challengeText2,omitempty" json:"challengeText2,omitempty"`
	ChallengeType2 *string `bson:"challengeType2,omitempty" json:"challengeType2,omitempty"`

	VideoURL1     *string `bson:"videoUrl1,omitempty" json:"videoUrl1,omitempty"`
	VideoURL2     *string `bson:"videoUrl2,omitempty" json:"videoUrl2,omitempty"`
	ImageURL1     *string `bson:"imageUrl1,omitempty" json:"imageUrl1,omitempty"`
	ThumbnailURL1 *string `bson:"thumbnailUrl1,omitempty" json:"thumbnailUrl1,omitempty"`
	ImageURL2     *string `bson:"imageUrl2,omitempty" json:"imageUrl2,omitempty"`
	// ImageKey1 is the raw object key behind ImageURL1, kept so the API can
	// presign downloads when the bucket is not public.
	ImageKey1 *string `bson:"imageKey1,omitempty" json:"-"`

	ReflectionQuestion string   `bson:"reflectionQuestion" json:"reflectionQuestion"`
	IntendedInsights   []string `bson:"intendedInsights,omitempty" json:"intendedInsights,omitempty"`

	IsActive  bool      `bson:"isActive" json:"isActive"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
