package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IngestBatchStatus tracks the lifecycle of one bulk upload.
type IngestBatchStatus string

const (
	IngestBatchCompleted  IngestBatchStatus = "completed"
	IngestBatchPartial    IngestBatchStatus = "completed_with_errors"
	IngestBatchRolledBack IngestBatchStatus = "rolled_back"
)

// IngestBatch records the outcome of one bulk CSV+ZIP upload so that admins
// can audit past uploads and roll one back by id.
type IngestBatch struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SetID     primitive.ObjectID `bson:"setId" json:"setId"`
	CreatedBy primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Status    IngestBatchStatus  `bson:"status" json:"status"`
	Total     int                `bson:"total" json:"total"`
	Completed int                `bson:"completed" json:"completed"`
	Failed    int                `bson:"failed" json:"failed"`
	// Rows persisted by this batch, kept so a rollback can delete them.
	ChallengeIDs []primitive.ObjectID `bson:"challengeIds,omitempty" json:"challengeIds,omitempty"`
	Errors       []string             `bson:"errors,omitempty" json:"errors,omitempty"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}
