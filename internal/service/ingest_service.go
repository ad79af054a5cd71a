package service

import (
	"context"
	"errors"
	"log"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/ingest"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrBatchNotFound          = errors.New("ingest batch not found")
	ErrBatchAlreadyRolledBack = errors.New("ingest batch was already rolled back")
	ErrNothingToUpload        = errors.New("the CSV produced no usable rows")
)

// ValidationReport is the outcome of the validate-only pass: parse and
// extract results side by side, with no storage or database writes.
type ValidationReport struct {
	Rows     []ingest.Row   `json:"rows"`
	Errors   []ingest.Issue `json:"errors"`
	Warnings []ingest.Issue `json:"warnings"`
	// ImageCount is how many archive entries passed signature validation.
	ImageCount int `json:"imageCount"`
}

// UploadReport is the outcome of an executed bulk upload.
type UploadReport struct {
	BatchID  string              `json:"batchId,omitempty"`
	Summary  ingest.BatchSummary `json:"summary"`
	View     ingest.SummaryView  `json:"view"`
	Warnings []ingest.Issue      `json:"warnings,omitempty"`
}

// --- Service Interface ---
type IngestService interface {
	// Validate runs the CSV ingestor and archive extractor without touching
	// storage or the challenge store.
	Validate(ctx context.Context, csvData, zipData []byte) (*ValidationReport, error)
	// Execute validates and, if no hard errors remain, runs the upload
	// orchestrator and records an ingest batch.
	Execute(ctx context.Context, adminID, setID primitive.ObjectID, csvData, zipData []byte, onProgress ingest.ProgressFunc) (*UploadReport, error)
	// Rollback deletes the challenges persisted by a past batch.
	Rollback(ctx context.Context, batchID primitive.ObjectID) (*ingest.RollbackResult, error)
	ListBatches(ctx context.Context, setID primitive.ObjectID) ([]domain.IngestBatch, error)
	SampleCSV() []byte
}

// --- Service Implementation ---

type ingestService struct {
	uploader   *ingest.Uploader
	cohortRepo repository.CohortRepository
	batchRepo  repository.IngestBatchRepository
}

// NewIngestService creates a new instance of ingestService.
func NewIngestService(
	uploader *ingest.Uploader,
	cohortRepo repository.CohortRepository,
	batchRepo repository.IngestBatchRepository,
) IngestService {
	return &ingestService{
		uploader:   uploader,
		cohortRepo: cohortRepo,
		batchRepo:  batchRepo,
	}
}

// runPipeline executes the two parse stages and merges their diagnostics.
func (s *ingestService) runPipeline(ctx context.Context, csvData, zipData []byte) (ingest.ParseResult, ingest.ExtractResult) {
	cohorts, err := s.cohortRepo.List(ctx)
	if err != nil {
		// Cohort lookup failing only disables the unknown-cohort warning.
		log.Printf("WARN: could not list cohorts for CSV validation: %v", err)
		cohorts = nil
	}

	parsed := ingest.ParseChallengeCSV(csvData, cohorts)

	required := make([]string, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		required = append(required, row.ImageFileName)
	}

	extracted := ingest.ExtractImages(zipData, required)
	return parsed, extracted
}

func (s *ingestService) Validate(ctx context.Context, csvData, zipData []byte) (*ValidationReport, error) {
	parsed, extracted := s.runPipeline(ctx, csvData, zipData)

	report := &ValidationReport{
		Rows:       parsed.Rows,
		Errors:     append(parsed.Errors, extracted.Errors...),
		Warnings:   append(parsed.Warnings, extracted.Warnings...),
		ImageCount: len(extracted.Images),
	}
	return report, nil
}

func (s *ingestService) Execute(ctx context.Context, adminID, setID primitive.ObjectID, csvData, zipData []byte, onProgress ingest.ProgressFunc) (*UploadReport, error) {
	parsed, extracted := s.runPipeline(ctx, csvData, zipData)

	if len(parsed.Errors) > 0 || len(extracted.Errors) > 0 {
		// Hard errors must be resolved before anything is written.
		return &UploadReport{
			Summary: ingest.BatchSummary{
				Total:  len(parsed.Rows),
				Failed: len(parsed.Rows),
				Errors: issueMessages(append(parsed.Errors, extracted.Errors...)),
			},
			Warnings: append(parsed.Warnings, extracted.Warnings...),
		}, nil
	}
	if len(parsed.Rows) == 0 {
		return nil, ErrNothingToUpload
	}

	summary := s.uploader.BulkUpload(ctx, parsed.Rows, extracted.Images, setID.Hex(), onProgress)

	report := &UploadReport{
		Summary:  summary,
		View:     ingest.Summarize(summary),
		Warnings: append(parsed.Warnings, extracted.Warnings...),
	}

	batch := &domain.IngestBatch{
		SetID:     setID,
		CreatedBy: adminID,
		Status:    domain.IngestBatchCompleted,
		Total:     summary.Total,
		Completed: summary.Completed,
		Failed:    summary.Failed,
		Errors:    summary.Errors,
	}
	if !summary.Success {
		batch.Status = domain.IngestBatchPartial
	}
	for _, result := range summary.Results {
		if result.Success && result.ChallengeID != "" {
			if id, err := primitive.ObjectIDFromHex(result.ChallengeID); err == nil {
				batch.ChallengeIDs = append(batch.ChallengeIDs, id)
			}
		}
	}

	batchID, err := s.batchRepo.Create(ctx, batch)
	if err != nil {
		// The upload itself succeeded; losing the audit record is not worth
		// failing the request over.
		log.Printf("ERROR: could not record ingest batch for set %s: %v", setID.Hex(), err)
	} else {
		report.BatchID = batchID.Hex()
	}

	return report, nil
}

func (s *ingestService) Rollback(ctx context.Context, batchID primitive.ObjectID) (*ingest.RollbackResult, error) {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	if batch.Status == domain.IngestBatchRolledBack {
		return nil, ErrBatchAlreadyRolledBack
	}

	// Rebuild row results from the recorded challenge ids; the uploader's
	// rollback only needs id + success.
	results := make([]ingest.RowResult, 0, len(batch.ChallengeIDs))
	for _, id := range batch.ChallengeIDs {
		results = append(results, ingest.RowResult{
			Success:     true,
			ChallengeID: id.Hex(),
		})
	}

	rollback := s.uploader.Rollback(ctx, results)

	if err := s.batchRepo.UpdateStatus(ctx, batchID, domain.IngestBatchRolledBack); err != nil {
		rollback.Errors = append(rollback.Errors, "challenges deleted but batch status update failed: "+err.Error())
	}

	return &rollback, nil
}

func (s *ingestService) ListBatches(ctx context.Context, setID primitive.ObjectID) ([]domain.IngestBatch, error) {
	return s.batchRepo.GetBySetID(ctx, setID)
}

func (s *ingestService) SampleCSV() []byte {
	return ingest.SampleCSV()
}

func issueMessages(issues []ingest.Issue) []string {
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}
