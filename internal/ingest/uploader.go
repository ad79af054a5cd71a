package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"path"
	"strings"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/metrics"
	"habitloop/habit-app/internal/repository"
	"habitloop/habit-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrMissingSetID = errors.New("challenge set id is required")
	ErrInvalidSetID = errors.New("challenge set id is not a valid object id")
)

// objectKeyFeature namespaces all bulk-upload objects in the bucket.
const objectKeyFeature = "challenge-sets"

// Uploader walks validated rows strictly in order, uploads each row's image
// and upserts the corresponding challenge. Rows fail individually; the batch
// always runs to the end unless the context is canceled.
//
// Sequential processing is load-bearing: progress events are consumed in
// order by the admin UI, and parallel upserts against the same
// (setID, dayNumber) key would race.
type Uploader struct {
	challenges  repository.ChallengeRepository
	files       storage.FileStorage
	collector   *metrics.IngestCollector
	thumbnailer *Thumbnailer
}

// NewUploader creates an upload orchestrator. collector and thumbnailer may
// be nil to disable metrics and thumbnail derivation.
func NewUploader(challenges repository.ChallengeRepository, files storage.FileStorage, collector *metrics.IngestCollector, thumbnailer *Thumbnailer) *Uploader {
	return &Uploader{
		challenges:  challenges,
		files:       files,
		collector:   collector,
		thumbnailer: thumbnailer,
	}
}

// BulkUpload processes every row against the target challenge set and returns
// a summary. onProgress may be nil. Cancellation via ctx is checked between
// rows: remaining rows are marked failed and the batch returns early.
func (u *Uploader) BulkUpload(ctx context.Context, rows []Row, images map[string]ExtractedImage, setID string, onProgress ProgressFunc) BatchSummary {
	started := time.Now()

	if setID == "" {
		return u.failWholeBatch(rows, ErrMissingSetID)
	}
	setOID, err := primitive.ObjectIDFromHex(setID)
	if err != nil {
		return u.failWholeBatch(rows, ErrInvalidSetID)
	}

	summary := BatchSummary{Total: len(rows)}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("batch canceled before row %d: %v", row.RowNum, err))
			for j := i; j < len(rows); j++ {
				summary.Results = append(summary.Results, RowResult{
					Index: j,
					Row:   rows[j],
					Error: "batch canceled",
				})
				u.rowProcessed(false)
			}
			break
		}

		result := u.processRow(ctx, i, len(rows), row, images, setID, setOID, onProgress)
		summary.Results = append(summary.Results, result)
		if result.Success {
			summary.Completed++
		}
		u.rowProcessed(result.Success)
	}

	summary.Failed = summary.Total - summary.Completed
	summary.Success = summary.Failed == 0

	if u.collector != nil {
		u.collector.BatchFinished(time.Since(started), summary.Success)
	}
	log.Printf("INFO: bulk upload for set %s finished: %d/%d rows completed", setID, summary.Completed, summary.Total)

	return summary
}

func (u *Uploader) processRow(ctx context.Context, index, total int, row Row, images map[string]ExtractedImage, setID string, setOID primitive.ObjectID, onProgress ProgressFunc) RowResult {
	emit := func(status RowStatus, step RowStep, errMsg string) {
		if onProgress != nil {
			onProgress(ProgressEvent{
				Index:  index,
				Total:  total,
				Row:    row,
				Status: status,
				Step:   step,
				Error:  errMsg,
			})
		}
	}

	result := RowResult{Index: index, Row: row}

	emit(StatusProcessing, StepValidating, "")

	var imageURL, imageKey, thumbnailURL *string
	if row.ImageFileName != "" {
		img, ok := FindImage(images, row.ImageFileName)
		if !ok {
			result.Error = fmt.Sprintf("image %q not found in archive", row.ImageFileName)
			emit(StatusError, StepValidating, result.Error)
			return result
		}

		emit(StatusProcessing, StepUploadingImage, "")

		key := objectKey(setID, row.DayNumber, "challenge-", img.Filename)
		url, err := u.files.Upload(ctx, key, img.MimeType, img.Content)
		if err != nil {
			result.Error = fmt.Sprintf("image upload failed: %v", err)
			emit(StatusError, StepUploadingImage, result.Error)
			return result
		}
		imageURL = &url
		imageKey = &key
		result.ImageUploaded = true
		if u.collector != nil {
			u.collector.ImageUploaded()
		}

		// Thumbnail derivation is best-effort; a decode failure never fails
		// the row.
		if u.thumbnailer != nil {
			if thumbURL, err := u.uploadThumbnail(ctx, setID, row.DayNumber, img); err != nil {
				log.Printf("WARN: thumbnail for %s skipped: %v", img.Filename, err)
			} else {
				thumbnailURL = &thumbURL
			}
		}
	}

	emit(StatusProcessing, StepSavingRecord, "")

	action, challengeID, err := u.upsertChallenge(ctx, setOID, row, imageURL, imageKey, thumbnailURL)
	if err != nil {
		result.Error = fmt.Sprintf("saving challenge failed: %v", err)
		emit(StatusError, StepSavingRecord, result.Error)
		return result
	}

	result.Success = true
	result.Action = action
	result.ChallengeID = challengeID
	emit(StatusCompleted, StepDone, "")
	return result
}

func (u *Uploader) uploadThumbnail(ctx context.Context, setID string, dayNumber int, img ExtractedImage) (string, error) {
	thumb, err := u.thumbnailer.Derive(img)
	if err != nil {
		return "", err
	}
	key := objectKey(setID, dayNumber, "thumb-", img.Filename+".jpg")
	return u.files.Upload(ctx, key, "image/jpeg", thumb)
}

// objectKey builds {feature}/{setId}/day-{n}/{prefix}{timestamp}-{randomId}{ext}
// so repeated uploads of the same filename never collide.
func objectKey(setID string, dayNumber int, prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(
		objectKeyFeature,
		setID,
		fmt.Sprintf("day-%d", dayNumber),
		fmt.Sprintf("%s%d-%s%s", prefix, time.Now().UnixMilli(), uuid.NewString(), ext),
	)
}

func (u *Uploader) upsertChallenge(ctx context.Context, setOID primitive.ObjectID, row Row, imageURL, imageKey, thumbnailURL *string) (RowAction, string, error) {
	var videoURL *string
	if row.VideoURL != "" {
		v := row.VideoURL
		videoURL = &v
	}

	existing, err := u.challenges.GetBySetAndDay(ctx, setOID, row.DayNumber)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", "", err
	}

	challenge := &domain.Challenge{
		SetID:          setOID,
		DayNumber:      row.DayNumber,
		Title:          row.Title,
		ChallengeText1: row.Description,
		ChallengeType1: domain.ChallengeTypeStandard,
		// Bulk upload only ever fills the first challenge slot; the manual
		// editor owns the second one.
		ChallengeText2:     nil,
		ChallengeType2:     nil,
		VideoURL1:          videoURL,
		VideoURL2:          nil,
		ImageURL1:          imageURL,
		ImageKey1:          imageKey,
		ThumbnailURL1:      thumbnailURL,
		ImageURL2:          nil,
		ReflectionQuestion: reflectionQuestionFor(row.Title),
		IntendedInsights:   intendedInsightsFor(row.Title),
		IsActive:           true,
	}

	if existing == nil {
		id, err := u.challenges.Create(ctx, challenge)
		if err != nil {
			return "", "", err
		}
		return ActionCreated, id.Hex(), nil
	}

	challenge.ID = existing.ID
	if err := u.challenges.Update(ctx, challenge); err != nil {
		return "", "", err
	}
	return ActionUpdated, existing.ID.Hex(), nil
}

// Rollback deletes the challenges persisted by the given results. Uploaded
// storage objects are left in place. Deletion errors are aggregated; the
// loop never aborts early.
func (u *Uploader) Rollback(ctx context.Context, results []RowResult) RollbackResult {
	var rollback RollbackResult

	for _, result := range results {
		if !result.Success || result.ChallengeID == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(result.ChallengeID)
		if err != nil {
			rollback.Errors = append(rollback.Errors, fmt.Sprintf("row %d: invalid challenge id %q", result.Row.RowNum, result.ChallengeID))
			continue
		}
		if err := u.challenges.Delete(ctx, id); err != nil {
			rollback.Errors = append(rollback.Errors, fmt.Sprintf("row %d: delete challenge %s: %v", result.Row.RowNum, result.ChallengeID, err))
			continue
		}
		rollback.Deleted++
	}

	return rollback
}

// Summarize computes display-ready aggregates from a batch summary.
func Summarize(summary BatchSummary) SummaryView {
	view := SummaryView{}

	if summary.Total > 0 {
		view.SuccessRate = int(math.Round(float64(summary.Completed) / float64(summary.Total) * 100))
	}

	for _, result := range summary.Results {
		if !result.Success {
			view.FailedRows = append(view.FailedRows, result)
			continue
		}
		switch result.Action {
		case ActionCreated:
			view.Created++
		case ActionUpdated:
			view.Updated++
		}
		if result.ImageUploaded {
			view.WithImage++
		} else {
			view.WithoutImage++
		}
	}

	return view
}

// failWholeBatch returns the uniform summary used when the batch cannot start
// at all: every row is reported failed and the batch error is carried in
// Errors instead of panicking or raising.
func (u *Uploader) failWholeBatch(rows []Row, batchErr error) BatchSummary {
	summary := BatchSummary{
		Total:  len(rows),
		Failed: len(rows),
		Errors: []string{batchErr.Error()},
	}
	for i, row := range rows {
		summary.Results = append(summary.Results, RowResult{
			Index: i,
			Row:   row,
			Error: batchErr.Error(),
		})
	}
	return summary
}

func reflectionQuestionFor(title string) string {
	return fmt.Sprintf("What did you notice about yourself while completing %q?", title)
}

func intendedInsightsFor(title string) []string {
	return []string{fmt.Sprintf("Understand how %q fits into your daily routine.", title)}
}

func (u *Uploader) rowProcessed(success bool) {
	if u.collector != nil {
		u.collector.RowProcessed(success)
	}
}
