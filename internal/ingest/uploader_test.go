package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Fakes ---

type fakeChallengeRepo struct {
	byID       map[primitive.ObjectID]*domain.Challenge
	createErr  map[int]error // day number -> error to return on Create
	updateErr  map[int]error
	deleteErr  map[primitive.ObjectID]error
	deletedIDs []primitive.ObjectID
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{
		byID:      make(map[primitive.ObjectID]*domain.Challenge),
		createErr: make(map[int]error),
		updateErr: make(map[int]error),
		deleteErr: make(map[primitive.ObjectID]error),
	}
}

func (f *fakeChallengeRepo) Create(ctx context.Context, c *domain.Challenge) (primitive.ObjectID, error) {
	if err := f.createErr[c.DayNumber]; err != nil {
		return primitive.NilObjectID, err
	}
	id := primitive.NewObjectID()
	stored := *c
	stored.ID = id
	f.byID[id] = &stored
	return id, nil
}

func (f *fakeChallengeRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Challenge, error) {
	if c, ok := f.byID[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeChallengeRepo) GetBySetAndDay(ctx context.Context, setID primitive.ObjectID, dayNumber int) (*domain.Challenge, error) {
	for _, c := range f.byID {
		if c.SetID == setID && c.DayNumber == dayNumber {
			copied := *c
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeChallengeRepo) GetBySetID(ctx context.Context, setID primitive.ObjectID) ([]domain.Challenge, error) {
	var out []domain.Challenge
	for _, c := range f.byID {
		if c.SetID == setID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeChallengeRepo) Update(ctx context.Context, c *domain.Challenge) error {
	if err := f.updateErr[c.DayNumber]; err != nil {
		return err
	}
	if _, ok := f.byID[c.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := *c
	f.byID[c.ID] = &stored
	return nil
}

func (f *fakeChallengeRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

type fakeStorage struct {
	uploads   []string // object keys in upload order
	uploadErr error
}

func (f *fakeStorage) Upload(ctx context.Context, objectKey, contentType string, body []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, objectKey)
	return "https://cdn.example.com/" + objectKey, nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return "https://signed.example.com/" + objectKey, nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, objectKey string) error {
	return nil
}

// --- Helpers ---

func testRows(n int) ([]Row, map[string]ExtractedImage) {
	rows := make([]Row, 0, n)
	images := make(map[string]ExtractedImage)
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("day%d.jpg", i)
		rows = append(rows, Row{
			RowNum:        i + 1,
			CohortName:    "spring-2026",
			DayNumber:     i,
			Title:         fmt.Sprintf("Challenge %d", i),
			Description:   "A perfectly reasonable description.",
			ImageFileName: name,
		})
		images[name] = ExtractedImage{
			Filename: name,
			Content:  []byte{0xFF, 0xD8, 0xFF, 0xE0},
			MimeType: "image/jpeg",
		}
	}
	return rows, images
}

// --- Tests ---

func TestBulkUpload_CreatesChallenges(t *testing.T) {
	repo := newFakeChallengeRepo()
	store := &fakeStorage{}
	uploader := NewUploader(repo, store, nil, nil)

	setID := primitive.NewObjectID()
	rows, images := testRows(3)

	summary := uploader.BulkUpload(context.Background(), rows, images, setID.Hex(), nil)

	if !summary.Success {
		t.Fatalf("expected success, summary: %+v", summary)
	}
	if summary.Completed != 3 || summary.Failed != 0 || summary.Total != 3 {
		t.Fatalf("counts = %d/%d/%d, want 3/0/3", summary.Completed, summary.Failed, summary.Total)
	}
	for _, result := range summary.Results {
		if result.Action != ActionCreated {
			t.Errorf("row %d: action = %q, want created", result.Row.RowNum, result.Action)
		}
		if !result.ImageUploaded {
			t.Errorf("row %d: image not uploaded", result.Row.RowNum)
		}
	}
	if len(store.uploads) != 3 {
		t.Errorf("expected 3 storage uploads, got %d", len(store.uploads))
	}
	for _, key := range store.uploads {
		if !strings.HasPrefix(key, "challenge-sets/"+setID.Hex()+"/day-") {
			t.Errorf("object key %q does not follow the layout", key)
		}
	}

	// Persisted challenges carry the bulk-upload defaults.
	c, err := repo.GetBySetAndDay(context.Background(), setID, 1)
	if err != nil {
		t.Fatalf("challenge for day 1 not persisted: %v", err)
	}
	if c.ChallengeType1 != domain.ChallengeTypeStandard {
		t.Errorf("ChallengeType1 = %q, want standard", c.ChallengeType1)
	}
	if c.ImageURL1 == nil || c.ImageKey1 == nil {
		t.Error("image URL and key must both be stored")
	}
	if c.ChallengeText2 != nil || c.ImageURL2 != nil {
		t.Error("bulk upload must leave the second slot empty")
	}
}

func TestBulkUpload_SecondRunUpdates(t *testing.T) {
	repo := newFakeChallengeRepo()
	uploader := NewUploader(repo, &fakeStorage{}, nil, nil)
	setID := primitive.NewObjectID()
	rows, images := testRows(2)

	first := uploader.BulkUpload(context.Background(), rows, images, setID.Hex(), nil)
	second := uploader.BulkUpload(context.Background(), rows, images, setID.Hex(), nil)

	if !second.Success {
		t.Fatalf("second run failed: %+v", second)
	}
	for i, result := range second.Results {
		if result.Action != ActionUpdated {
			t.Errorf("row %d: action = %q, want updated", result.Row.RowNum, result.Action)
		}
		if result.ChallengeID != first.Results[i].ChallengeID {
			t.Errorf("row %d: challenge id changed across runs", result.Row.RowNum)
		}
	}
	if len(repo.byID) != 2 {
		t.Errorf("expected 2 challenges after rerun, got %d", len(repo.byID))
	}
}

func TestBulkUpload_RowFailureDoesNotStopBatch(t *testing.T) {
	repo := newFakeChallengeRepo()
	repo.createErr[3] = errors.New("write conflict")
	uploader := NewUploader(repo, &fakeStorage{}, nil, nil)
	setID := primitive.NewObjectID()
	rows, images := testRows(5)

	summary := uploader.BulkUpload(context.Background(), rows, images, setID.Hex(), nil)

	if summary.Success {
		t.Fatal("batch with a failed row must not report success")
	}
	if summary.Completed != 4 || summary.Failed != 1 {
		t.Fatalf("counts = %d completed / %d failed, want 4/1", summary.Completed, summary.Failed)
	}
	if len(summary.Results) != 5 {
		t.Fatalf("every row must have a result, got %d", len(summary.Results))
	}
	bad := summary.Results[2]
	if bad.Success || !strings.Contains(bad.Error, "write conflict") {
		t.Errorf("row 3 result = %+v, want failure carrying the repo error", bad)
	}
	// Rows after the failure still ran.
	if !summary.Results[3].Success || !summary.Results[4].Success {
		t.Error("rows after the failed one must still complete")
	}
}

func TestBulkUpload_MissingImageFailsRow(t *testing.T) {
	repo := newFakeChallengeRepo()
	uploader := NewUploader(repo, &fakeStorage{}, nil, nil)
	setID := primitive.NewObjectID()
	rows, images := testRows(2)
	delete(images, "day2.jpg")

	summary := uploader.BulkUpload(context.Background(), rows, images, setID.Hex(), nil)

	if summary.Completed != 1 || summary.Failed != 1 {
		t.Fatalf("counts = %d/%d, want 1 completed / 1 failed", summary.Completed, summary.Failed)
	}
	if !strings.Contains(summary.Results[1].Error, "not found in archive") {
		t.Errorf("error = %q, want missing-image message", summary.Results[1].Error)
	}
	if len(repo.byID) != 1 {
		t.Errorf("failed row must not persist a challenge")
	}
}

func TestBulkUpload_EmptySetID(t *testing.T) {
	uploader := NewUploader(newFakeChallengeRepo(), &fakeStorage{}, nil, nil)
	rows, images := testRows(3)

	summary := uploader.BulkUpload(context.Background(), rows, images, "", nil)

	if summary.Success {
		t.Fatal("missing set id must not succeed")
	}
	if summary.Total != 3 || summary.Completed != 0 || summary.Failed != 3 {
		t.Fatalf("counts = %d/%d/%d, want 3 total, 0 completed, 3 failed", summary.Total, summary.Completed, summary.Failed)
	}
	if len(summary.Errors) != 1 || summary.Errors[0] != ErrMissingSetID.Error() {
		t.Fatalf("Errors = %v, want the missing-set-id message", summary.Errors)
	}
	if len(summary.Results) != 3 {
		t.Fatalf("every row still gets a result, got %d", len(summary.Results))
	}
}

func TestBulkUpload_InvalidSetID(t *testing.T) {
	uploader := NewUploader(newFakeChallengeRepo(), &fakeStorage{}, nil, nil)
	rows, images := testRows(1)

	summary := uploader.BulkUpload(context.Background(), rows, images, "not-a-hex-id", nil)

	if summary.Success || summary.Failed != 1 {
		t.Fatalf("invalid set id must fail the whole batch, got %+v", summary)
	}
	if len(summary.Errors) != 1 || summary.Errors[0] != ErrInvalidSetID.Error() {
		t.Fatalf("Errors = %v", summary.Errors)
	}
}

func TestBulkUpload_ContextCancellation(t *testing.T) {
	repo := newFakeChallengeRepo()
	uploader := NewUploader(repo, &fakeStorage{}, nil, nil)
	setID := primitive.NewObjectID()
	rows, images := testRows(4)

	ctx, cancel := context.WithCancel(context.Background())
	processed := 0
	onProgress := func(event ProgressEvent) {
		// Cancel once the second row completes.
		if event.Status == StatusCompleted {
			processed++
			if processed == 2 {
				cancel()
			}
		}
	}

	summary := uploader.BulkUpload(ctx, rows, images, setID.Hex(), onProgress)

	if summary.Completed != 2 {
		t.Fatalf("completed = %d, want 2 before cancellation", summary.Completed)
	}
	if summary.Failed != 2 {
		t.Fatalf("failed = %d, want the remaining 2 rows", summary.Failed)
	}
	for _, result := range summary.Results[2:] {
		if result.Error != "batch canceled" {
			t.Errorf("row %d error = %q, want batch canceled", result.Row.RowNum, result.Error)
		}
	}
	if len(repo.byID) != 2 {
		t.Errorf("expected only the 2 pre-cancel challenges, got %d", len(repo.byID))
	}
}

func TestBulkUpload_ProgressEventsInOrder(t *testing.T) {
	uploader := NewUploader(newFakeChallengeRepo(), &fakeStorage{}, nil, nil)
	setID := primitive.NewObjectID()
	rows, images := testRows(2)

	var events []ProgressEvent
	uploader.BulkUpload(context.Background(), rows, images, setID.Hex(), func(e ProgressEvent) {
		events = append(events, e)
	})

	// Four events per successful row with an image.
	wantSteps := []RowStep{StepValidating, StepUploadingImage, StepSavingRecord, StepDone}
	if len(events) != len(rows)*len(wantSteps) {
		t.Fatalf("got %d events, want %d", len(events), len(rows)*len(wantSteps))
	}
	for i, event := range events {
		wantIndex := i / len(wantSteps)
		if event.Index != wantIndex {
			t.Errorf("event %d: index = %d, want %d (strictly sequential)", i, event.Index, wantIndex)
		}
		if event.Step != wantSteps[i%len(wantSteps)] {
			t.Errorf("event %d: step = %q, want %q", i, event.Step, wantSteps[i%len(wantSteps)])
		}
		if event.Total != 2 {
			t.Errorf("event %d: total = %d, want 2", i, event.Total)
		}
	}
	last := events[len(events)-1]
	if last.Status != StatusCompleted {
		t.Errorf("final event status = %q, want completed", last.Status)
	}
}

func TestRollback_DeletesPersistedChallenges(t *testing.T) {
	repo := newFakeChallengeRepo()
	uploader := NewUploader(repo, &fakeStorage{}, nil, nil)
	setID := primitive.NewObjectID()
	rows, images := testRows(3)

	summary := uploader.BulkUpload(context.Background(), rows, images, setID.Hex(), nil)
	if !summary.Success {
		t.Fatalf("setup upload failed: %+v", summary)
	}

	rollback := uploader.Rollback(context.Background(), summary.Results)

	if rollback.Deleted != 3 {
		t.Fatalf("Deleted = %d, want 3", rollback.Deleted)
	}
	if len(rollback.Errors) != 0 {
		t.Fatalf("unexpected rollback errors: %v", rollback.Errors)
	}
	if len(repo.byID) != 0 {
		t.Errorf("expected all challenges deleted, %d remain", len(repo.byID))
	}
}

func TestRollback_AggregatesErrorsAndSkipsFailures(t *testing.T) {
	repo := newFakeChallengeRepo()
	uploader := NewUploader(repo, &fakeStorage{}, nil, nil)
	setID := primitive.NewObjectID()
	rows, images := testRows(3)

	summary := uploader.BulkUpload(context.Background(), rows, images, setID.Hex(), nil)

	// Make one deletion fail; also tack on a failed row that never persisted.
	failID, _ := primitive.ObjectIDFromHex(summary.Results[1].ChallengeID)
	repo.deleteErr[failID] = errors.New("connection reset")
	results := append(summary.Results, RowResult{Index: 3, Success: false})

	rollback := uploader.Rollback(context.Background(), results)

	if rollback.Deleted != 2 {
		t.Fatalf("Deleted = %d, want 2", rollback.Deleted)
	}
	if len(rollback.Errors) != 1 || !strings.Contains(rollback.Errors[0], "connection reset") {
		t.Fatalf("Errors = %v, want one carrying the delete failure", rollback.Errors)
	}
}

func TestSummarize(t *testing.T) {
	summary := BatchSummary{
		Total:     4,
		Completed: 3,
		Failed:    1,
		Results: []RowResult{
			{Success: true, Action: ActionCreated, ImageUploaded: true},
			{Success: true, Action: ActionCreated, ImageUploaded: false},
			{Success: true, Action: ActionUpdated, ImageUploaded: true},
			{Success: false, Error: "boom"},
		},
	}

	view := Summarize(summary)

	if view.SuccessRate != 75 {
		t.Errorf("SuccessRate = %d, want 75", view.SuccessRate)
	}
	if view.Created != 2 || view.Updated != 1 {
		t.Errorf("Created/Updated = %d/%d, want 2/1", view.Created, view.Updated)
	}
	if view.WithImage != 2 || view.WithoutImage != 1 {
		t.Errorf("WithImage/WithoutImage = %d/%d, want 2/1", view.WithImage, view.WithoutImage)
	}
	if len(view.FailedRows) != 1 || view.FailedRows[0].Error != "boom" {
		t.Errorf("FailedRows = %+v", view.FailedRows)
	}
}

func TestSummarize_EmptyBatch(t *testing.T) {
	view := Summarize(BatchSummary{})
	if view.SuccessRate != 0 {
		t.Errorf("SuccessRate = %d, want 0 for empty batch", view.SuccessRate)
	}
}

func TestSummarize_Rounding(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds up
	}
	for _, tt := range tests {
		view := Summarize(BatchSummary{Total: tt.total, Completed: tt.completed})
		if view.SuccessRate != tt.want {
			t.Errorf("Summarize(%d/%d).SuccessRate = %d, want %d", tt.completed, tt.total, view.SuccessRate, tt.want)
		}
	}
}
