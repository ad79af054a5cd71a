package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"habitloop/habit-app/internal/ingest"
	"habitloop/habit-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Uploaded files are buffered in memory before parsing; cap them so one
// request cannot exhaust the process.
const (
	maxCSVUploadBytes = 2 << 20  // 2 MiB
	maxZipUploadBytes = 64 << 20 // 64 MiB
)

// AdminHandler bundles the admin-only services.
type AdminHandler struct {
	challengeService service.ChallengeService
	cohortService    service.CohortService
	ingestService    service.IngestService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	challengeService service.ChallengeService,
	cohortService service.CohortService,
	ingestService service.IngestService,
) *AdminHandler {
	return &AdminHandler{
		challengeService: challengeService,
		cohortService:    cohortService,
		ingestService:    ingestService,
	}
}

// --- Request Structs ---

type CreateChallengeSetRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	DurationDays int    `json:"durationDays" binding:"required,min=1"`
}

type UpdateDayRequest struct {
	Title              string   `json:"title" binding:"required"`
	ChallengeText1     string   `json:"challengeText1" binding:"required"`
	ChallengeType1     string   `json:"challengeType1"`
	ChallengeText2     *string  `json:"challengeText2"`
	ChallengeType2     *string  `json:"challengeType2"`
	VideoURL1          *string  `json:"videoUrl1"`
	VideoURL2          *string  `json:"videoUrl2"`
	ReflectionQuestion string   `json:"reflectionQuestion"`
	IntendedInsights   []string `json:"intendedInsights"`
	IsActive           bool     `json:"isActive"`
}

type CreateCohortRequest struct {
	Name           string    `json:"name" binding:"required"`
	ChallengeSetID string    `json:"challengeSetId" binding:"required"`
	StartDate      time.Time `json:"startDate" binding:"required"`
}

type SetCohortActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

type EnrollRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// --- Helpers ---

func parseObjectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s format", name))
		return primitive.NilObjectID, false
	}
	return id, true
}

// readUploadedFile buffers one multipart file field, enforcing a size cap.
func readUploadedFile(c *gin.Context, field string, maxBytes int64) ([]byte, bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Missing '%s' file in form data", field))
		return nil, false
	}
	if fileHeader.Size > maxBytes {
		abortWithError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("File '%s' exceeds the %d byte limit", field, maxBytes))
		return nil, false
	}

	data, ok := readMultipartFile(c, fileHeader, field)
	return data, ok
}

func readMultipartFile(c *gin.Context, fileHeader *multipart.FileHeader, field string) ([]byte, bool) {
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to open uploaded '%s' file", field))
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to read uploaded '%s' file", field))
		return nil, false
	}
	return data, true
}

// --- Challenge Set Handlers ---

// CreateChallengeSet handles POST /admin/sets
func (h *AdminHandler) CreateChallengeSet(c *gin.Context) {
	adminID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify admin user")
		return
	}
	adminOID, err := primitive.ObjectIDFromHex(adminID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Invalid admin user ID format")
		return
	}

	var req CreateChallengeSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	set, err := h.challengeService.CreateSet(c.Request.Context(), adminOID, req.Name, req.Description, req.DurationDays)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to create challenge set: %v", err))
		return
	}
	c.JSON(http.StatusCreated, set)
}

// ListChallengeSets handles GET /admin/sets
func (h *AdminHandler) ListChallengeSets(c *gin.Context) {
	sets, err := h.challengeService.ListSets(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list challenge sets")
		return
	}
	c.JSON(http.StatusOK, sets)
}

// GetChallengeSet handles GET /admin/sets/:setId
func (h *AdminHandler) GetChallengeSet(c *gin.Context) {
	setID, ok := parseObjectIDParam(c, "setId")
	if !ok {
		return
	}

	set, err := h.challengeService.GetSet(c.Request.Context(), setID)
	if err != nil {
		if errors.Is(err, service.ErrChallengeSetNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to get challenge set")
		return
	}
	c.JSON(http.StatusOK, set)
}

// DeleteChallengeSet handles DELETE /admin/sets/:setId
func (h *AdminHandler) DeleteChallengeSet(c *gin.Context) {
	setID, ok := parseObjectIDParam(c, "setId")
	if !ok {
		return
	}

	if err := h.challengeService.DeleteSet(c.Request.Context(), setID); err != nil {
		if errors.Is(err, service.ErrChallengeSetNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to delete challenge set")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDays handles GET /admin/sets/:setId/days
func (h *AdminHandler) ListDays(c *gin.Context) {
	setID, ok := parseObjectIDParam(c, "setId")
	if !ok {
		return
	}

	days, err := h.challengeService.ListDays(c.Request.Context(), setID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list challenge days")
		return
	}
	c.JSON(http.StatusOK, days)
}

// GetDay handles GET /admin/sets/:setId/days/:day
func (h *AdminHandler) GetDay(c *gin.Context) {
	setID, ok := parseObjectIDParam(c, "setId")
	if !ok {
		return
	}
	var day int
	if _, err := fmt.Sscanf(c.Param("day"), "%d", &day); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid day number")
		return
	}

	challenge, err := h.challengeService.GetDay(c.Request.Context(), setID, day)
	if err != nil {
		if errors.Is(err, service.ErrChallengeNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to get challenge day")
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// UpdateDay handles PUT /admin/sets/:setId/days/:day
func (h *AdminHandler) UpdateDay(c *gin.Context) {
	setID, ok := parseObjectIDParam(c, "setId")
	if !ok {
		return
	}
	var day int
	if _, err := fmt.Sscanf(c.Param("day"), "%d", &day); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid day number")
		return
	}

	var req UpdateDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	challenge, err := h.challengeService.UpdateDay(c.Request.Context(), setID, day, service.ChallengeDayUpdate{
		Title:              req.Title,
		ChallengeText1:     req.ChallengeText1,
		ChallengeType1:     req.ChallengeType1,
		ChallengeText2:     req.ChallengeText2,
		ChallengeType2:     req.ChallengeType2,
		VideoURL1:          req.VideoURL1,
		VideoURL2:          req.VideoURL2,
		ReflectionQuestion: req.ReflectionQuestion,
		IntendedInsights:   req.IntendedInsights,
		IsActive:           req.IsActive,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeSetNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidDayNumber):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to update challenge day: %v", err))
		}
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// --- Cohort Handlers ---

// CreateCohort handles POST /admin/cohorts
func (h *AdminHandler) CreateCohort(c *gin.Context) {
	var req CreateCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	setID, err := primitive.ObjectIDFromHex(req.ChallengeSetID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid challengeSetId format")
		return
	}

	cohort, err := h.cohortService.CreateCohort(c.Request.Context(), req.Name, setID, req.StartDate)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCohortNameInvalid):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCohortNameTaken):
			abortWithError(c, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrChallengeSetNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to create cohort: %v", err))
		}
		return
	}
	c.JSON(http.StatusCreated, cohort)
}

// ListCohorts handles GET /admin/cohorts
func (h *AdminHandler) ListCohorts(c *gin.Context) {
	cohorts, err := h.cohortService.ListCohorts(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list cohorts")
		return
	}
	c.JSON(http.StatusOK, cohorts)
}

// SetCohortActive handles PUT /admin/cohorts/:cohortId/active
func (h *AdminHandler) SetCohortActive(c *gin.Context) {
	cohortID, ok := parseObjectIDParam(c, "cohortId")
	if !ok {
		return
	}

	var req SetCohortActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	cohort, err := h.cohortService.SetActive(c.Request.Context(), cohortID, *req.IsActive)
	if err != nil {
		if errors.Is(err, service.ErrCohortNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to update cohort")
		return
	}
	c.JSON(http.StatusOK, cohort)
}

// EnrollParticipant handles POST /admin/cohorts/:cohortId/enrollments
func (h *AdminHandler) EnrollParticipant(c *gin.Context) {
	cohortID, ok := parseObjectIDParam(c, "cohortId")
	if !ok {
		return
	}

	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid userId format")
		return
	}

	enrollment, err := h.cohortService.Enroll(c.Request.Context(), userID, cohortID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrParticipantNotFound), errors.Is(err, service.ErrCohortNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAlreadyEnrolled):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to enroll participant: %v", err))
		}
		return
	}
	c.JSON(http.StatusCreated, enrollment)
}

// --- Bulk Upload Handlers ---

// DownloadCSVTemplate handles GET /admin/bulk-upload/template
func (h *AdminHandler) DownloadCSVTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="challenge_template.csv"`)
	c.Data(http.StatusOK, "text/csv", h.ingestService.SampleCSV())
}

// ValidateBulkUpload handles POST /admin/sets/:setId/bulk-upload/validate.
// It runs the full parse and extract stages but writes nothing.
func (h *AdminHandler) ValidateBulkUpload(c *gin.Context) {
	if _, ok := parseObjectIDParam(c, "setId"); !ok {
		return
	}

	csvData, ok := readUploadedFile(c, "csv", maxCSVUploadBytes)
	if !ok {
		return
	}
	zipData, ok := readUploadedFile(c, "images", maxZipUploadBytes)
	if !ok {
		return
	}

	report, err := h.ingestService.Validate(c.Request.Context(), csvData, zipData)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, fmt.Sprintf("Validation failed: %v", err))
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExecuteBulkUpload handles POST /admin/sets/:setId/bulk-upload. When the
// client asks for text/event-stream, per-row progress events are streamed as
// SSE before the final report; otherwise the report is returned as JSON.
func (h *AdminHandler) ExecuteBulkUpload(c *gin.Context) {
	adminID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify admin user")
		return
	}
	adminOID, err := primitive.ObjectIDFromHex(adminID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Invalid admin user ID format")
		return
	}

	setID, ok := parseObjectIDParam(c, "setId")
	if !ok {
		return
	}

	csvData, ok := readUploadedFile(c, "csv", maxCSVUploadBytes)
	if !ok {
		return
	}
	zipData, ok := readUploadedFile(c, "images", maxZipUploadBytes)
	if !ok {
		return
	}

	if c.GetHeader("Accept") == "text/event-stream" {
		h.executeWithEventStream(c, adminOID, setID, csvData, zipData)
		return
	}

	report, err := h.ingestService.Execute(c.Request.Context(), adminOID, setID, csvData, zipData, nil)
	if err != nil {
		if errors.Is(err, service.ErrNothingToUpload) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, fmt.Sprintf("Bulk upload failed: %v", err))
		return
	}
	c.JSON(http.StatusOK, report)
}

// executeWithEventStream streams one SSE "progress" event per step transition
// and a closing "summary" event carrying the final report.
func (h *AdminHandler) executeWithEventStream(c *gin.Context, adminID, setID primitive.ObjectID, csvData, zipData []byte) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	onProgress := func(event ingest.ProgressEvent) {
		c.SSEvent("progress", event)
		c.Writer.Flush()
	}

	report, err := h.ingestService.Execute(c.Request.Context(), adminID, setID, csvData, zipData, onProgress)
	if err != nil {
		c.SSEvent("error", gin.H{"error": err.Error()})
		c.Writer.Flush()
		return
	}

	c.SSEvent("summary", report)
	c.Writer.Flush()
}

// ListIngestBatches handles GET /admin/sets/:setId/ingest-batches
func (h *AdminHandler) ListIngestBatches(c *gin.Context) {
	setID, ok := parseObjectIDParam(c, "setId")
	if !ok {
		return
	}

	batches, err := h.ingestService.ListBatches(c.Request.Context(), setID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list ingest batches")
		return
	}
	c.JSON(http.StatusOK, batches)
}

// RollbackIngestBatch handles POST /admin/ingest-batches/:batchId/rollback
func (h *AdminHandler) RollbackIngestBatch(c *gin.Context) {
	batchID, ok := parseObjectIDParam(c, "batchId")
	if !ok {
		return
	}

	result, err := h.ingestService.Rollback(c.Request.Context(), batchID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBatchNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrBatchAlreadyRolledBack):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, fmt.Sprintf("Rollback failed: %v", err))
		}
		return
	}
	c.JSON(http.StatusOK, result)
}
