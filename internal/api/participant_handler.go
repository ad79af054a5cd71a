package api

import (
	"errors"
	"fmt"
	"net/http"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParticipantHandler holds the participant-facing service.
type ParticipantHandler struct {
	participantService service.ParticipantService
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(participantService service.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantService: participantService}
}

// --- Request Structs ---

type SubmitReflectionRequest struct {
	DayNumber int    `json:"dayNumber" binding:"required,min=1"`
	Text      string `json:"text" binding:"required"`
}

type SubmitSurveyRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// --- Helpers ---

func participantOID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user")
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Invalid user ID format")
		return primitive.NilObjectID, false
	}
	return oid, true
}

// --- Handler Methods ---

// TodaysChallenge handles GET /me/challenge/today
func (h *ParticipantHandler) TodaysChallenge(c *gin.Context) {
	userID, ok := participantOID(c)
	if !ok {
		return
	}

	daily, err := h.participantService.TodaysChallenge(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotEnrolled):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrCohortNotStarted), errors.Is(err, service.ErrCohortFinished):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to load today's challenge")
		}
		return
	}
	c.JSON(http.StatusOK, daily)
}

// SubmitReflection handles POST /me/reflections
func (h *ParticipantHandler) SubmitReflection(c *gin.Context) {
	userID, ok := participantOID(c)
	if !ok {
		return
	}

	var req SubmitReflectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	reflection, err := h.participantService.SubmitReflection(c.Request.Context(), userID, req.DayNumber, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotEnrolled):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrReflectionTooShort), errors.Is(err, service.ErrReflectionTooLong):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Failed to submit reflection: %v", err))
		}
		return
	}
	c.JSON(http.StatusOK, reflection)
}

// ListReflections handles GET /me/reflections
func (h *ParticipantHandler) ListReflections(c *gin.Context) {
	userID, ok := participantOID(c)
	if !ok {
		return
	}

	reflections, err := h.participantService.ListReflections(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNotEnrolled) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to list reflections")
		return
	}
	c.JSON(http.StatusOK, reflections)
}

// SubmitSurvey handles POST /me/surveys/:phase
func (h *ParticipantHandler) SubmitSurvey(c *gin.Context) {
	userID, ok := participantOID(c)
	if !ok {
		return
	}

	phase := domain.SurveyPhase(c.Param("phase"))
	if phase != domain.SurveyPhasePre && phase != domain.SurveyPhasePost {
		abortWithError(c, http.StatusBadRequest, "Survey phase must be 'pre' or 'post'")
		return
	}

	var req SubmitSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	response, err := h.participantService.SubmitSurvey(c.Request.Context(), userID, phase, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotEnrolled):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrSurveyAlreadyDone):
			abortWithError(c, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrSurveyAnswersMissing):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to submit survey")
		}
		return
	}
	c.JSON(http.StatusCreated, response)
}

// ListSurveys handles GET /me/surveys
func (h *ParticipantHandler) ListSurveys(c *gin.Context) {
	userID, ok := participantOID(c)
	if !ok {
		return
	}

	surveys, err := h.participantService.ListSurveys(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNotEnrolled) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to list survey responses")
		return
	}
	c.JSON(http.StatusOK, surveys)
}
