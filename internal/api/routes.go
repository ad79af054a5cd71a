package api

import (
	"net/http"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/metrics"
	"habitloop/habit-app/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	collector *metrics.IngestCollector,
	authService service.AuthService,
	challengeService service.ChallengeService,
	cohortService service.CohortService,
	ingestService service.IngestService,
	participantService service.ParticipantService,
) {

	authHandler := NewAuthHandler(authService)
	adminHandler := NewAdminHandler(challengeService, cohortService, ingestService)
	participantHandler := NewParticipantHandler(participantService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if collector != nil {
		router.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Admin Routes ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			// Challenge set management
			adminGroup.POST("/sets", adminHandler.CreateChallengeSet)
			adminGroup.GET("/sets", adminHandler.ListChallengeSets)
			adminGroup.GET("/sets/:setId", adminHandler.GetChallengeSet)
			adminGroup.DELETE("/sets/:setId", adminHandler.DeleteChallengeSet)

			// Day editor
			adminGroup.GET("/sets/:setId/days", adminHandler.ListDays)
			adminGroup.GET("/sets/:setId/days/:day", adminHandler.GetDay)
			adminGroup.PUT("/sets/:setId/days/:day", adminHandler.UpdateDay)

			// Bulk CSV + image archive upload
			adminGroup.GET("/bulk-upload/template", adminHandler.DownloadCSVTemplate)
			adminGroup.POST("/sets/:setId/bulk-upload/validate", adminHandler.ValidateBulkUpload)
			adminGroup.POST("/sets/:setId/bulk-upload", adminHandler.ExecuteBulkUpload)
			adminGroup.GET("/sets/:setId/ingest-batches", adminHandler.ListIngestBatches)
			adminGroup.POST("/ingest-batches/:batchId/rollback", adminHandler.RollbackIngestBatch)

			// Cohort management
			adminGroup.POST("/cohorts", adminHandler.CreateCohort)
			adminGroup.GET("/cohorts", adminHandler.ListCohorts)
			adminGroup.PUT("/cohorts/:cohortId/active", adminHandler.SetCohortActive)
			adminGroup.POST("/cohorts/:cohortId/enrollments", adminHandler.EnrollParticipant)
		}

		// --- Participant Routes ---
		meGroup := protected.Group("/me")
		meGroup.Use(RoleMiddleware(domain.RoleParticipant))
		{
			meGroup.GET("/challenge/today", participantHandler.TodaysChallenge)
			meGroup.POST("/reflections", participantHandler.SubmitReflection)
			meGroup.GET("/reflections", participantHandler.ListReflections)
			meGroup.POST("/surveys/:phase", participantHandler.SubmitSurvey)
			meGroup.GET("/surveys", participantHandler.ListSurveys)
		}
	}
}
