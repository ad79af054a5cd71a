package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habitloop/habit-app/internal/api"
	"habitloop/habit-app/internal/config"
	"habitloop/habit-app/internal/ingest"
	"habitloop/habit-app/internal/metrics"
	"habitloop/habit-app/internal/repository/mongo"
	"habitloop/habit-app/internal/service"
	"habitloop/habit-app/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("Starting Habit App Server...")

	// .env is optional; real deployments set environment variables directly.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env file.")
	}

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureChallengeSetIndexes(ctx, appDB.Collection("challenge_sets"))
		mongo.EnsureChallengeIndexes(ctx, appDB.Collection("challenges"))
		mongo.EnsureCohortIndexes(ctx, appDB.Collection("cohorts"))
		mongo.EnsureEnrollmentIndexes(ctx, appDB.Collection("enrollments"))
		mongo.EnsureReflectionIndexes(ctx, appDB.Collection("reflections"))
		mongo.EnsureSurveyIndexes(ctx, appDB.Collection("survey_responses"))
		mongo.EnsureIngestBatchIndexes(ctx, appDB.Collection("ingest_batches"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Println("Initializing file storage service...")
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Metrics ---
	collector, err := metrics.NewIngestCollector()
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize metrics collector: %v", err)
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	setRepo := mongo.NewMongoChallengeSetRepository(appDB)
	challengeRepo := mongo.NewMongoChallengeRepository(appDB)
	cohortRepo := mongo.NewMongoCohortRepository(appDB)
	enrollmentRepo := mongo.NewMongoEnrollmentRepository(appDB)
	reflectionRepo := mongo.NewMongoReflectionRepository(appDB)
	surveyRepo := mongo.NewMongoSurveyRepository(appDB)
	batchRepo := mongo.NewMongoIngestBatchRepository(appDB)

	// --- Initialize Upload Orchestrator ---
	var thumbnailer *ingest.Thumbnailer
	if cfg.Ingest.Thumbnails {
		thumbnailer = ingest.NewThumbnailer(cfg.Ingest.ThumbnailSize)
	}
	uploader := ingest.NewUploader(challengeRepo, fileStorage, collector, thumbnailer)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	challengeService := service.NewChallengeService(setRepo, challengeRepo)
	cohortService := service.NewCohortService(cohortRepo, setRepo, userRepo, enrollmentRepo)
	ingestService := service.NewIngestService(uploader, cohortRepo, batchRepo)
	participantService := service.NewParticipantService(cohortRepo, challengeRepo, enrollmentRepo, reflectionRepo, surveyRepo, fileStorage)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, collector, authService, challengeService, cohortService, ingestService, participantService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
		// Bulk uploads can take a while; write timeout has to cover a whole
		// batch, not just a quick JSON response.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
