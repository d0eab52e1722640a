package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/voicepost/configs"
	"github.com/maheshrc27/voicepost/internal/api/handlers"
	"github.com/maheshrc27/voicepost/internal/api/middleware"
	"github.com/maheshrc27/voicepost/internal/database"
	job "github.com/maheshrc27/voicepost/internal/jobs"
	"github.com/maheshrc27/voicepost/internal/queue"
	"github.com/maheshrc27/voicepost/internal/repository"
	"github.com/maheshrc27/voicepost/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	if len(cfg.SecretKey) != 32 {
		log.Fatalf("SECRET_KEY must be 32 bytes, got %d", len(cfg.SecretKey))
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	storage, err := service.NewStorageService(context.Background(), *cfg)
	if err != nil {
		log.Fatalf("Failed to configure object storage: %v", err)
	}
	openaiClient := service.NewOpenAIClient(*cfg)
	twitterClient := service.NewTwitterClient(*cfg)

	healthCheckers := map[string]service.HealthChecker{
		"database": service.DatabaseCheck(db),
		"storage":  service.StorageCheck(storage),
		"openai":   service.OpenAICheck(openaiClient),
		"twitter":  service.TwitterCheck(*cfg),
	}

	// Without Redis, OAuth sessions live in memory and tasks run in-process.
	var (
		sessionStore service.AuthSessionStore
		enqueuer     service.TaskEnqueuer
		asynqClient  *asynq.Client
		inline       *queue.InlineClient
		redisConn    asynq.RedisClientOpt
	)
	if cfg.RedisURI != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		defer rdb.Close()
		sessionStore = service.NewRedisAuthSessionStore(rdb)
		healthCheckers["redis"] = service.RedisCheck(rdb)

		redisConn = asynq.RedisClientOpt{Addr: cfg.RedisURI}
		asynqClient = asynq.NewClient(redisConn)
		defer asynqClient.Close()
		enqueuer = queue.NewClient(asynqClient)
	} else {
		log.Println("Warning: REDIS_URI is not set, running the queue in-process")
		sessionStore = service.NewMemoryAuthSessionStore()
		inline = queue.NewInlineClient(10)
		enqueuer = inline
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    1 * 1024 * 1024, // uploads go straight to storage
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	settingsRepository := repository.NewSettingsRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)
	recordingRepo := repository.NewRecordingRepository(db)
	transcriptRepo := repository.NewTranscriptRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	postRepo := repository.NewPostRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	authService := service.NewAuthService(*cfg, userRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)
	settingsService := service.NewSettingsService(*cfg, settingsRepository)
	userService := service.NewUserService(userRepo, socialAccountRepo, settingsService)
	twitterAuthService := service.NewTwitterAuthService(*cfg, socialAccountRepo, sessionStore, twitterClient)
	transcriptionService := service.NewTranscriptionService(*cfg, openaiClient)
	draftingService := service.NewDraftingService(openaiClient)
	publishService := service.NewPublishService(draftRepo, recordingRepo, postRepo, attachmentRepo, storage, twitterAuthService, twitterClient, enqueuer)
	pipelineService := service.NewPipelineService(*cfg, recordingRepo, transcriptRepo, draftRepo, storage,
		transcriptionService, draftingService, publishService, settingsService, enqueuer)
	attachmentService := service.NewAttachmentService(attachmentRepo, draftRepo, recordingRepo, storage)
	healthService := service.NewHealthService(healthCheckers)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	platform := handlers.NewPlatformHandler(*cfg, twitterAuthService)
	app.Get("/auth/twitter", authMiddleware.AuthMiddleware(), platform.AddSocialAccount)
	app.Get("/auth/twitter/callback", platform.CallbackHandler)

	health := handlers.NewHealthHandler(healthService)
	app.Get("/health", health.CheckAll)
	app.Get("/health/:provider", health.CheckProvider)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/me", user.Profile)

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings", settings.Get)
	api.Patch("/settings", settings.Update)

	keys := handlers.NewKeyHandler(apiKeyService)
	api.Post("/keys", keys.Create)
	api.Get("/keys", keys.List)
	api.Delete("/keys/:id", keys.Remove)

	recordings := handlers.NewRecordingHandler(pipelineService)
	api.Post("/recordings", recordings.CreateRecording)
	api.Post("/recordings/:id/ingest", recordings.Ingest)
	api.Get("/recordings", recordings.ListRecordings)
	api.Get("/recordings/:id", recordings.GetRecording)
	api.Delete("/recordings/:id", recordings.DeleteRecording)

	drafts := handlers.NewDraftHandler(pipelineService, publishService)
	api.Get("/drafts/:id", drafts.GetDraft)
	api.Put("/drafts/:id", drafts.UpdateDraft)
	api.Post("/drafts/:id/publish", drafts.PublishDraft)

	attachments := handlers.NewAttachmentHandler(attachmentService)
	api.Post("/drafts/:id/attachments", attachments.CreateAttachment)
	api.Get("/drafts/:id/attachments", attachments.ListAttachments)
	api.Delete("/attachments/:id", attachments.RemoveAttachment)

	post := handlers.NewPostHandler(publishService)
	api.Get("/posts", post.ListPosts)

	// social accounts api routes
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Post("/accounts/:id/disconnect", platform.DisconnectSocialAccount)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, twitterAuthService)

	c := cron.New()
	if err := c.AddFunc(job.TokenRefreshSchedule, refreshTokenJob.RefreshTokens); err != nil {
		log.Fatalf("Failed to schedule token refresh: %v", err)
	}
	c.Start()
	defer c.Stop()

	//queue
	queueW := queue.NewQueue(pipelineService, publishService)

	var server *asynq.Server
	if inline != nil {
		inline.Attach(queueW)
		defer inline.Stop()
	} else {
		server = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		queueW.Register(mux)

		go func() {
			log.Println("Starting the Asynq server...")
			if err := server.Run(mux); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	}

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, server)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}
	if server != nil {
		server.Shutdown()
	}

	log.Println("Server shutdown complete.")
}
