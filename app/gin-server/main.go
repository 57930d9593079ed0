package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/recruitgenius/backend/config"
	"github.com/recruitgenius/backend/internal/analysis"
	"github.com/recruitgenius/backend/internal/api/handlers"
	"github.com/recruitgenius/backend/internal/api/middleware"
	"github.com/recruitgenius/backend/internal/api/routes"
	"github.com/recruitgenius/backend/internal/auth"
	"github.com/recruitgenius/backend/internal/cache"
	"github.com/recruitgenius/backend/internal/events"
	"github.com/recruitgenius/backend/internal/logger"
	"github.com/recruitgenius/backend/internal/providers/llm"
	"github.com/recruitgenius/backend/internal/providers/stt"
	"github.com/recruitgenius/backend/internal/queue"
	mongorepo "github.com/recruitgenius/backend/internal/repositories/mongo"
	pgrepo "github.com/recruitgenius/backend/internal/repositories/postgres"
	"github.com/recruitgenius/backend/internal/services"
	"github.com/recruitgenius/backend/internal/storage"
	"github.com/recruitgenius/backend/internal/workers"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	cfg, err := config.LoadApp()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.MigratePostgres(config.PostgresDB); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	log.Info("PostgreSQL connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	defer config.RedisClient.Close()
	log.Info("Redis connected")

	// Init MongoDB (attempt log, optional)
	var attempts mongorepo.AttemptRepository
	switch err := config.InitMongo(); {
	case errors.Is(err, config.ErrMongoDisabled):
		log.Warn("MONGO_URI not set, transcription attempt log disabled")
	case err != nil:
		log.Fatalf("MongoDB init error: %v", err)
	default:
		if err := config.EnsureMongoIndexes(); err != nil {
			log.Fatalf("MongoDB index error: %v", err)
		}
		attempts = mongorepo.NewAttemptRepo(config.MongoDatabase())
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = config.MongoClient.Disconnect(dctx)
		}()
		log.Info("MongoDB connected")
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}
	defer store.Close()
	err = storage.EnsureBuckets(ctx, store, []string{cfg.BucketRecordings, cfg.BucketResumes}, func(b string, created bool) {
		log.WithFields(logrus.Fields{"bucket": b, "created": created}).Info("bucket ready")
	})
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}

	transcriber, err := newSTT(ctx, cfg)
	if err != nil {
		log.Fatalf("stt init error: %v", err)
	}
	defer transcriber.Close()

	completer, err := newLLM(ctx, cfg)
	if err != nil {
		log.Fatalf("llm init error: %v", err)
	}
	defer completer.Close()

	jobs, err := newQueue(cfg, config.RedisClient, log)
	if err != nil {
		log.Fatalf("queue init error: %v", err)
	}
	defer jobs.Close()

	db := config.PostgresDB
	candidateRepo := pgrepo.NewCandidateRepo(db)
	questionRepo := pgrepo.NewQuestionRepo(db)
	sessionRepo := pgrepo.NewSessionRepo(db)
	recordingRepo := pgrepo.NewRecordingRepo(db)
	resumeRepo := pgrepo.NewResumeRepo(db)
	jobRepo := pgrepo.NewJobPostingRepo(db)
	evalRepo := pgrepo.NewEvaluationRepo(db)

	rcache := cache.NewRedisCache(config.RedisClient)
	notifier := events.NewRedisNotifier(config.RedisClient)
	links := auth.NewInterviewLinks(cfg.InterviewLinkSecret, cfg.InterviewLinkTTL, cfg.PublicAppURL)

	candidateSvc := services.NewCandidateService(candidateRepo)
	questionSvc := services.NewQuestionService(questionRepo, rcache, cfg.CacheTTL, log)
	jobSvc := services.NewJobPostingService(jobRepo)
	resumeSvc := services.NewResumeService(resumeRepo, candidateSvc, store, cfg.BucketResumes, cfg.MaxResumeBytes, log)
	sessionSvc := services.NewSessionService(services.SessionDeps{
		Sessions:             sessionRepo,
		Questions:            questionRepo,
		Candidates:           candidateRepo,
		Recordings:           recordingRepo,
		Attempts:             attempts,
		Store:                store,
		Bucket:               cfg.BucketRecordings,
		STT:                  transcriber,
		Queue:                jobs,
		Events:               notifier,
		Log:                  log,
		SignedURLTTL:         cfg.SignedURLTTL,
		TranscriptionTimeout: cfg.TranscriptionTimeout,
		MaxAudioBytes:        cfg.MaxAudioBytes,
	})
	evalSvc := services.NewEvaluationService(services.EvaluationDeps{
		Evaluations: evalRepo,
		Resumes:     resumeRepo,
		JobPostings: jobRepo,
		Sessions:    sessionSvc,
		Analyzer:    analysis.NewResumeAnalyzer(completer, cfg.AnalysisTimeout),
		Links:       links,
		Cache:       rcache,
		Log:         log,
		Concurrency: cfg.AnalysisConcurrency,
	})
	adminSvc := services.NewAdminService(services.AdminDeps{
		Evaluations:  evalRepo,
		Candidates:   candidateRepo,
		Sessions:     sessionRepo,
		Recordings:   recordingRepo,
		Questions:    questionRepo,
		Attempts:     attempts,
		Orchestrator: sessionSvc,
		Links:        links,
		Cache:        rcache,
		Log:          log,
	})

	pool := &workers.TranscriptionWorkerPool{
		Queue:      jobs,
		Sessions:   sessionSvc,
		NumWorkers: cfg.TranscriptionWorkers,
		Logger:     log,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("worker init error: %v", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		Interview:   handlers.NewInterviewHandler(candidateSvc, sessionSvc, links, cfg.MaxAudioBytes),
		WS:          handlers.NewWSHandler(sessionSvc, notifier, cfg.AllowedOrigins),
		Questions:   handlers.NewQuestionHandler(questionSvc),
		JobPostings: handlers.NewJobPostingHandler(jobSvc),
		Resumes:     handlers.NewResumeHandler(resumeSvc, cfg.MaxResumeBytes),
		Evaluations: handlers.NewEvaluationHandler(evalSvc, adminSvc),
		Admin:       handlers.NewAdminHandler(adminSvc),
		Links:       links,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
}

func newSTT(ctx context.Context, cfg *config.App) (stt.Provider, error) {
	client := &http.Client{Timeout: cfg.TranscriptionTimeout}
	switch cfg.STTProvider {
	case "deepgram":
		return stt.NewDeepgram(cfg.DeepgramAPIKey, cfg.DeepgramBaseURL, cfg.DeepgramModel)
	case "http":
		return stt.NewHTTPTranscriber(cfg.TranscribeURL, cfg.TranscribeToken, client), nil
	case "google":
		return stt.NewGoogleSpeech(ctx)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.STTProvider)
	}
}

func newLLM(ctx context.Context, cfg *config.App) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		return llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case "vertex":
		return llm.NewVertexGemini(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.VertexModel)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func newQueue(cfg *config.App, rdb *redis.Client, log *logrus.Logger) (queue.Queue, error) {
	switch cfg.QueueDriver {
	case "redis":
		return queue.NewRedisStreamQueue(rdb, queue.RedisStreamConfig{
			Stream:      cfg.TranscriptionStream,
			Group:       "transcription-workers",
			MaxAttempts: cfg.TranscriptionMaxAttempts,
			RetryDelay:  2 * time.Second,
		}, log), nil
	case "rabbitmq":
		return queue.NewRabbitMQ(cfg.RabbitMQURL, cfg.TranscriptionStream, cfg.TranscriptionMaxAttempts, log)
	case "none":
		return queue.NopQueue{}, nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.QueueDriver)
	}
}
