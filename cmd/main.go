package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	httpapi "github.com/kindredspace/kindred/internal/api/http"
	"github.com/kindredspace/kindred/internal/archive"
	"github.com/kindredspace/kindred/internal/config"
	"github.com/kindredspace/kindred/internal/embedding"
	"github.com/kindredspace/kindred/internal/hub"
	"github.com/kindredspace/kindred/internal/matching"
	"github.com/kindredspace/kindred/internal/repository"
	"github.com/kindredspace/kindred/internal/repository/model"
	"github.com/kindredspace/kindred/internal/session"
	"github.com/kindredspace/kindred/internal/signaling"
	"github.com/kindredspace/kindred/internal/vectorindex"
	"github.com/kindredspace/kindred/internal/voicechat"
	"github.com/kindredspace/kindred/lib/logger/slogpretty"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	sessionRepo := buildSessionRepository(cfg.Database, log)

	indexClient := vectorindex.NewClient(cfg.Index.URL, cfg.Index.APIKey, cfg.Index.Timeout)
	embedder := embedding.NewClient(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Timeout)

	archiveStore := archive.NewStore(indexClient, embedder, log)
	ensureCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := archiveStore.EnsureCollections(ensureCtx); err != nil {
		log.Warn("collection bootstrap failed, continuing", slog.Any("error", err))
	}
	cancel()

	registry := session.NewRegistry(sessionRepo, log)
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 10*time.Second)
	if restored, err := registry.Rehydrate(restoreCtx); err != nil {
		log.Warn("session rehydration failed", slog.Any("error", err))
	} else if restored > 0 {
		log.Info("active sessions restored", slog.Int("count", restored))
	}
	cancelRestore()

	queue := matching.NewQueue()
	engine := matching.NewEngine(
		embedder,
		matching.NewIndexAdapter(indexClient),
		queue,
		registry,
		archiveStore,
		cfg.Matching.Threshold,
		log,
	)

	chatHub := hub.New(registry, archiveStore, log)
	relay := signaling.NewRelay(cfg.Signaling.MailboxCapacity, log)
	voiceService := voicechat.NewService(indexClient, embedder, log)

	stop := make(chan struct{})
	defer close(stop)
	go relay.Run(cfg.Signaling.SweepInterval, cfg.Signaling.MaxAge, stop)
	go sweepSessions(registry, cfg.Session, log, stop)

	auth := httpapi.NewAuth(cfg.Auth.Secret, cfg.Auth.TTL)
	chatController := httpapi.NewChatController(engine, archiveStore, chatHub, log)
	voiceController := httpapi.NewVoiceChatController(voiceService, relay, log)

	router := httpapi.SetupRouter(auth, chatController, voiceController)

	log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
	if err := router.Run(cfg.HTTP.Address); err != nil {
		log.Error("http server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

// buildSessionRepository falls back to the in-memory repository when no DSN
// is configured, so the service runs without a database in local setups.
func buildSessionRepository(cfg config.DatabaseConfig, log *slog.Logger) repository.SessionRepository {
	if cfg.DSN == "" {
		log.Info("no database configured, using in-memory session repository")
		return repository.NewInMemorySessionRepository()
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		log.Error("failed to connect database, using in-memory session repository", slog.Any("error", err))
		return repository.NewInMemorySessionRepository()
	}

	db.AutoMigrate(&model.Session{})

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return repository.NewPostgresSessionRepository(db)
}

func sweepSessions(registry *session.Registry, cfg config.SessionConfig, log *slog.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := registry.Sweep(cfg.MaxIdle); removed > 0 {
				log.Info("idle sessions removed", slog.Int("count", removed))
			}
		case <-stop:
			return
		}
	}
}
