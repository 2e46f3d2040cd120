package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/yoockh/innkeeper/config"
	"github.com/yoockh/innkeeper/internal/api/handlers"
	"github.com/yoockh/innkeeper/internal/api/middleware"
	"github.com/yoockh/innkeeper/internal/api/routes"
	"github.com/yoockh/innkeeper/internal/buffer"
	"github.com/yoockh/innkeeper/internal/cache"
	"github.com/yoockh/innkeeper/internal/logger"
	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/outbound"
	"github.com/yoockh/innkeeper/internal/providers/llm"
	"github.com/yoockh/innkeeper/internal/providers/stt"
	mongorepo "github.com/yoockh/innkeeper/internal/repositories/mongo"
	pgrepo "github.com/yoockh/innkeeper/internal/repositories/postgres"
	"github.com/yoockh/innkeeper/internal/runguard"
	"github.com/yoockh/innkeeper/internal/services"
	"github.com/yoockh/innkeeper/internal/storage"
	"github.com/yoockh/innkeeper/internal/workers"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	addr := pflag.String("addr", "", "listen address (default :$PORT or :8080)")
	pflag.Parse()

	_ = godotenv.Load(*envFile)

	l := logger.New()
	if err := run(l, *addr); err != nil {
		l.WithError(err).Fatal("server stopped")
	}
}

func run(l *logrus.Logger, addr string) error {
	core, err := config.LoadCore()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backends
	rdb, err := config.InitRedis(ctx)
	if err != nil {
		return err
	}
	defer rdb.Close()
	l.Info("redis connected")

	mongoClient, mdb, err := config.InitMongo(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	if err := config.EnsureMongoIndexes(ctx, mdb); err != nil {
		l.WithError(err).Warn("mongo indexes not ensured")
	}
	l.Info("mongodb connected")

	pg, err := config.InitPostgres()
	if err != nil {
		return err
	}
	if sqlDB, err := pg.DB(); err == nil {
		defer sqlDB.Close()
	}
	l.Info("postgres connected")

	// Cache
	engine := cache.NewEngine(core.Cache, l)
	defer engine.Destroy()

	shared := cache.NewRedisCache(rdb)
	contextCache := cache.NewTiered(cache.NewMemoryJSON(engine, l), shared, core.ContextTTL, l)
	profileCache := cache.NewTyped[models.GuestProfile](engine, cache.PrefixProfile)
	dedup := cache.NewNamespace(engine, cache.PrefixDedup)

	// Providers
	gemini, err := llm.NewVertexGemini(ctx, os.Getenv("GCP_PROJECT"), os.Getenv("GCP_LOCATION"), os.Getenv("LLM_MODEL"))
	if err != nil {
		return err
	}
	defer gemini.Close()

	var speech stt.Provider
	if gs, err := stt.NewGoogleSpeech(ctx); err != nil {
		l.WithError(err).Warn("speech-to-text disabled")
	} else {
		speech = gs
		defer gs.Close()
	}

	var archive storage.Uploader
	if core.VoiceBucket != "" {
		up, err := storage.NewGCSUploader(ctx, core.VoiceBucket)
		if err != nil {
			l.WithError(err).Warn("voice archive disabled")
		} else {
			archive = up
			defer up.Close()
		}
	}

	// Services
	messageSvc := services.NewMessageService(pgrepo.NewMessageRepo(pg))
	profileSvc := services.NewProfileService(pgrepo.NewProfileRepo(pg), profileCache)
	flushSvc := services.NewFlushService(mongorepo.NewFlushRepo(mdb), 0)
	convoSvc := services.NewConversationService(mongorepo.NewConversationRepo(mdb))
	contexts := services.NewContextAssembler(profileSvc, messageSvc, contextCache, core.ContextTTL, core.ContextHistory, l)

	router := &outbound.RedisRouter{Redis: rdb, MaxLen: 10000, Logger: l}
	processor := &services.ReplyProcessor{
		Flushes:  flushSvc,
		Messages: messageSvc,
		Contexts: contexts,
		LLM:      gemini,
		Router:   router,
		Logger:   l,
	}

	manager, err := buffer.NewManager(core.Buffer, buffer.Deps{
		Guard:     runguard.New(),
		Processor: processor,
		Router:    router,
		Dedup:     dedup,
		Logger:    l,
	})
	if err != nil {
		return err
	}

	inbound := services.NewInboundService(services.InboundDeps{
		Buffer:        manager,
		STT:           speech,
		Archive:       archive,
		Conversations: convoSvc,
		Logger:        l,
	})

	pool := &workers.InboundWorkerPool{
		Redis:      rdb,
		Inbound:    inbound,
		NumWorkers: core.InboundWorkers,
		Logger:     l,
	}
	if err := pool.Start(ctx); err != nil {
		return err
	}

	// HTTP
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(l))
	routes.RegisterRoutes(r, routes.Deps{
		Webhook:       handlers.NewWebhookHandler(inbound),
		Widget:        handlers.NewWidgetHandler(inbound, rdb, l),
		Cache:         handlers.NewCacheHandler(engine, shared, manager),
		Conversation:  handlers.NewConversationHandler(convoSvc, messageSvc, flushSvc, manager),
		Guest:         handlers.NewGuestHandler(profileSvc),
		WebhookSecret: core.WebhookSecret,
		AdminJWT:      middleware.JWTConfigFromEnv(),
	})

	if addr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		addr = ":" + port
	}
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		l.WithField("addr", addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		l.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.WithError(err).Warn("http shutdown incomplete")
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		l.WithError(err).Warn("buffer shutdown incomplete")
	}
	return nil
}
