// Package main is the entry point for the chat API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/LiorVainer/web-final-project-server/internal/chat"
	"github.com/LiorVainer/web-final-project-server/internal/config"
	"github.com/LiorVainer/web-final-project-server/internal/handler"
	"github.com/LiorVainer/web-final-project-server/internal/hub"
	"github.com/LiorVainer/web-final-project-server/internal/middleware"
	natsclient "github.com/LiorVainer/web-final-project-server/internal/nats"
	"github.com/LiorVainer/web-final-project-server/internal/service"
	"github.com/LiorVainer/web-final-project-server/internal/store"
	"github.com/LiorVainer/web-final-project-server/internal/ws"
	"github.com/LiorVainer/web-final-project-server/pkg/logger"
	"github.com/LiorVainer/web-final-project-server/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting chat API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "web-final-project-server", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to MongoDB. "memory" keeps everything in-process for local
	// development without a database.
	var (
		chatStore store.ChatStore
		expStore  store.MatchExperienceStore
		dbPing    handler.Pinger
	)
	if cfg.MongoURI == "memory" {
		log.Warn("using in-memory stores, data will not survive a restart")
		chatStore = store.NewMemoryChatStore()
		expStore = store.NewMemoryMatchExperienceStore()
	} else {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		cancel()
		if err != nil {
			log.Error("failed to connect to MongoDB", zap.Error(err))
			os.Exit(1)
		}
		defer client.Disconnect(ctx)

		db := client.Database(cfg.MongoDB)
		mongoChats := store.NewMongoChatStore(db)
		if err := mongoChats.EnsureIndexes(ctx); err != nil {
			log.Error("failed to ensure indexes", zap.Error(err))
			os.Exit(1)
		}
		chatStore = mongoChats
		expStore = store.NewMongoMatchExperienceStore(db)
		dbPing = func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}
	}

	// Connect to NATS when configured; the relay is optional.
	var relay chat.EventRelay
	if cfg.NATSURL != "" {
		nc, err := natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer nc.Close()
		relay = natsclient.NewRelay(nc, log)
	}

	// Initialize the chat router and its collaborators
	broker := hub.New()
	chatRouter := chat.NewRouter(chatStore, expStore, broker, relay, log)

	wsHandler := ws.NewHandler(chatRouter, log, ws.Options{
		ReadLimit:      cfg.WSReadLimit,
		SendBuffer:     cfg.WSSendBuffer,
		PingInterval:   cfg.WSPingInterval,
		PongTimeout:    cfg.WSPongTimeout,
		WriteTimeout:   cfg.WSWriteTimeout,
		AllowedOrigins: cfg.WSAllowedOrigins,
	})

	chatSvc := service.NewChatService(chatStore, log)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	healthHandler := handler.NewHealthHandler(dbPing)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Websocket endpoint
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Get("/ws", wsHandler.ServeHTTP)
	})

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", chatHandler.GetBetweenUsers)
			r.Get("/match-experience/{id}", chatHandler.ListForMatchExperience)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
