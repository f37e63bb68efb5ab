package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/district-tools/permitnav/internal/config"
	"github.com/district-tools/permitnav/internal/corpus"
	"github.com/district-tools/permitnav/internal/db"
	dbRedis "github.com/district-tools/permitnav/internal/db/redis"
	"github.com/district-tools/permitnav/internal/domain"
	logpkg "github.com/district-tools/permitnav/internal/logger"
	"github.com/district-tools/permitnav/internal/metrics"
	"github.com/district-tools/permitnav/internal/repository/artifact"
	"github.com/district-tools/permitnav/internal/repository/embcache"
	quotarepo "github.com/district-tools/permitnav/internal/repository/quota"
	"github.com/district-tools/permitnav/internal/retry"
	"github.com/district-tools/permitnav/internal/transport/httpapi"
	openaiTransport "github.com/district-tools/permitnav/internal/transport/openai"
	healthuc "github.com/district-tools/permitnav/internal/usecase/health"
	keyworduc "github.com/district-tools/permitnav/internal/usecase/keyword"
	queryuc "github.com/district-tools/permitnav/internal/usecase/query"
	quotauc "github.com/district-tools/permitnav/internal/usecase/quota"
	usageuc "github.com/district-tools/permitnav/internal/usecase/usage"
	"github.com/district-tools/permitnav/internal/version"
	"github.com/district-tools/permitnav/internal/warm"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting permitnav API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.Register()
	metrics.RegisterHTTP()

	embedder := buildEmbedder(cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Provider:    cfg.Generation.Provider,
		Logger:      logger,
	})

	// Validated at config load, so LoadLocation cannot fail here.
	loc, err := time.LoadLocation(cfg.Retrieval.TimeZone)
	if err != nil {
		logger.Fatal("Invalid time zone", zap.String("time_zone", cfg.Retrieval.TimeZone), zap.Error(err))
	}
	quotaStore := quotarepo.New(store, loc)
	guard := quotauc.NewGuard(quotaStore, cfg.Retrieval.DailyCeiling, logger)

	permitCorpus, err := corpus.Load(cfg.Retrieval.CorpusPath)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}

	// The artifact must match the deployed corpus file unless the config
	// pins an explicit version.
	expectedVersion := cfg.Retrieval.CorpusVersion
	if expectedVersion == "" {
		expectedVersion = permitCorpus.Version()
	}

	artifactStore, err := buildArtifactStore(cfg)
	if err != nil {
		logger.Fatal("Failed to create artifact store", zap.Error(err))
	}
	warmMgr := warm.NewManager(artifactStore, expectedVersion, logger)

	// Load the index eagerly so a bad artifact fails the deploy, not the
	// first user request.
	if err := warmMgr.Ready(ctx); err != nil {
		logger.Fatal("Index not servable", zap.Error(err))
	}

	querySvc := queryuc.New(warmMgr, guard, embedder, generator, queryuc.Options{
		TopK:            cfg.Retrieval.TopK,
		MaxContextChars: cfg.Retrieval.MaxContextChars,
		MaxQuestionLen:  cfg.Retrieval.MaxQuestionLen,
		CallTimeout:     cfg.Retrieval.Timeout(),
		Retry: retry.Policy{
			Attempts:       cfg.Retry.Attempts,
			InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
			Multiplier:     2,
		},
	}, logger)
	keywordSvc := keyworduc.New(permitCorpus)
	usageSvc := usageuc.New(guard)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder), warmMgr)

	server := httpapi.NewServer(querySvc, keywordSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached.
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	return embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
}

func buildArtifactStore(cfg config.Config) (artifact.Store, error) {
	switch cfg.Artifact.Driver {
	case "s3":
		obj, err := artifact.NewObjectStore(artifact.ObjectConfig{
			Endpoint:  cfg.Artifact.S3.Endpoint,
			AccessKey: cfg.Artifact.S3.AccessKey,
			SecretKey: cfg.Artifact.S3.SecretKey,
			UseSSL:    cfg.Artifact.S3.UseSSL,
			Bucket:    cfg.Artifact.S3.Bucket,
			Prefix:    cfg.Artifact.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Artifact.CacheDir != "" {
			obj = obj.WithCacheDir(cfg.Artifact.CacheDir)
		}
		return obj, nil
	default:
		return artifact.NewLocal(cfg.Artifact.Dir), nil
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
