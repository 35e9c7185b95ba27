package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"resolveit/pkg/config"
	"resolveit/pkg/database"
	"resolveit/pkg/logging"
	"resolveit/pkg/middleware"
	"resolveit/pkg/queue"
	"resolveit/pkg/security"
	"resolveit/pkg/storage"
	"resolveit/services/case-service/handlers"
	"resolveit/services/case-service/service"
	"resolveit/services/case-service/store"
)

func main() {
	logger := logging.SetupDefault("case-service")

	if err := run(logger); err != nil {
		logger.Error("case service stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongo, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongo.Close(closeCtx)
	}()
	logger.Info("connected to MongoDB", "database", cfg.MongoDB)

	identities, closeIdentities, err := store.OpenIdentities(ctx, cfg, mongo.DB)
	if err != nil {
		return err
	}
	defer closeIdentities()
	logger.Info("identity store ready", "backend", cfg.IdentityBackend)

	cipher, err := security.NewFieldCipher(cfg.FieldEncKey, cfg.JWTSecret)
	if err != nil {
		return err
	}
	cases := store.NewMongoCaseStore(mongo.DB, cipher)
	if err := cases.EnsureIndexes(ctx); err != nil {
		return err
	}

	files, err := openFiles(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("file storage ready", "backend", cfg.StorageBackend)

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		conn, ch, err := queue.ConnectRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		defer ch.Close()
		events = queue.NewAMQPPublisher(ch)
		logger.Info("connected to RabbitMQ", "exchange", queue.Exchange)
	} else {
		logger.Warn("RABBITMQ_URL not set, case events disabled")
	}

	middleware.RegisterMetrics(prometheus.DefaultRegisterer)
	metrics := service.NewMetrics(prometheus.DefaultRegisterer)

	intake := storage.NewIntake(files)
	auth := service.NewAuthenticator(identities, security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), intake, metrics)
	caseSvc := service.NewCases(cases, identities, intake, events, metrics)

	router := handlers.NewRouter(handlers.Config{
		Auth:       auth,
		Cases:      caseSvc,
		Files:      files,
		Limiter:    middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.TrustedProxies...),
		CORSOrigin: cfg.CORSAllowedOrigin,
		Health:     mongo.Ping,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("case service listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openFiles(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StorageBackend == config.StorageBackendMinio {
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return storage.NewDiskStore(cfg.UploadDir)
}
