package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/imagelens/backend/internal/adapters/cache"
	httpadapter "github.com/imagelens/backend/internal/adapters/http"
	"github.com/imagelens/backend/internal/adapters/postgres"
	"github.com/imagelens/backend/internal/adapters/security"
	"github.com/imagelens/backend/internal/adapters/storage"
	"github.com/imagelens/backend/internal/adapters/vision"
	"github.com/imagelens/backend/internal/application"
	"github.com/imagelens/backend/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping imagelens backend", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Without Redis the challenge and throttle state lives in-process, which
	// is correct for a single replica. Redis-backed stores keep the same
	// semantics across replicas.
	var challenges ports.ChallengeStore = cacheadapter.NewMemoryChallengeStore()
	var throttle ports.RequestThrottle = cacheadapter.NewMemoryThrottle()
	cleanup := func(context.Context) { _ = sqlDB.Close() }
	if cfg.RedisURL != "" {
		redisClient, redisErr := cacheadapter.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("connect redis: %w", redisErr)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		challenges = cacheadapter.NewRedisChallengeStore(redisClient)
		throttle = cacheadapter.NewRedisThrottle(redisClient)
		cleanup = func(context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		}
	}

	tokenSigner, err := security.NewJWTSigner(cfg.JWTKeyID, cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM)
	if err != nil {
		if !cfg.AllowEphemeralJWT {
			cleanup(ctx)
			return nil, fmt.Errorf("init jwt signer: %w", err)
		}
		logger.Warn("using ephemeral JWT keys for local/dev runtime")
		tokenSigner, err = security.NewEphemeralJWTSigner(cfg.JWTKeyID)
		if err != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("init ephemeral jwt signer: %w", err)
		}
	}

	files, err := storage.NewLocalFileStore(cfg.UploadDir)
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("init file store: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			TokenTTL:               cfg.TokenTTL,
			RegisterLimitPerMinute: cfg.RegisterLimitPerMinute,
			LoginLimitPerMinute:    cfg.LoginLimitPerMinute,
			AnalyzeLimitPerMinute:  cfg.AnalyzeLimitPerMinute,
			MaxUploadBytes:         cfg.MaxUploadBytes,
			AllowedExtensions:      cfg.AllowedExtensions,
			DefaultProvider:        cfg.DefaultProvider,
			TargetLang:             cfg.TargetLang,
		},
		Users:      repos.Users,
		Analyses:   repos.Analyses,
		Challenges: challenges,
		Throttle:   throttle,
		Hasher:     security.NewBcryptHasher(cfg.BcryptCost),
		Signer:     tokenSigner,
		Files:      files,
		Detectors: []ports.LabelDetector{
			vision.NewGoogleDetector(cfg.GoogleEndpoint, cfg.GoogleAPIKey),
			vision.NewImaggaDetector(cfg.ImaggaEndpoint, cfg.ImaggaAPIKey, cfg.ImaggaAPISecret),
		},
		Translator: vision.NewGoogleTranslator(cfg.TranslateEndpoint),
	})

	handler := httpadapter.NewHandler(svc, cfg.MaxUploadBytes)
	router := httpadapter.NewRouter(handler, cfg.FrontendOrigin)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		cleanupFn:  cleanup,
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}
