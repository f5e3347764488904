package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"resumaid/internal/artifacts"
	googleauth "resumaid/internal/auth"
	"resumaid/internal/convert"
	"resumaid/internal/hydrate"
	"resumaid/internal/intake"
	"resumaid/internal/llm"
	"resumaid/internal/llm/gemini"
	openai "resumaid/internal/llm/openai"
	"resumaid/internal/maintenance"
	"resumaid/internal/resumes"
	"resumaid/internal/services/health"
	"resumaid/internal/shared/config"
	"resumaid/internal/shared/server"
	"resumaid/internal/shared/storage/db"
	"resumaid/internal/shared/storage/kv"
	"resumaid/internal/shared/storage/object"
	localstore "resumaid/internal/shared/storage/object/local"
	s3store "resumaid/internal/shared/storage/object/s3"
	"resumaid/internal/shared/telemetry"
)

const blobRoutePrefix = "/api/v1/blobs/"

// App holds shared dependencies.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	KV          kv.Gateway
	Store       object.ObjectStore
	LLM         llm.Client
	Converter   *convert.Converter
	Registry    *artifacts.Registry
	Resumes     *resumes.Service
	Pipeline    *intake.Pipeline
	Loader      *hydrate.Loader
	Maintenance *maintenance.Service
	GoogleAuth  *googleauth.GoogleService

	closers []func() error
}

// Build prepares shared dependencies and wires routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	app := &App{Config: cfg}

	gateway, err := buildKV(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.KV = gateway
	app.closers = append(app.closers, gateway.Close)

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	llmClient, err := buildLLM(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.LLM = llmClient
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	app.Converter = convert.New(cfg.RenderScale)
	app.Registry = artifacts.NewRegistry(cfg.ArtifactTTL, blobRoutePrefix)
	app.Registry.SetViewLimit(cfg.ArtifactViewLimit)
	app.closers = append(app.closers, func() error {
		app.Registry.Close()
		return nil
	})

	app.Resumes = &resumes.Service{KV: app.KV}
	app.Pipeline = &intake.Pipeline{
		Store:          app.Store,
		Resumes:        app.Resumes,
		LLM:            app.LLM,
		Previewer:      app.Converter,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	app.Loader = &hydrate.Loader{
		Resumes:  app.Resumes,
		Store:    app.Store,
		Registry: app.Registry,
	}
	app.Maintenance = &maintenance.Service{Store: app.Store, KV: app.KV}
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		cfg.Env == "production",
	)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:             cfg,
		Health:             health.NewService(map[string]health.Pinger{"kv": app.KV}),
		GoogleAuth:         app.GoogleAuth,
		IntakeHandler:      intake.NewHandler(app.Pipeline, intake.NewGuard()),
		ResumesHandler:     resumes.NewHandler(app.Resumes),
		HydrateHandler:     hydrate.NewHandler(app.Loader),
		ArtifactsHandler:   &artifacts.Handler{Registry: app.Registry},
		MaintenanceHandler: maintenance.NewHandler(app.Maintenance),
	})

	return app, nil
}

// Close releases every dependency in reverse order of construction.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildKV(ctx context.Context, cfg config.Config) (kv.Gateway, error) {
	switch cfg.KVStoreType {
	case "redis":
		gateway, err := kv.NewRedisGateway(ctx, kv.RedisConfig{URL: cfg.RedisURL, Prefix: cfg.RedisPrefix})
		if err != nil {
			return fallbackKV(cfg, err)
		}
		return gateway, nil
	case "postgres":
		sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.ServerPool().WithEnv())
		if err != nil {
			return fallbackKV(cfg, err)
		}
		if _, err := db.Migrate(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return fallbackKV(cfg, fmt.Errorf("run migrations: %w", err))
		}
		return &kv.PGGateway{DB: sqlDB}, nil
	default:
		return kv.NewMemoryGateway(), nil
	}
}

// fallbackKV degrades to the in-memory gateway outside production.
func fallbackKV(cfg config.Config, cause error) (kv.Gateway, error) {
	if !isDevLike(cfg.Env) {
		return nil, fmt.Errorf("kv %s: %w", cfg.KVStoreType, cause)
	}
	telemetry.Warn("bootstrap.kv_fallback", map[string]any{
		"kv_store": cfg.KVStoreType,
		"error":    cause.Error(),
	})
	return kv.NewMemoryGateway(), nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "openai":
		client, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, 0)
	case "gemini":
		client, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	default:
		return llm.PlaceholderClient{}, nil
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.llm_placeholder", map[string]any{
				"provider": cfg.LLMProvider,
				"error":    err.Error(),
			})
			return llm.PlaceholderClient{}, nil
		}
		return nil, err
	}
	return client, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
