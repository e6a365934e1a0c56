// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gichigi/choir/internal/config"
	"github.com/gichigi/choir/internal/core"
	db "github.com/gichigi/choir/internal/core/database"
	"github.com/gichigi/choir/internal/core/extractor"
	"github.com/gichigi/choir/internal/core/llm"
	objectclient "github.com/gichigi/choir/internal/core/object-client"
	"github.com/gichigi/choir/internal/core/ratelimit"
	"github.com/gichigi/choir/internal/generation"
	"github.com/gichigi/choir/internal/services"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Server       *Server

	closers []io.Closer
	log     *zap.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{log: log}

	dbClient, err := newStore(appCtx, cfg, log.Named("db"))
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	a.closers = append(a.closers, dbClient)
	log.Info("store initialized and ready", zap.String("driver", cfg.StoreDriver))

	var objects core.ObjectClient
	bucket := ""
	if cfg.S3Enabled() {
		s3Client, err := objectclient.NewS3Client(appCtx, cfg, log.Named("s3"))
		if err != nil {
			a.Close()
			return nil, err
		}
		objects, bucket = s3Client, s3Client.Bucket()
		a.ObjectClient = s3Client
	} else {
		log.Info("object storage not configured, content export disabled")
	}

	provider, err := newProvider(appCtx, cfg, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("couldn't initialize the generation provider, %w", err)
	}
	if c, ok := provider.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	var limiter core.RateLimiter
	if cfg.RedisAddr != "" {
		l, err := ratelimit.Dial(appCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			a.Close()
			return nil, err
		}
		limiter = l
		a.closers = append(a.closers, l)
	}

	gen := generation.NewGenerator(provider, cfg.GenerationTimeout, log.Named("generation"))

	svc := Services{
		Accounts:      services.NewAccountService(dbClient, cfg.JWTSecret),
		Onboarding:    services.NewOnboardingService(dbClient, log.Named("onboarding")),
		Voices:        services.NewBrandVoiceService(dbClient, gen, log.Named("brand_voice")),
		Content:       services.NewContentService(dbClient, gen, objects, bucket, log.Named("content")),
		Subscriptions: services.NewSubscriptionService(dbClient, cfg.BillingWebhookSecret, log.Named("billing")),
		Extractor:     extractor.NewDocconvExtractor(false, log.Named("extractor")),
		Limiter:       limiter,
	}
	if cfg.BillingWebhookSecret == "" {
		log.Warn("BILLING_WEBHOOK_SECRET not set, billing webhooks will be rejected")
	}

	a.Server = NewServer(cfg, svc, log)
	return a, nil
}

func newStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (core.DbClient, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return db.NewMemoryClient(), nil
	}
	return db.NewDatabaseClient(ctx, cfg, log)
}

// newProvider returns nil when no credentials are configured, in which case
// every generation falls back.
func newProvider(ctx context.Context, cfg *config.Config, log *zap.Logger) (core.LLMProvider, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			log.Warn("OPENAI_API_KEY not set, generation will use fallbacks")
			return nil, nil
		}
		return llm.NewOpenAICompatLLM(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		if cfg.AIAPIKey == "" {
			log.Warn("GEMINI_API_KEY not set, generation will use fallbacks")
			return nil, nil
		}
		return llm.NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel)
	}
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.Server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
}
