package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pocket-change/internal/bot"
	"pocket-change/internal/cache"
	"pocket-change/internal/config"
	"pocket-change/internal/db"
	"pocket-change/internal/domain"
	"pocket-change/internal/handler"
	"pocket-change/internal/job"
	"pocket-change/internal/notify"
	"pocket-change/internal/provider"
	"pocket-change/internal/rates"
	"pocket-change/internal/records"
	"pocket-change/internal/repository"
	"pocket-change/internal/service"
	"pocket-change/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "pocket-change/docs"
)

var (
	loadEnvFunc          = godotenv.Load
	loadConfigFunc       = config.Load
	initPostgresFunc     = db.InitPostgres
	initRedisFunc        = cache.InitRedis
	initTracerFunc       = tracing.InitTracer
	newSnapshotRepoFunc  = repository.NewSnapshotRepository
	newRateProviderFunc  = func(tracer trace.Tracer, cfg *config.Config) service.RateProvider {
		return provider.NewCoinGeckoProvider(tracer,
			time.Duration(cfg.FetchTimeoutSecs)*time.Second,
			cfg.FetchMaxRetries,
		)
	}
	newRatesServiceFunc    = service.NewRatesService
	newRatesPollerFunc     = job.NewRatesPoller
	startPollerFunc        = func(p *job.RatesPoller, ctx context.Context) { go p.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Pocket Change API
// @version         1.0
// @description     Crypto and fiat conversion service with cached exchange rates.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Snapshot archive is optional: without Postgres the service simply
	// keeps no rate history.
	var archive service.SnapshotArchive
	if db.Pool != nil {
		repo := newSnapshotRepoFunc(db.Pool, tracer)
		if err := repo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		archive = repo
	}

	var redisMirror cache.RedisClient
	if cache.Client != nil {
		redisMirror = cache.Client
	}

	ratesCache := cache.New(redisMirror)

	history := records.NewLog("records:history", cfg.HistoryMax, redisMirror)
	favorites := records.NewLog("records:favorites", cfg.FavoritesMax, redisMirror)
	audit := records.NewLog("records:audit", cfg.AuditMax, redisMirror)
	history.Load(ctx)
	favorites.Load(ctx)
	audit.Load(ctx)

	// Create provider, rate store, and the rates service
	rateProvider := newRateProviderFunc(tracer, cfg)
	store := rates.NewStore(domain.Code(cfg.BaseCurrency))
	ratesService := newRatesServiceFunc(tracer, rateProvider, store, ratesCache, archive,
		history, audit, time.Duration(cfg.RatesCacheTTLSecs)*time.Second)

	// Start rates poller (background goroutine, stopped by ctx cancel)
	poller := newRatesPollerFunc(tracer, ratesService, cfg.RatesPollSecs)
	startPollerFunc(poller, ctx)

	// Start Telegram bot and notifier
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBotFunc(ratesService)

	var notifier notify.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifier = notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, "", 10*time.Second)
	}

	// Create handlers and routes
	h := newHandlerFunc(tracer, ratesService, history, favorites, audit, notifier)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("pocket-change"))

	h.RegisterRoutes(r, cfg.APIKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.StaticFile("/", "./web/index.html")
	r.Static("/web", "./web")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
