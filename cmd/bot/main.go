package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ovenlight/pizzeria-bot/internal/apperrors"
	"github.com/ovenlight/pizzeria-bot/internal/commerce"
	"github.com/ovenlight/pizzeria-bot/internal/database"
	"github.com/ovenlight/pizzeria-bot/internal/engine"
	"github.com/ovenlight/pizzeria-bot/internal/flow"
	"github.com/ovenlight/pizzeria-bot/internal/geocode"
	"github.com/ovenlight/pizzeria-bot/internal/health"
	"github.com/ovenlight/pizzeria-bot/internal/jobs"
	"github.com/ovenlight/pizzeria-bot/internal/orders"
	"github.com/ovenlight/pizzeria-bot/internal/render"
	"github.com/ovenlight/pizzeria-bot/internal/session"
	"github.com/ovenlight/pizzeria-bot/internal/transport"
	"github.com/ovenlight/pizzeria-bot/pkg/config"
	"github.com/ovenlight/pizzeria-bot/pkg/graceful"
	"github.com/ovenlight/pizzeria-bot/pkg/logger"
	redisclient "github.com/ovenlight/pizzeria-bot/pkg/redis"
)

const migrationsDir = "migrations"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			log.Error("sentry init failed", slog.Any("error", err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error("bot terminated", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	if err := database.NewMigrator(db, log).ApplyDir(ctx, migrationsDir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	renderer, err := render.New(cfg.Renderer.TemplatesDir, log)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	if cfg.Renderer.Watch {
		go func() {
			if err := renderer.Watch(ctx); err != nil {
				log.Error("template watcher stopped", slog.Any("error", err))
			}
		}()
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	scheduler := jobs.NewScheduler(redisOpt, cfg.Delivery.ReminderDelay, log)
	defer scheduler.Close()

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)
	bot, err := transport.NewBot(cfg.Bot, errHandler, log)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	sender := transport.NewSender(bot.Telebot(), cfg.Bot.PaymentToken, cfg.Bot.Currency)

	svc := &flow.Services{
		Transport: sender,
		Commerce:  commerce.NewClient(cfg.Commerce, log),
		Geocoder:  geocode.NewClient(cfg.Geocoder),
		Renderer:  renderer,
		Reminders: scheduler,
		Orders:    orders.NewRepository(db, log),
		Delivery:  flow.PolicyFromConfig(cfg.Delivery),
		Log:       log,
	}

	eng := engine.New(
		session.NewRedisStore(rdb.Client, log),
		flow.NewCodec(svc),
		func() engine.State { return flow.NewMenu(svc, 0) },
		log,
	)
	bot.Bind(eng)

	worker := jobs.NewWorker(redisOpt, sender, renderer, log)
	go func() {
		if err := worker.Run(); err != nil {
			log.Error("reminder worker stopped", slog.Any("error", err))
		}
	}()

	checker := health.NewChecker(log)
	checker.AddCheck("redis", health.NewRedisChecker(rdb))
	checker.AddCheck("postgres", health.NewDBChecker(db))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", checker.Handler())
	srv := graceful.NewServer(log, &http.Server{
		Addr:    cfg.Server.Port,
		Handler: mux,
	}, cfg.Server.ShutdownTimeout)
	go func() {
		if err := srv.ListenAndServe(ctx); err != nil {
			log.Error("http server stopped", slog.Any("error", err))
		}
	}()

	go bot.Start()

	<-ctx.Done()
	log.Info("shutting down")
	bot.Stop()
	worker.Shutdown()

	return nil
}
