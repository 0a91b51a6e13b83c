package boot

import (
	"context"
	"fmt"
	"log"
	"time"

	"mazza/src/common"
	"mazza/src/config"
	"mazza/src/db"
	"mazza/src/lib"

	"github.com/go-co-op/gocron/v2"
)

// App holds the long-lived services shared by the HTTP layer and the
// background jobs.
type App struct {
	Config    config.Config
	Repo      *db.Repository
	Readiness *db.Readiness
	Cache     lib.Cache
	Gateway   lib.PaymentGateway
	Notifier  lib.Notifier
	Events    lib.EventPublisher
	Bookings  *common.BookingService
	Sweeper   *common.Sweeper

	scheduler gocron.Scheduler
	closers   []func()
}

func InitDb(cfg config.Config, readiness *db.Readiness) (*db.Repository, error) {
	conn, err := db.Open(cfg.DatabaseDriver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		log.Printf("error migration: %s\n", err.Error())
		return nil, err
	}
	readiness.MarkReady()
	return db.NewRepository(conn), nil
}

// InitCache connects to Redis. The in-process cache is only used when
// REDIS_HOST is unset; job locks and order counters are then per process.
func InitCache(ctx context.Context, cfg config.Config) (lib.Cache, error) {
	if cfg.RedisURL == "" {
		if cfg.IsLocal() {
			log.Println("[cache] REDIS_HOST not set, using in-process cache")
		} else {
			log.Printf("[cache] WARNING: REDIS_HOST not set in %s, job locks and order counters are not shared between instances\n", cfg.APIEnv)
		}
		return lib.NewMemoryCache(), nil
	}
	client, err := lib.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("REDIS_HOST: %w", err)
	}
	cache := lib.NewRedisCache(client)
	if err := cache.Ping(ctx); err != nil {
		log.Printf("[cache] redis is not reachable yet: %s\n", err.Error())
	}
	return cache, nil
}

func InitGateway(cfg config.Config) lib.PaymentGateway {
	if !cfg.PaymentsEnabled {
		log.Println("[payments] disabled, captures will fail")
		return lib.NoopGateway{}
	}
	return lib.NewStripeGateway(lib.NewStripeClient(cfg.StripeSecretKey))
}

// InitNotifier persists every message to the inbox, then fans it out to the
// configured push channels in the background.
func InitNotifier(ctx context.Context, cfg config.Config, repo *db.Repository) lib.Notifier {
	channels := lib.MultiNotifier{lib.LogNotifier{}}
	if cfg.SecretsDir != "" {
		client, err := lib.NewFirebaseMessaging(ctx, cfg.SecretsDir)
		if err == nil {
			channels = append(channels, lib.NewFCMNotifier(client))
		}
	}
	if cfg.PusherAppID != "" && cfg.PusherKey != "" {
		client := lib.NewPusherClient(cfg.PusherAppID, cfg.PusherKey, cfg.PusherSecret, cfg.PusherCluster)
		channels = append(channels, lib.NewPusherNotifier(client))
	}
	return common.NewInboxNotifier(repo, lib.AsyncNotifier{Inner: channels})
}

func InitPublisher(cfg config.Config) (lib.EventPublisher, func()) {
	if cfg.KafkaBroker == "" {
		return lib.NoopPublisher{}, func() {}
	}
	publisher, err := lib.NewKafkaPublisher(cfg.KafkaBroker, "mazza-api-"+cfg.InstanceID, cfg.KafkaTopic)
	if err != nil {
		log.Println("[kafka] lifecycle events disabled")
		return lib.NoopPublisher{}, func() {}
	}
	return publisher, publisher.Close
}

// Init wires every service from cfg. The database must be reachable.
func Init(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg, Readiness: &db.Readiness{}}
	cache, err := InitCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Cache = cache
	repo, err := InitDb(cfg, app.Readiness)
	if err != nil {
		return nil, err
	}
	app.Repo = repo
	app.Gateway = InitGateway(cfg)
	app.Notifier = InitNotifier(ctx, cfg, repo)
	events, closeEvents := InitPublisher(cfg)
	app.Events = events
	app.closers = append(app.closers, closeEvents)

	app.Bookings = common.NewBookingService(
		repo,
		app.Gateway,
		app.Notifier,
		app.Events,
		common.NewOrderNumberAllocator(app.Cache, time.Now),
		common.BookingOptions{Currency: cfg.Currency, PaymentTimeout: cfg.PaymentTimeout},
	)
	app.Sweeper = common.NewSweeper(repo, app.Cache, app.Notifier, app.Events, app.Readiness, common.SweeperOptions{
		InstanceID: cfg.InstanceID,
		LockTTL:    cfg.JobLockTTL,
	})
	return app, nil
}

// InitScheduler starts the periodic sweeps. It is a no-op when the scheduler
// is switched off for this instance.
func (a *App) InitScheduler(ctx context.Context) error {
	if !a.Config.SchedulerOn {
		log.Println("[scheduler] disabled on this instance")
		return nil
	}
	sched, err := lib.NewScheduler()
	if err != nil {
		return err
	}
	if _, err := lib.SchedulePeriodic(sched, ctx, a.Sweeper.Jobs()...); err != nil {
		_ = sched.Shutdown()
		return err
	}
	sched.Start()
	a.scheduler = sched
	return nil
}

// Shutdown stops the scheduler, then flushes the event producer.
func (a *App) Shutdown() {
	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(); err != nil {
			log.Printf("An error has occurred while stopping Scheduler: %s\n", err.Error())
		}
	}
	for _, c := range a.closers {
		c()
	}
}
