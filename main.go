package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/combatcore/api/rest"
	"github.com/kasuganosora/combatcore/api/sse"
	"github.com/kasuganosora/combatcore/cache"
	"github.com/kasuganosora/combatcore/combatlog"
	"github.com/kasuganosora/combatcore/config"
	dbadapter "github.com/kasuganosora/combatcore/db"
	"github.com/kasuganosora/combatcore/game/battle"
	"github.com/kasuganosora/combatcore/game/dice"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/model"
	"github.com/kasuganosora/combatcore/metrics"
	"github.com/kasuganosora/combatcore/notify"
	"github.com/kasuganosora/combatcore/plugin/hook"
	"github.com/kasuganosora/combatcore/roster"
	"github.com/kasuganosora/combatcore/save"
	"github.com/kasuganosora/combatcore/scheduler"
	"go.uber.org/zap"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database, logger)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		Prefix:          cfg.Cache.RedisPrefix,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Event hooks ----
	hooks := hook.NewHookCenter(logger)
	hooks.Register(event.TypeDied, 0, "log", func(_ context.Context, ev event.Event) error {
		if d, ok := ev.(event.Died); ok {
			logger.Info("combatant died", zap.Uint32("handle", uint32(d.Subject)))
		}
		return nil
	})

	clog := combatlog.New(db, c, combatlog.Config{
		BatchSize:     cfg.Combat.LogBatchSize,
		FlushInterval: cfg.Combat.LogFlush,
		FeedLength:    cfg.Combat.FeedLength,
		Logger:        logger,
	})
	defer clog.Stop(context.Background())
	clog.Register(hooks)

	publisher := notify.NewPublisher(pubsub, cfg.Combat.EventChannel, notify.Config{
		QueueSize: cfg.Combat.EventQueue,
		Logger:    logger,
	})
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		publisher.Stop(stopCtx)
	}()
	publisher.Register(hooks)

	var m *metrics.Metrics
	if cfg.Server.Metrics {
		m = metrics.New()
		m.Register(hooks)
	}

	// ---- Arena ----
	var roller dice.Roller
	if cfg.Combat.Seed != 0 {
		roller = dice.NewSeededRoller(cfg.Combat.Seed)
	} else {
		roller = dice.NewRoller(nil)
	}
	arena := battle.NewArena(battle.ArenaConfig{Roller: roller, Sink: hooks, Logger: logger})

	store := save.NewStore(db, c, 0, logger)
	spawned, err := roster.SpawnAll(ctx, arena, cfg.Roster, cfg.Combat.SuperArmor, store, logger)
	if err != nil {
		log.Fatalf("roster: %v", err)
	}
	logger.Info("roster spawned", zap.Int("combatants", len(spawned)))

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	sched.AddLoop("combat_frame", cfg.Combat.TickInterval(), arena.Update)
	if cfg.Combat.AutosaveInterval > 0 && len(spawned) > 0 {
		sched.AddTicker("autosave", cfg.Combat.AutosaveInterval, func() {
			if err := roster.SaveAll(ctx, arena, spawned, store); err != nil {
				logger.Warn("autosave failed", zap.Error(err))
			}
		})
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := apirest.NewRouter(ctx, apirest.Deps{
		Config:    cfg,
		Arena:     arena,
		Store:     store,
		CombatLog: clog,
		Scheduler: sched,
		Hooks:     hooks,
		Metrics:   m,
		Logger:    logger,
	})
	r.GET("/api/events", sse.NewHandler(pubsub, cfg.Combat.EventChannel, logger).ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		logger.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop()
	if len(spawned) > 0 {
		if err := roster.SaveAll(shutdownCtx, arena, spawned, store); err != nil {
			logger.Warn("final save failed", zap.Error(err))
		}
	}
}
