// Package app assembles the automation engine: database, rule store,
// entity gateway, action registry, dispatch engine, scheduler, and the
// HTTP API, wired from a single config.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/recruitflow/automation/internal/action"
	"github.com/recruitflow/automation/internal/config"
	"github.com/recruitflow/automation/internal/db"
	"github.com/recruitflow/automation/internal/engine"
	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/harness"
	"github.com/recruitflow/automation/internal/http/api"
	"github.com/recruitflow/automation/internal/logging"
	"github.com/recruitflow/automation/internal/rulestore"
	"github.com/recruitflow/automation/internal/scheduler"
)

// Migrate opens the database and runs schema migrations.
func Migrate(ctx context.Context, cfg *config.Config) error {
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the engine and serves until ctx is canceled.
func RunServer(ctx context.Context, cfg *config.Config) error {
	logging.Setup(cfg.Log)

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	var rules rulestore.Store = rulestore.NewGormStore(conn)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rules = rulestore.NewCachedStore(rules, rdb, 0)
		log.Infof("rule cache enabled via redis at %s", cfg.Redis.Addr)
	}

	gateway := entity.NewHTTPGateway(cfg.Entity.BaseURL, cfg.Entity.Token, cfg.EntityTimeout())

	registry := action.NewRegistry()
	registry.Register(action.NewWebhookHandler(cfg.WebhookTimeout()))
	registry.Register(action.NewNotificationHandler(conn, gateway))
	registry.Register(action.NewFieldUpdateHandler(gateway))
	registry.Register(action.NewActivityHandler(gateway))

	recorder := engine.NewRecorder(conn)
	eng := engine.New(gateway, rules, registry, recorder, engine.Options{
		QueueDepth: cfg.Engine.QueueDepth,
		Workers:    cfg.Engine.Workers,
	})
	eng.Start(ctx)

	sched := scheduler.New(rules, gateway, eng, cfg.SchedulerInterval(), cfg.Scheduler.BatchLimit)
	sched.Start(ctx)

	if cleaner := engine.NewExecutionRetentionCleaner(conn, cfg.Retention.ExecutionDays); cleaner != nil {
		cleaner.Start(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api.RegisterRoutes(router, api.Deps{
		DB:         conn,
		Engine:     eng,
		Harness:    harness.New(conn, eng),
		Rules:      rules,
		Gateway:    gateway,
		AuthSecret: cfg.Auth.Secret,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("automation engine listening on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case errServe := <-errCh:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		log.Errorf("http shutdown: %v", errShutdown)
	}
	if !eng.Drain(shutdownCtx) {
		log.Warn("shutdown deadline hit before the dispatch queue drained")
	}
	log.Info("automation engine stopped")
	return nil
}
