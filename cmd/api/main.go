package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/dashboard"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/router"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/session"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/user"
	"github.com/ovaphlow/pitchfork/project-catalog/pkg/cache"
	"github.com/ovaphlow/pitchfork/project-catalog/pkg/database"
	"github.com/ovaphlow/pitchfork/project-catalog/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting project-catalog")

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init db
	cfg := database.ConfigFromEnv()
	if os.Getenv("MIGRATE_ON_START") != "0" {
		if err := database.Migrate(cfg); err != nil {
			sugar.Fatalf("db migrate: %v", err)
		}
		sugar.Infow("schema up to date", "driver", cfg.Driver)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	bootstrapAdmin(ctx, db, sugar)

	sessions, closeStore, err := newSessions(ctx, db, sugar)
	if err != nil {
		sugar.Fatalf("sessions: %v", err)
	}
	defer closeStore()

	var counter dashboard.Counter
	if path := dashboard.ConfigFromEnv().CounterFile; path != "" {
		counter = dashboard.NewFileCounter(path)
		sugar.Infow("visitor counter in file", "path", path)
	}

	handler, err := router.RegisterRoutes(router.Deps{
		Logger:   sugar,
		DB:       db,
		Sessions: sessions,
		Counter:  counter,
	})
	if err != nil {
		sugar.Fatalf("routes: %v", err)
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	go func() {
		sugar.Infow("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

// bootstrapAdmin creates the admin account from ADMIN_PASSWORD when none exists.
func bootstrapAdmin(ctx context.Context, db *sqlx.DB, sugar *zap.SugaredLogger) {
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		return
	}
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@localhost"
	}
	u, err := user.NewUserService(db, nil, nil).EnsureAdmin(ctx, email, password)
	switch {
	case err == nil:
		sugar.Infow("admin account created", "user_id", u.ID, "email", email)
	case errors.Is(err, user.ErrAdminAlreadyExists):
		sugar.Debug("admin account already present")
	default:
		sugar.Fatalf("bootstrap admin: %v", err)
	}
}

// newSessions builds the session manager over the configured store.
func newSessions(ctx context.Context, db *sqlx.DB, sugar *zap.SugaredLogger) (*session.Manager, func(), error) {
	cfg := session.ConfigFromEnv()
	if len(cfg.Secret) == 0 {
		secret, err := session.RandomSecret()
		if err != nil {
			return nil, nil, err
		}
		cfg.Secret = secret
		sugar.Warn("SESSION_SECRET not set; using a random secret, sessions end on restart")
	}

	var store session.Store
	closeStore := func() {}
	switch cfg.Store {
	case session.StoreRedis:
		client, err := cache.NewClient(ctx, cache.ConfigFromEnv())
		if err != nil {
			return nil, nil, err
		}
		store = session.NewRedisStore(client)
		closeStore = func() { client.Close() }
	case session.StoreSQL:
		sqlStore := session.NewSQLStore(db)
		if n, err := sqlStore.PurgeExpired(ctx); err != nil {
			sugar.Warnw("purge expired sessions failed", "err", err)
		} else if n > 0 {
			sugar.Infow("purged expired sessions", "count", n)
		}
		store = sqlStore
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.Store)
	}
	sugar.Infow("session store ready", "store", cfg.Store, "ttl", cfg.TTL)

	m, err := session.NewManager(cfg, store)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return m, closeStore, nil
}
