package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"domio/internal/audit"
	auditmemory "domio/internal/audit/store/memory"
	auditpostgres "domio/internal/audit/store/postgres"
	httpapi "domio/internal/http"
	"domio/internal/identity"
	jwttoken "domio/internal/jwt_token"
	"domio/internal/platform/config"
	"domio/internal/platform/httpserver"
	"domio/internal/platform/logger"
	"domio/internal/platform/metrics"
	platformredis "domio/internal/platform/redis"
	residencyhandler "domio/internal/residency/handler"
	residencymetrics "domio/internal/residency/metrics"
	"domio/internal/residency/service"
	"domio/internal/residency/store"
	contractstore "domio/internal/residency/store/contract"
	residencestore "domio/internal/residency/store/residence"
	rolestore "domio/internal/residency/store/role"
	userstore "domio/internal/residency/store/user"
	"domio/pkg/platform/keylock"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	var (
		users      store.UserStore
		residences store.ResidenceStore
		contracts  store.ContractStore
		roles      store.RoleStore
		auditDB    audit.Store
	)
	if cfg.Database.URL != "" {
		db, err := sql.Open("pgx", cfg.Database.URL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		users = userstore.NewPostgres(db, cfg.Database.QueryTimeout)
		residences = residencestore.NewPostgres(db, cfg.Database.QueryTimeout)
		contracts = contractstore.NewPostgres(db, cfg.Database.QueryTimeout)
		roles = rolestore.NewPostgres(db, cfg.Database.QueryTimeout)
		auditDB = auditpostgres.New(db, cfg.Database.QueryTimeout)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		users = userstore.New()
		residences = residencestore.New()
		contracts = contractstore.New()
		roles = rolestore.New()
		auditDB = auditmemory.New()
	}

	health := func() error { return nil }
	var locker keylock.Locker = keylock.NewInMemoryLocker()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = keylock.NewRedisLocker(redisClient.Client, "domio:locks:", cfg.Redis.LockTTL)
		health = func() error { return redisClient.Health(context.Background()) }
	}

	var directory identity.Directory = identity.Noop{}
	if cfg.Identity.BaseURL != "" {
		directory = identity.NewClient(cfg.Identity.BaseURL,
			identity.WithHTTPClient(&http.Client{Timeout: cfg.Identity.Timeout}),
		)
	}

	residencyMetrics := residencymetrics.New()
	recorder := audit.NewRecorder(auditDB,
		audit.WithLogger(log),
		audit.WithDropCounter(residencyMetrics),
	)

	svc := service.New(users, residences, contracts, roles, directory, recorder,
		service.WithLogger(log),
		service.WithMetrics(residencyMetrics),
		service.WithLocker(locker),
	)

	tokens := jwttoken.NewService(cfg.Server.JWTSigningKey, "domio", "domio-api")
	router := httpapi.NewRouter(httpapi.Deps{
		Residency: residencyhandler.New(svc, log),
		Validator: jwttoken.NewMiddlewareAdapter(tokens),
		Logger:    log,
		Metrics:   metrics.New(),
		Health:    health,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting domio", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
