// Package main runs the storefront API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	app "github.com/codemart-io/storefront/internal/app"
	"github.com/codemart-io/storefront/internal/app/httpapi"
	"github.com/codemart-io/storefront/internal/app/metrics"
	"github.com/codemart-io/storefront/internal/app/storage/postgres"
	"github.com/codemart-io/storefront/internal/app/storage/postgres/migrations"
	"github.com/codemart-io/storefront/internal/config"
	"github.com/codemart-io/storefront/internal/middleware"
	"github.com/codemart-io/storefront/pkg/logger"
)

func main() {
	addr := flag.String("addr", "", "listen address (overrides SERVER_HOST/SERVER_PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("server").WithError(err).Fatalf("configuration error")
	}

	log := logger.New(logger.LoggingConfig{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		Component: "server",
	})

	stores := app.Stores{}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatalf("open database")
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetConnMaxIdleTime(5 * time.Minute)

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migrations.Apply(migrateCtx, db); err != nil {
			cancel()
			log.WithError(err).Fatalf("apply migrations")
		}
		cancel()

		pg := postgres.New(db)
		stores = app.Stores{
			Products:  pg,
			Purchases: pg,
			Contacts:  pg,
			Posts:     pg,
			Users:     pg,
		}
		log.Infof("using postgres storage")
	} else {
		log.Warnf("DATABASE_URL not set, falling back to in-memory storage")
	}

	application := app.New(stores, app.Options{
		JWTSecret:            cfg.Auth.JWTSecret,
		TokenTTL:             cfg.Auth.TokenTTL,
		AutoCompletePayments: cfg.AutoCompletePayments,
	}, log)

	apiHandler, err := httpapi.NewHandler(application, httpapi.Options{
		AuditLogPath: cfg.AuditLogPath,
		Logger:       log.WithField("component", "httpapi"),
	})
	if err != nil {
		log.WithError(err).Fatalf("build handler")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	limiter.StartCleanup(10 * time.Minute)
	cors := middleware.NewCORSMiddleware(cfg.AllowedOrigins)

	root := http.NewServeMux()
	root.Handle("/metrics", metrics.Handler())
	root.Handle("/", cors.Handler(limiter.Handler(apiHandler)))

	listen := cfg.Server.Addr()
	if *addr != "" {
		listen = *addr
	}

	server := &http.Server{
		Addr:         listen,
		Handler:      metrics.InstrumentHandler(root),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Infof("storefront API listening on %s", listen)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Fatalf("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warnf("shutdown incomplete")
	}
}
