package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	adminhandler "alumreg/internal/admin/handler"
	adminservice "alumreg/internal/admin/service"
	adminstore "alumreg/internal/admin/store"
	auditservice "alumreg/internal/audit/service"
	auditstore "alumreg/internal/audit/store"
	"alumreg/internal/email"
	"alumreg/internal/erp"
	erpcache "alumreg/internal/erp/cache"
	erpclient "alumreg/internal/erp/client"
	erphandler "alumreg/internal/erp/handler"
	erpmetrics "alumreg/internal/erp/metrics"
	"alumreg/internal/erp/validator"
	apihttp "alumreg/internal/http"
	"alumreg/internal/platform/config"
	"alumreg/internal/platform/httpserver"
	"alumreg/internal/platform/logger"
	"alumreg/internal/platform/redis"
	reghandler "alumreg/internal/registration/handler"
	regmetrics "alumreg/internal/registration/metrics"
	regservice "alumreg/internal/registration/service"
	regstore "alumreg/internal/registration/store"
	"alumreg/internal/token"
	dErrors "alumreg/pkg/domain-errors"
	"alumreg/pkg/platform/circuit"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal feature packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	regStore := regstore.NewPostgresStore(db)
	audStore := auditstore.NewPostgresStore(db)
	admStore := adminstore.NewPostgresStore(db)
	for _, ensure := range []func(context.Context) error{
		regStore.EnsureSchema, audStore.EnsureSchema, admStore.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	var tokenStore token.Store
	if redisClient != nil {
		defer redisClient.Close()
		tokenStore = token.NewRedisStore(redisClient)
	} else {
		log.Warn("redis not configured, verification tokens will not survive restarts")
		tokenStore = token.NewInMemoryStore()
	}

	erpMetrics := erpmetrics.New()
	breaker := circuit.New("erp",
		circuit.WithFailureThreshold(cfg.ERP.FailureThreshold),
		circuit.WithCooldown(cfg.ERP.BreakerCooldown),
	)
	roster := erpclient.New(cfg.ERP.BaseURL, cfg.ERP.APIKey, cfg.ERP.RequestTimeout,
		erpclient.WithMaxRetries(cfg.ERP.MaxRetries),
		erpclient.WithBackoffBase(cfg.ERP.BackoffBase),
		erpclient.WithBreaker(breaker),
		erpclient.WithLogger(log),
	)
	cache := erpcache.New(roster,
		erpcache.WithLogger(log),
		erpcache.WithMetrics(erpMetrics),
		erpcache.WithMockMode(cfg.ERP.MockMode),
	)
	go erpcache.NewRefresher(cache, cfg.ERP.RefreshInterval, log).Run(ctx)

	validatorOpts := []validator.Option{
		validator.WithLogger(log),
		validator.WithMetrics(erpMetrics),
	}
	if cfg.ERP.MockMode {
		validatorOpts = append(validatorOpts, validator.WithMockEmployees(mockRoster(cfg.ERP.MockEmployees)))
	}
	erpValidator := validator.New(cache, validatorOpts...)

	auditor := auditservice.New(audStore, auditservice.WithLogger(log))
	workflow := regservice.New(
		regStore,
		erpValidator,
		auditor,
		token.NewService(tokenStore, cfg.Registration.TokenTTL),
		email.NewLogNotifier(log),
		regservice.WithLogger(log),
		regservice.WithMetrics(regmetrics.New()),
		regservice.WithNumberPrefix(cfg.Registration.NumberPrefix),
		regservice.WithMinRejectReasonLen(cfg.Registration.MinRejectReasonLen),
	)
	auth := adminservice.New(admStore, cfg.Server.JWTSigningKey, adminservice.WithLogger(log))
	if cfg.Admin.BootstrapEmail != "" && cfg.Admin.BootstrapPassword != "" {
		_, err := auth.Provision(ctx, cfg.Admin.BootstrapEmail, cfg.Admin.BootstrapName, cfg.Admin.BootstrapPassword)
		switch {
		case err == nil:
			log.Info("provisioned bootstrap admin", "email", cfg.Admin.BootstrapEmail)
		case dErrors.HasCode(err, dErrors.CodeConflict):
			// Already provisioned on a previous start.
		default:
			log.Error("failed to provision bootstrap admin", "error", err)
			os.Exit(1)
		}
	}

	checks := map[string]apihttp.HealthChecker{
		"database":  dbChecker{db},
		"erp_cache": cache,
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := apihttp.New(cfg.Server, apihttp.Deps{
		Registration: reghandler.New(workflow, log),
		Erp:          erphandler.New(cache, log),
		Admin:        adminhandler.New(auth, log),
		Logger:       log,
		Checks:       checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting alumreg", "addr", cfg.Server.Addr, "erp_mock", cfg.ERP.MockMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

func mockRoster(entries []config.MockEmployee) []erp.EmployeeRecord {
	records := make([]erp.EmployeeRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, erp.EmployeeRecord{
			NationalID: e.NationalID,
			FullName:   e.FullName,
			StaffID:    e.StaffID,
			Department: e.Department,
		})
	}
	return records
}

type dbChecker struct{ db *sql.DB }

func (c dbChecker) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
