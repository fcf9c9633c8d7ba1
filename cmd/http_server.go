package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/frahmantamala/rahat-dashboard/api"
	"github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/admin"
	"github.com/frahmantamala/rahat-dashboard/internal/audit"
	auditPostgres "github.com/frahmantamala/rahat-dashboard/internal/audit/postgres"
	"github.com/frahmantamala/rahat-dashboard/internal/auth"
	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	"github.com/frahmantamala/rahat-dashboard/internal/cases"
	"github.com/frahmantamala/rahat-dashboard/internal/core/events"
	"github.com/frahmantamala/rahat-dashboard/internal/dashboard"
	"github.com/frahmantamala/rahat-dashboard/internal/search"
	"github.com/frahmantamala/rahat-dashboard/internal/transport"
	"github.com/frahmantamala/rahat-dashboard/internal/transport/middleware"
	"github.com/frahmantamala/rahat-dashboard/internal/transport/rest"
	"github.com/frahmantamala/rahat-dashboard/internal/transport/swagger"
	"github.com/frahmantamala/rahat-dashboard/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the dashboard server: page view models, dashboard actions and the audit trail`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Router   *chi.Mux
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Backend  *backend.Client
	Cache    *cache.Cache
	EventBus *events.EventBus
	Limiter  *middleware.RateLimiter
	Spec     *swagger.Spec
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go deps.Limiter.Run(ctx)
	go deps.Cache.Run(ctx)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "backend", deps.Config.Backend.BaseURL)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		stop()
		// let in-flight audit writes land before the pool goes away
		deps.EventBus.Close()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	cfg := deps.Config
	lg := deps.Logger
	base := transport.NewBaseHandler(lg)

	auditRepo := auditPostgres.NewAuditRepository(deps.Gorm)
	audit.NewRecorder(auditRepo, lg).Register(deps.EventBus)

	casesService := cases.NewService(deps.Backend, deps.Cache, deps.EventBus, lg)
	adminService := admin.NewService(deps.Backend, deps.Cache, deps.EventBus, lg)
	thanaService := search.NewThanaService(deps.Backend, deps.Cache, cfg.Search.PageLimit, lg)

	routes := rest.Routes{
		Logger:         lg,
		AllowedOrigins: splitOrigins(cfg.Server.AllowedOrigins),
		Health: rest.NewHealthHandler(
			rest.DBCheck(deps.DB.DB),
			rest.BackendCheck(backendProbe(deps.Backend)),
		),
		Spec:          deps.Spec,
		SignInLimiter: deps.Limiter,
		Guard: auth.NewMiddleware(base, deps.Backend, deps.Cache, auth.MiddlewareConfig{
			StaleTime:   cfg.Session.StaleTime,
			SignInPath:  cfg.Session.SignInPath,
			FlashCookie: cfg.Session.FlashCookieName,
		}),
		Auth:   auth.NewHandler(base, auth.NewService(deps.Backend, deps.Cache, lg), cfg.Session.SignInPath, cfg.Session.FlashCookieName),
		Pages:  dashboard.NewHandler(base, casesService, adminService, cfg.Session.FlashCookieName),
		Cases:  cases.NewHandler(base, casesService),
		Search: search.NewHandler(base, thanaService),
		Admin:  admin.NewHandler(base, adminService),
		Audit:  audit.NewHandler(base, audit.NewService(auditRepo)),
	}
	if cfg.Observability.Metrics.Enabled {
		routes.Metrics = middleware.NewHTTPMetrics(deps.Registry)
		routes.MetricsPath = cfg.Observability.Metrics.Path
		routes.MetricsHandler = promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})
	}

	rest.RegisterAllRoutes(deps.Router, routes)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lc := config.Observability.Logging
	lg := logger.Setup(logger.Options{
		Env:        config.Env,
		Level:      lc.Level,
		Format:     lc.Format,
		File:       lc.File,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAgeDays: lc.MaxAgeDays,
		Compress:   lc.Compress,
	})

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open gorm on the audit database: %w", err)
	}

	spec, err := swagger.Load(context.Background(), api.OpenAPI)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var opts []backend.Option
	if config.Observability.Metrics.Enabled {
		opts = append(opts, backend.WithMetrics(backend.NewMetrics(reg)))
	}
	client := backend.NewClient(backend.Config{
		BaseURL:        config.Backend.BaseURL,
		Timeout:        config.Backend.Timeout,
		MaxRetries:     config.Backend.MaxRetries,
		RetryBaseDelay: config.Backend.RetryBaseDelay,
		RetryMaxDelay:  config.Backend.RetryMaxDelay,
	}, lg, opts...)

	return &Dependencies{
		Config:   config,
		Logger:   lg,
		DB:       db,
		Gorm:     gormDB,
		Router:   chi.NewRouter(),
		Registry: reg,
		Backend:  client,
		Cache:    cache.New(cache.WithLogger(lg)),
		EventBus: events.NewEventBus(lg),
		Limiter:  middleware.NewRateLimiter(config.RateLimit.SignInBurst, config.RateLimit.SignInPerMinute),
		Spec:     spec,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// backendProbe treats any answer short of a transport error or a 5xx as up.
func backendProbe(c *backend.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := c.GetSession(ctx)
		if apiErr, ok := backend.AsAPIError(err); ok && apiErr.Status < http.StatusInternalServerError {
			return nil
		}
		return err
	}
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
