package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sosecurity/api/internal/config"
	"github.com/sosecurity/api/internal/domain/alerting"
	"github.com/sosecurity/api/internal/domain/identity"
	"github.com/sosecurity/api/internal/domain/medical"
	"github.com/sosecurity/api/internal/platform/auth"
	"github.com/sosecurity/api/internal/platform/crud"
	"github.com/sosecurity/api/internal/platform/db"
	"github.com/sosecurity/api/internal/platform/middleware"
	"github.com/sosecurity/api/internal/platform/response"
	"github.com/sosecurity/api/internal/platform/validation"
	"github.com/sosecurity/api/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "sosecurity-server",
		Short: "SOSecurity emergency alert API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetInt("to")

			migrator, closePool, err := openMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closePool()

			count, err := migrator.UpTo(cmd.Context(), to)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().Int("to", 0, "Stop after this version (0 applies everything)")
	cmd.AddCommand(upCmd)

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closePool, err := openMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func openMigrator(ctx context.Context) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, migrations.FS), pool.Close, nil
}

func newLogger(dev bool) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.IsDev())
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Int32("max_conns", cfg.DBMaxConns).Msg("connected to database")

	revoker, closeRevoker, err := newRevoker(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up token revocation")
	}
	defer closeRevoker()

	e, err := newServer(cfg, logger, db.WrapPool(pool), pool, revoker)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newRevoker keeps revoked tokens in Redis when REDIS_URL is set so logouts
// survive restarts and are shared between replicas.
func newRevoker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (auth.Revoker, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, revoked tokens are kept in memory")
		store := auth.NewMemoryRevocationStore(time.Minute)
		return store, store.Close, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info().Str("addr", opts.Addr).Msg("connected to redis")
	return auth.NewRedisRevocationStore(client), func() { client.Close() }, nil
}

// newServer assembles the HTTP surface. pool hands out per-request
// connections; pinger backs the database health check.
func newServer(cfg *config.Config, logger zerolog.Logger, pool db.Pool, pinger db.Pinger, revoker auth.Revoker) (*echo.Echo, error) {
	for _, group := range [][]*crud.Descriptor{identity.Resources(), medical.Resources(), alerting.Resources()} {
		for _, d := range group {
			if err := d.Check(); err != nil {
				return nil, err
			}
		}
	}

	extractIP, err := ipExtractor(cfg)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = extractIP
	e.HTTPErrorHandler = response.ErrorHandler(logger)

	v := validation.New()
	e.Validator = v

	// Global middleware
	e.Pre(middleware.Sanitize(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return response.OK(c, "ok", map[string]string{"version": version})
	})
	e.GET("/health/db", db.HealthHandler(pinger))

	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)
	router := crud.NewRouter(e, auth.Middleware(tokens, revoker), db.ConnMiddleware(pool))

	loginLimit := middleware.LoginRateLimitConfig()
	if cfg.LoginRateLimitRPS > 0 {
		loginLimit.RequestsPerSecond = cfg.LoginRateLimitRPS
	}
	if cfg.LoginRateLimitBurst > 0 {
		loginLimit.BurstSize = cfg.LoginRateLimitBurst
	}

	identitySvc := identity.NewService(identity.NewCredentialsRepo(), tokens)
	identity.NewHandler(identitySvc, v, revoker, middleware.RateLimit(loginLimit), crud.PGStores).RegisterRoutes(router)
	medical.NewHandler(medical.NewContactRepo(), v, crud.PGStores).RegisterRoutes(router)
	alerting.NewHandler(v, crud.PGStores).RegisterRoutes(router)

	return e, nil
}

// ipExtractor decides which address identifies a client for rate limiting.
// X-Forwarded-For is honoured only when the peer is a configured proxy.
func ipExtractor(cfg *config.Config) (echo.IPExtractor, error) {
	ranges, err := cfg.ProxyRanges()
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return echo.ExtractIPDirect(), nil
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range ranges {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}
