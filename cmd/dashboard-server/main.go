package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/clinicaldash/internal/config"
	"github.com/ehr/clinicaldash/internal/domain/dashboard"
	"github.com/ehr/clinicaldash/internal/domain/extraction"
	"github.com/ehr/clinicaldash/internal/domain/session"
	"github.com/ehr/clinicaldash/internal/platform/analytics"
	"github.com/ehr/clinicaldash/internal/platform/auth"
	"github.com/ehr/clinicaldash/internal/platform/db"
	"github.com/ehr/clinicaldash/internal/platform/middleware"
	"github.com/ehr/clinicaldash/internal/platform/pipeline"
	"github.com/ehr/clinicaldash/internal/platform/websocket"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dashboard-server",
		Short: "Clinical Data Platform demo dashboard",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(fixturesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func fixturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Print the step script and fixture result for a query type as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, _ := cmd.Flags().GetString("type")
			return writeFixtures(cmd.OutOrStdout(), typ, time.Now())
		},
	}
	cmd.Flags().String("type", string(extraction.QueryIndividual), "query type (individual or population)")
	return cmd
}

type fixtureDump struct {
	QueryType extraction.QueryType     `json:"query_type"`
	Steps     []extraction.ProcessStep `json:"process_steps"`
	Result    extraction.Result        `json:"result"`
}

func writeFixtures(w io.Writer, typ string, now time.Time) error {
	qt, ok := extraction.ParseQueryType(typ)
	if !ok {
		return fmt.Errorf("unknown query type %q", typ)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fixtureDump{
		QueryType: qt,
		Steps:     extraction.Steps(qt),
		Result:    extraction.Generate(qt, now),
	})
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// server is the wired application. Background loops are started by run.
type server struct {
	echo   *echo.Echo
	hub    *websocket.Hub
	memory *session.MemoryStore
	relay  *websocket.RedisRelay
	redis  *redis.Client
	logger zerolog.Logger
}

func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*server, error) {
	secret, generated, err := cfg.SessionSecretBytes()
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn().Msg("SESSION_SECRET not set; using a random key, sessions will not survive a restart")
	}

	s := &server{hub: websocket.NewHub(logger), logger: logger}

	// Session store and event fan-out
	var store session.Store
	var events websocket.EventPublisher = s.hub
	switch cfg.SessionStore {
	case config.StoreRedis:
		client, err := db.NewRedis(ctx, cfg.RedisURL, cfg.RedisPoolSize)
		if err != nil {
			return nil, err
		}
		s.redis = client
		s.relay = websocket.NewRedisRelay(client, s.hub, logger)
		store = session.NewRedisStore(client, cfg.SessionTTL)
		events = s.relay
		logger.Info().Msg("connected to redis")
	default:
		s.memory = session.NewMemoryStore(cfg.SessionTTL)
		store = s.memory
	}

	runs := analytics.NewRunTracker(cfg.RunHistory)
	usage := analytics.NewUsageTracker()
	seq := pipeline.New(cfg.StepDelay)
	svc := session.NewService(store, seq, events, runs, logger, cfg.ExportDelay)

	renderer, err := dashboard.NewRenderer()
	if err != nil {
		return nil, err
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderContentType, middleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Health checks sit outside the session so probes do not mint cookies.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if s.redis != nil {
		e.GET("/health/store", db.HealthHandler(s.redis))
	} else {
		e.GET("/health/store", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"status":   "healthy",
				"store":    config.StoreMemory,
				"sessions": s.memory.Len(),
			})
		})
	}

	issuer := auth.NewSessionIssuer(auth.SessionConfig{
		Secret: secret,
		TTL:    cfg.SessionTTL,
		Secure: cfg.IsProduction(),
	})
	rateLimitCfg := middleware.DefaultRateLimitConfig()
	rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	rateLimitCfg.BurstSize = cfg.RateLimitBurst

	limiter := middleware.RateLimit(rateLimitCfg)

	app := e.Group("", auth.SessionMiddleware(issuer), analytics.UsageMiddleware(usage), limiter)
	apiV1 := e.Group("/api/v1", auth.SessionMiddleware(issuer), analytics.UsageMiddleware(usage), limiter)
	wsGroup := e.Group("/ws", auth.SessionMiddleware(issuer))

	dashboard.NewHandler(svc, logger).RegisterRoutes(app)
	session.NewHandler(svc).RegisterRoutes(apiV1)
	analytics.NewHandler(runs, usage).RegisterRoutes(apiV1)
	websocket.NewHandler(s.hub).RegisterRoutes(wsGroup)

	s.echo = e
	return s, nil
}

// sweepSessions drops expired in-memory sessions every interval until ctx is
// done.
func (s *server) sweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.memory.Sweep(now); n > 0 {
				s.logger.Debug().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}

func (s *server) run(ctx context.Context, addr string) error {
	if s.memory != nil {
		go s.sweepSessions(ctx, time.Minute)
	}
	if s.relay != nil {
		go func() {
			if err := s.relay.Run(ctx); err != nil {
				s.logger.Error().Err(err).Msg("event relay stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("starting server")
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	s.hub.BroadcastAll(websocket.Event{Type: websocket.EventShutdown, Timestamp: time.Now().UTC()})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("closing redis client")
		}
	}
	s.logger.Info().Msg("server stopped")
	return nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		return err
	}

	logger.Info().
		Str("env", cfg.Env).
		Str("session_store", cfg.SessionStore).
		Dur("step_delay", cfg.StepDelay).
		Msg("dashboard configured")

	return srv.run(ctx, ":"+cfg.Port)
}
