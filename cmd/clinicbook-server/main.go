package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"clinicbook/backend/internal/cache"
	"clinicbook/backend/internal/config"
	"clinicbook/backend/internal/metrics"
	"clinicbook/backend/internal/notify"
	"clinicbook/backend/internal/profile"
	"clinicbook/backend/internal/service/scheduling"
	"clinicbook/backend/internal/store/postgres"
	"clinicbook/backend/internal/transport/httpapi"
)

const serviceName = "clinicbook"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "clinicbook-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "clinicbook-server"),
	)
	slog.SetDefault(log)

	addr := net.JoinHostPort(cfg.HTTPHost, strconv.Itoa(cfg.HTTPPort))
	log.Info("starting", slog.String("http_addr", addr), slog.String("log_level", cfg.LogLevel))

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	// Redis is optional. Without it the engine runs uncached and silent:
	// bookings still serialize through postgres.
	var (
		rdb      *redis.Client
		slots    cache.SlotCache
		notifier notify.Notifier = notify.NopNotifier{}
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Username:     cfg.RedisUsername,
			Password:     cfg.RedisPassword,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unreachable, running without cache and notifications",
				slog.Any("err", err), slog.String("redis_addr", cfg.RedisAddr))
			_ = rdb.Close()
			rdb = nil
		} else {
			slots = cache.NewRedisSlotCache(rdb, cfg.SlotCacheTTL)
			notifier = notify.NewRedisNotifier(rdb, "", log)
			defer func() {
				_ = rdb.Close()
			}()
		}
	}

	var directory profile.Directory = profile.StaticDirectory{}
	if cfg.ProfileBaseURL != "" {
		directory = profile.NewHTTPDirectory(cfg.ProfileBaseURL)
	}

	collector := metrics.NewCollector(serviceName)

	svc := scheduling.NewService(scheduling.Deps{
		Appointments: postgres.NewAppointmentRepo(db),
		Schedule:     postgres.NewScheduleRepo(db),
		Directory:    directory,
		Cache:        slots,
		Notifier:     notifier,
		Metrics:      collector,
		Logger:       log,
		MinLeadTime:  cfg.MinLeadTime,
		MaxRangeDays: cfg.MaxRangeDays,
	})

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Service: svc,
		DB:      db,
		Redis:   rdb,
		Metrics: collector,
		Logger:  log,
		Version: version(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           http.TimeoutHandler(router, cfg.RequestTimeout, `{"error":"timeout"}`),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	log.Info("http server started", slog.String("http_addr", addr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, server, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func shutdown(log *slog.Logger, server *http.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown timed out; forcing close", slog.Any("err", err))
		_ = server.Close()
		return
	}
	log.Info("http server stopped")
}

func version() string {
	if v := os.Getenv("CLINICBOOK_VERSION"); v != "" {
		return v
	}
	return "dev"
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
