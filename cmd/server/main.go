// Command server starts the GameBay catalog HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"gamebay/internal/api"
	"gamebay/internal/auth"
	"gamebay/internal/observability/logging"
	"gamebay/internal/observability/metrics"
	"gamebay/internal/server"
	"gamebay/internal/storage"
)

func main() {
	// Local .env files supplement but never override the real environment.
	_ = godotenv.Load()

	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to the JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	sessionStoreDriver := flag.String("session-store", "", "session store driver (memory, redis, or postgres)")
	sessionPostgresDSN := flag.String("session-postgres-dsn", "", "Postgres DSN for the session store")
	sessionRedisAddr := flag.String("session-redis-addr", "", "Redis address for the session store")
	sessionRedisUsername := flag.String("session-redis-username", "", "Redis username for the session store")
	sessionRedisPassword := flag.String("session-redis-password", "", "Redis password for the session store")
	sessionRedisDB := flag.Int("session-redis-db", 0, "Redis database index for the session store")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("GAMEBAY_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("GAMEBAY_LOG_FORMAT")),
	})
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("GAMEBAY_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("GAMEBAY_ADDR"))

	resolvedPostgresDSN := resolvePostgresDSN(*postgresDSN)
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("GAMEBAY_STORAGE_DRIVER"), resolvedPostgresDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}
	if serverMode == "production" && driver != "postgres" {
		logger.Error("production mode requires the postgres datastore driver", "driver", driver)
		os.Exit(1)
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer bootCancel()

	var (
		store              storage.Repository
		storagePostgresDSN string
	)
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("GAMEBAY_DATA"))
		store, err = storage.NewStorage(dataFile)
	case "postgres":
		storagePostgresDSN = resolvedPostgresDSN
		if storagePostgresDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		store, err = storage.NewPostgresRepository(bootCtx, storagePostgresDSN)
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	sessionConfig, err := resolveSessionStoreConfig(sessionStoreInputs{
		FlagDriver:    *sessionStoreDriver,
		EnvDriver:     os.Getenv("GAMEBAY_SESSION_STORE"),
		StorageDriver: driver,
		StorageDSN:    storagePostgresDSN,
		FlagDSN:       *sessionPostgresDSN,
		EnvDSN:        os.Getenv("GAMEBAY_SESSION_POSTGRES_DSN"),
		FlagRedisAddr: *sessionRedisAddr,
		EnvRedisAddr:  os.Getenv("GAMEBAY_SESSION_REDIS_ADDR"),
	})
	if err != nil {
		logger.Error("failed to resolve session store", "error", err)
		os.Exit(1)
	}

	var (
		sessionStore  auth.SessionStore
		sessionCloser func(context.Context) error
	)
	switch sessionConfig.Driver {
	case "memory":
		sessionStore = auth.NewMemorySessionStore()
	case "redis":
		redisStore, err := auth.NewRedisSessionStore(auth.RedisSessionStoreConfig{
			Addr:     sessionConfig.RedisAddr,
			Username: firstNonEmpty(*sessionRedisUsername, os.Getenv("GAMEBAY_SESSION_REDIS_USERNAME")),
			Password: firstNonEmpty(*sessionRedisPassword, os.Getenv("GAMEBAY_SESSION_REDIS_PASSWORD")),
			DB:       resolveInt(*sessionRedisDB, "GAMEBAY_SESSION_REDIS_DB"),
		})
		if err != nil {
			logger.Error("failed to open redis session store", "error", err)
			os.Exit(1)
		}
		sessionStore = redisStore
		sessionCloser = func(context.Context) error { return redisStore.Close() }
	case "postgres":
		if shared, ok := store.(interface{ Pool() *pgxpool.Pool }); ok && sessionConfig.DSN == storagePostgresDSN {
			sessionStore = auth.NewPostgresSessionStoreFromPool(shared.Pool())
		} else {
			pgStore, err := auth.NewPostgresSessionStore(sessionConfig.DSN)
			if err != nil {
				logger.Error("failed to open postgres session store", "error", err)
				os.Exit(1)
			}
			sessionStore = pgStore
			sessionCloser = func(ctx context.Context) error { return pgStore.Close(ctx) }
		}
	default:
		logger.Error("unsupported session store driver", "driver", sessionConfig.Driver)
		os.Exit(1)
	}

	sessions := auth.NewSessionManager(24*time.Hour, auth.WithStore(sessionStore))

	handler := api.NewHandler(store, sessions,
		api.WithLogger(logging.WithComponent(logger, "api")),
		api.WithMetrics(recorder))

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	sessionPurgeStop := startSessionPurgeWorker(workerCtx, logging.WithComponent(logger, "session-purger"), sessions, 15*time.Minute)
	defer sessionPurgeStop()

	srv, err := server.New(handler, server.Config{
		Addr:    listenAddr,
		Logger:  logger,
		Metrics: recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("GameBay API listening", "addr", listenAddr, "mode", serverMode, "storage", driver, "sessions", sessionConfig.Driver)
		logger.Info("metrics endpoint available", "path", "/metrics")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("server error", "error", err)
	}

	workerCancel()
	sessionPurgeStop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}

	if sessionCloser != nil {
		if err := sessionCloser(ctx); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}

	logger.Info("server stopped")
}

type sessionStoreInputs struct {
	FlagDriver    string
	EnvDriver     string
	StorageDriver string
	StorageDSN    string
	FlagDSN       string
	EnvDSN        string
	FlagRedisAddr string
	EnvRedisAddr  string
}

type sessionStoreConfig struct {
	Driver    string
	DSN       string
	RedisAddr string
}

func resolveSessionStoreConfig(in sessionStoreInputs) (sessionStoreConfig, error) {
	driver := strings.ToLower(strings.TrimSpace(firstNonEmpty(in.FlagDriver, in.EnvDriver)))
	sessionDSN := strings.TrimSpace(firstNonEmpty(in.FlagDSN, in.EnvDSN))
	redisAddr := strings.TrimSpace(firstNonEmpty(in.FlagRedisAddr, in.EnvRedisAddr))

	if driver == "" {
		switch {
		case redisAddr != "":
			driver = "redis"
		case sessionDSN != "":
			driver = "postgres"
		case in.StorageDriver == "postgres":
			driver = "postgres"
		default:
			driver = "memory"
		}
	}

	switch driver {
	case "memory":
		return sessionStoreConfig{Driver: "memory"}, nil
	case "redis":
		if redisAddr == "" {
			return sessionStoreConfig{}, fmt.Errorf("redis session store selected without address")
		}
		return sessionStoreConfig{Driver: "redis", RedisAddr: redisAddr}, nil
	case "postgres":
		if sessionDSN == "" {
			sessionDSN = strings.TrimSpace(in.StorageDSN)
		}
		if sessionDSN == "" {
			return sessionStoreConfig{}, fmt.Errorf("postgres session store selected without DSN")
		}
		return sessionStoreConfig{Driver: "postgres", DSN: sessionDSN}, nil
	default:
		return sessionStoreConfig{}, fmt.Errorf("unsupported session store driver %q", driver)
	}
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "", fmt.Errorf("no datastore configured: provide --storage-driver json or configure Postgres via GAMEBAY_POSTGRES_DSN, DATABASE_URL, or --postgres-dsn")
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		listenAddr = defaultListenForMode(mode)
	}
	return listenAddr
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func defaultListenForMode(mode string) string {
	if mode == "production" {
		return ":80"
	}
	return ":8080"
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/store.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("GAMEBAY_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
