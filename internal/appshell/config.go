package appshell

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/klwxsrx/go-app-shell/pkg/env"
	pkghttp "github.com/klwxsrx/go-app-shell/pkg/http"
	"github.com/klwxsrx/go-app-shell/pkg/log"
	"github.com/klwxsrx/go-app-shell/pkg/sql"
)

const defaultEnvFile = ".env"

type SessionStore string

const (
	SessionStoreMemory   SessionStore = "memory"
	SessionStoreFile     SessionStore = "file"
	SessionStoreRedis    SessionStore = "redis"
	SessionStorePostgres SessionStore = "postgres"
)

type (
	Config struct {
		LogLevel      log.Level
		API           APIConfig
		Session       SessionConfig
		ServerAddress string
	}

	APIConfig struct {
		BaseURL     string
		Timeout     time.Duration
		LoginPath   string
		RefreshPath string
		Retry       pkghttp.RetryStrategy
	}

	SessionConfig struct {
		Store        SessionStore
		FilePath     string
		RedisAddress string
		RedisKey     string
		RedisTTL     time.Duration
		SQL          sql.Config
		SQLKey       string
	}
)

// LoadConfig reads the environment after loading envFiles into it. Without envFiles an optional .env is loaded.
// Variables already set in the environment take precedence over the files.
func LoadConfig(envFiles ...string) (Config, error) {
	err := loadEnvFiles(envFiles)
	if err != nil {
		return Config{}, err
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	logLevel, err := env.ParseDefault(env.Key("log", "level"), "info")
	collect(err)
	level, err := log.ParseLevel(logLevel)
	collect(err)

	apiConfig, err := loadAPIConfig()
	collect(err)

	sessionConfig, err := loadSessionConfig()
	collect(err)

	serverAddress, err := env.ParseDefault(env.Key("server", "address"), pkghttp.DefaultServerAddress)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("load config: %w", errors.Join(errs...))
	}

	return Config{
		LogLevel:      level,
		API:           apiConfig,
		Session:       sessionConfig,
		ServerAddress: serverAddress,
	}, nil
}

func loadEnvFiles(envFiles []string) error {
	if len(envFiles) > 0 {
		err := godotenv.Load(envFiles...)
		if err != nil {
			return fmt.Errorf("load env files: %w", err)
		}
		return nil
	}

	err := godotenv.Load(defaultEnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", defaultEnvFile, err)
	}

	return nil
}

func loadAPIConfig() (APIConfig, error) {
	baseURL, baseURLErr := env.Parse[string](env.Key("api", "baseURL"))
	timeout, timeoutErr := env.ParseDefault(env.Key("api", "timeout"), 30*time.Second)
	loginPath, loginErr := env.ParseDefault(env.Key("api", "loginPath"), "/auth/login")
	refreshPath, refreshErr := env.ParseDefault(env.Key("api", "refreshPath"), "/auth/refresh")
	retries, retriesErr := env.ParseDefault(env.Key("api", "retryCount"), 3)
	delay, delayErr := env.ParseDefault(env.Key("api", "retryDelay"), time.Second)
	multiplier, multiplierErr := env.ParseDefault(env.Key("api", "retryMultiplier"), 2.0)

	err := errors.Join(baseURLErr, timeoutErr, loginErr, refreshErr, retriesErr, delayErr, multiplierErr)
	if err != nil {
		return APIConfig{}, err
	}
	if retries < 0 {
		return APIConfig{}, fmt.Errorf("env %s must not be negative", env.Key("api", "retryCount"))
	}

	return APIConfig{
		BaseURL:     baseURL,
		Timeout:     timeout,
		LoginPath:   loginPath,
		RefreshPath: refreshPath,
		Retry: pkghttp.RetryStrategy{
			Retries:    retries,
			Delay:      delay,
			Multiplier: multiplier,
		},
	}, nil
}

func loadSessionConfig() (SessionConfig, error) {
	store, err := env.ParseDefault(env.Key("session", "store"), string(SessionStoreFile))
	if err != nil {
		return SessionConfig{}, err
	}

	cfg := SessionConfig{Store: SessionStore(store)}
	switch cfg.Store {
	case SessionStoreMemory:
		return cfg, nil
	case SessionStoreFile:
		cfg.FilePath, err = env.ParseDefault(env.Key("session", "file"), defaultSessionFile())
		return cfg, err
	case SessionStoreRedis:
		var addressErr, keyErr, ttlErr error
		cfg.RedisAddress, addressErr = env.Parse[string](env.Key("session", "redisAddress"))
		cfg.RedisKey, keyErr = env.ParseDefault(env.Key("session", "redisKey"), "appshell:session")
		cfg.RedisTTL, ttlErr = env.ParseDefault[time.Duration](env.Key("session", "redisTTL"), 0)
		return cfg, errors.Join(addressErr, keyErr, ttlErr)
	case SessionStorePostgres:
		var keyErr error
		cfg.SQL, err = loadSQLConfig()
		cfg.SQLKey, keyErr = env.ParseDefault(env.Key("session", "sqlKey"), "default")
		return cfg, errors.Join(err, keyErr)
	default:
		return SessionConfig{}, fmt.Errorf("unknown session store %q", store)
	}
}

func loadSQLConfig() (sql.Config, error) {
	user, userErr := env.Parse[string](env.Key("sql", "user"))
	password, passwordErr := env.Parse[string](env.Key("sql", "password"))
	address, addressErr := env.Parse[string](env.Key("sql", "address"))
	database, databaseErr := env.Parse[string](env.Key("sql", "database"))

	err := errors.Join(userErr, passwordErr, addressErr, databaseErr)
	if err != nil {
		return sql.Config{}, err
	}

	return sql.Config{
		DSN: sql.DSN{
			User:     user,
			Password: password,
			Address:  address,
			Database: database,
		},
	}, nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, "appshell", "session.json")
}
