package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type config struct {
	port int
	env  string
	db   struct {
		uri                string
		name               string
		maxOpenConnections int
		maxIdleConnections int
		maxIdleTime        time.Duration
		timeout            time.Duration
	}
	session struct {
		secret string
		ttl    time.Duration
	}
	redis struct {
		url          string
		taskCacheTTL time.Duration
	}
	limiter struct {
		enabled             bool
		maxRequestPerSecond float64
		burst               int
	}
	bcryptCost int
	log        struct {
		level  string
		format string
	}
}

// loadConfig merges, in rising precedence, an optional .env file, the
// process environment and command line flags.
func loadConfig(args []string) (config, error) {
	var cfg config

	fs := pflag.NewFlagSet("todo", pflag.ContinueOnError)
	fs.Int("port", 3000, "Server port")
	fs.String("env", "development", "Environment [development|production]")
	fs.String("env-file", ".env", "Optional dotenv file")
	fs.String("db-uri", "", "Storage connection string (mongodb://, postgres://, sqlite:)")
	fs.String("db-name", "TODO", "MongoDB database name")
	fs.Int("db-max-open-conns", 25, "Storage max open connections")
	fs.Int("db-max-idle-conns", 25, "Storage max idle connections")
	fs.String("db-max-idle-time", "15m", "Storage max connection idle time")
	fs.String("db-timeout", "5s", "Timeout for a single storage operation")
	fs.String("session-secret", "", "Session signing secret")
	fs.String("session-ttl", "24h", "Session lifetime")
	fs.String("redis-url", "", "Redis URL for session revocation and task caching")
	fs.String("task-cache-ttl", "1m", "Task list cache TTL, 0 disables the cache")
	fs.Bool("limiter-enabled", true, "Enable per-IP rate limiting")
	fs.Float64("limiter-rps", 4, "Rate limiter maximum requests per second")
	fs.Int("limiter-burst", 8, "Rate limiter maximum burst")
	fs.Int("bcrypt-cost", bcrypt.DefaultCost, "bcrypt cost for new password digests")
	fs.String("log-level", "info", "Log level [debug|info|warn|error]")
	fs.String("log-format", "text", "Log format [text|json]")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	v := viper.New()
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		key := flagKey(f.Name)
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = errors.Join(bindErr, err)
		}
		if err := v.BindEnv(key, envName(f.Name)); err != nil {
			bindErr = errors.Join(bindErr, err)
		}
	})
	if bindErr != nil {
		return cfg, bindErr
	}

	if envFile := v.GetString("env_file"); envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return cfg, fmt.Errorf("reading %s: %w", envFile, err)
			}
		}
	}

	var err error
	get := func(key string, dst any) {
		if err != nil {
			return
		}
		raw := v.Get(key)
		switch d := dst.(type) {
		case *string:
			*d, err = cast.ToStringE(raw)
		case *int:
			*d, err = cast.ToIntE(raw)
		case *bool:
			*d, err = cast.ToBoolE(raw)
		case *float64:
			*d, err = cast.ToFloat64E(raw)
		case *time.Duration:
			*d, err = toDuration(raw)
		}
		if err != nil {
			err = fmt.Errorf("invalid value %v for %s: %w", raw, envName(key), err)
		}
	}
	get("port", &cfg.port)
	get("env", &cfg.env)
	get("db_uri", &cfg.db.uri)
	get("db_name", &cfg.db.name)
	get("db_max_open_conns", &cfg.db.maxOpenConnections)
	get("db_max_idle_conns", &cfg.db.maxIdleConnections)
	get("db_max_idle_time", &cfg.db.maxIdleTime)
	get("db_timeout", &cfg.db.timeout)
	get("session_secret", &cfg.session.secret)
	get("session_ttl", &cfg.session.ttl)
	get("redis_url", &cfg.redis.url)
	get("task_cache_ttl", &cfg.redis.taskCacheTTL)
	get("limiter_enabled", &cfg.limiter.enabled)
	get("limiter_rps", &cfg.limiter.maxRequestPerSecond)
	get("limiter_burst", &cfg.limiter.burst)
	get("bcrypt_cost", &cfg.bcryptCost)
	get("log_level", &cfg.log.level)
	get("log_format", &cfg.log.format)
	if err != nil {
		return cfg, err
	}

	return cfg, cfg.validate()
}

func (cfg config) validate() error {
	var errs []error
	if cfg.db.uri == "" {
		errs = append(errs, errors.New("DB_URI must be provided"))
	}
	if cfg.session.secret == "" {
		errs = append(errs, errors.New("SESSION_SECRET must be provided"))
	}
	if cfg.session.ttl < minSessionTTL {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be at least %s", minSessionTTL))
	}
	if cfg.db.timeout < minDBTimeout {
		errs = append(errs, fmt.Errorf("DB_TIMEOUT must be at least %s", minDBTimeout))
	}
	if cfg.db.maxIdleTime < 0 {
		errs = append(errs, errors.New("DB_MAX_IDLE_TIME must not be negative"))
	}
	if cfg.redis.taskCacheTTL < 0 {
		errs = append(errs, errors.New("TASK_CACHE_TTL must not be negative"))
	}
	if cfg.port <= 0 || cfg.port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", cfg.port))
	}
	if cfg.env != "development" && cfg.env != "production" {
		errs = append(errs, fmt.Errorf("ENV must be development or production, got %q", cfg.env))
	}
	return errors.Join(errs...)
}

const (
	minSessionTTL = time.Minute
	minDBTimeout  = 100 * time.Millisecond
)

// toDuration requires a unit, so "5" is rejected instead of read as 5ns.
// A bare "0" is allowed.
func toDuration(raw any) (time.Duration, error) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			if n != 0 {
				return 0, fmt.Errorf("duration %q has no unit", s)
			}
			return 0, nil
		}
		raw = s
	}
	return cast.ToDurationE(raw)
}

// flagKey maps "db-uri" to the viper key "db_uri".
func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// envName maps "db-uri" or "db_uri" to "DB_URI".
func envName(name string) string {
	return strings.ToUpper(flagKey(name))
}
