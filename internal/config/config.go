// Package config loads the service configuration from defaults, an optional
// YAML file and REALLIFE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const EnvPrefix = "REALLIFE"

type Config struct {
	HTTP           HTTP
	Database       Database
	Auth           Auth
	Notify         Notify
	NATS           NATS
	PlanningCenter PlanningCenter
	Scheduler      Scheduler
	Log            Log
}

type HTTP struct {
	Addr            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type Database struct {
	// Driver is one of memory, sqlite or postgres.
	Driver string
	DSN    string
	// SlowThreshold marks queries logged as slow.
	SlowThreshold time.Duration
}

type Auth struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type Notify struct {
	PeoplesAppURL    string
	PeoplesAppAPIKey string
	WhatsAppURL      string
	WhatsAppAPIKey   string
	Timeout          time.Duration
	PoolSize         int
	Workers          int
}

type NATS struct {
	URL           string
	SubjectPrefix string
}

type PlanningCenter struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AppID        string
	APIKey       string
}

type Scheduler struct {
	Enabled      bool
	DueTasksSpec string
	AdvanceSpec  string
	Timezone     string
	JobTimeout   time.Duration
}

type Log struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.slow_threshold", "200ms")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)

	v.SetDefault("notify.peoples_app_url", "")
	v.SetDefault("notify.peoples_app_api_key", "")
	v.SetDefault("notify.whatsapp_url", "")
	v.SetDefault("notify.whatsapp_api_key", "")
	v.SetDefault("notify.timeout", 10*time.Second)
	v.SetDefault("notify.pool_size", 100)
	v.SetDefault("notify.workers", 5)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "reallife.notifications")

	v.SetDefault("planning_center.base_url", "https://api.planningcenteronline.com")
	v.SetDefault("planning_center.client_id", "")
	v.SetDefault("planning_center.client_secret", "")
	v.SetDefault("planning_center.redirect_url", "")
	v.SetDefault("planning_center.app_id", "")
	v.SetDefault("planning_center.api_key", "")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.due_tasks_spec", "0 8 * * *")
	v.SetDefault("scheduler.advance_spec", "0 9 * * 1")
	v.SetDefault("scheduler.timezone", "Europe/Berlin")
	v.SetDefault("scheduler.job_timeout", 5*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Loader owns the viper instance so the config file can be watched after the
// first load.
type Loader struct {
	v *viper.Viper
}

// NewLoader reads path when it is non-empty. Environment variables override
// file values, e.g. REALLIFE_DATABASE_DSN for database.dsn.
func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	return &Loader{v: v}, nil
}

// Load is NewLoader followed by Config.
func Load(path string) (Config, error) {
	l, err := NewLoader(path)
	if err != nil {
		return Config{}, err
	}
	return l.Config()
}

func (l *Loader) Config() (Config, error) {
	v := l.v
	cfg := Config{
		HTTP: HTTP{
			Addr:            v.GetString("http.addr"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			CORSOrigins:     v.GetStringSlice("http.cors_origins"),
		},
		Database: Database{
			Driver:        v.GetString("database.driver"),
			DSN:           v.GetString("database.dsn"),
			SlowThreshold: v.GetDuration("database.slow_threshold"),
		},
		Auth: Auth{
			JWTSecret: v.GetString("auth.jwt_secret"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
		Notify: Notify{
			PeoplesAppURL:    v.GetString("notify.peoples_app_url"),
			PeoplesAppAPIKey: v.GetString("notify.peoples_app_api_key"),
			WhatsAppURL:      v.GetString("notify.whatsapp_url"),
			WhatsAppAPIKey:   v.GetString("notify.whatsapp_api_key"),
			Timeout:          v.GetDuration("notify.timeout"),
			PoolSize:         v.GetInt("notify.pool_size"),
			Workers:          v.GetInt("notify.workers"),
		},
		NATS: NATS{
			URL:           v.GetString("nats.url"),
			SubjectPrefix: v.GetString("nats.subject_prefix"),
		},
		PlanningCenter: PlanningCenter{
			BaseURL:      v.GetString("planning_center.base_url"),
			ClientID:     v.GetString("planning_center.client_id"),
			ClientSecret: v.GetString("planning_center.client_secret"),
			RedirectURL:  v.GetString("planning_center.redirect_url"),
			AppID:        v.GetString("planning_center.app_id"),
			APIKey:       v.GetString("planning_center.api_key"),
		},
		Scheduler: Scheduler{
			Enabled:      v.GetBool("scheduler.enabled"),
			DueTasksSpec: v.GetString("scheduler.due_tasks_spec"),
			AdvanceSpec:  v.GetString("scheduler.advance_spec"),
			Timezone:     v.GetString("scheduler.timezone"),
			JobTimeout:   v.GetDuration("scheduler.job_timeout"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WatchLogLevel re-reads log.level whenever the config file changes and
// applies it to level. Other settings need a restart.
func (l *Loader) WatchLogLevel(level *slog.LevelVar, logger *slog.Logger) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		lvl, err := ParseLevel(l.v.GetString("log.level"))
		if err != nil {
			logger.Warn("config reload ignored", "file", e.Name, "error", err)
			return
		}
		level.Set(lvl)
		logger.Info("log level changed", "level", lvl.String())
	})
	l.v.WatchConfig()
}

var ErrInvalid = errors.New("invalid configuration")

func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.HTTP.Addr != "", "http.addr is required")
	check(c.HTTP.ShutdownTimeout > 0, "http.shutdown_timeout must be positive")

	switch c.Database.Driver {
	case "memory":
	case "sqlite", "postgres":
		check(c.Database.DSN != "", "database.dsn is required for driver %s", c.Database.Driver)
	default:
		check(false, "database.driver %q is not one of memory, sqlite, postgres", c.Database.Driver)
	}

	check(c.Auth.TokenTTL > 0, "auth.token_ttl must be positive")
	check(c.Notify.PoolSize > 0, "notify.pool_size must be positive")
	check(c.Notify.Workers > 0, "notify.workers must be positive")
	check(c.Notify.Timeout > 0, "notify.timeout must be positive")
	check(c.Scheduler.JobTimeout >= 0, "scheduler.job_timeout must not be negative")

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		check(false, "scheduler.timezone: %v", err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		check(false, "log.level: %v", err)
	}
	check(c.Log.Format == "text" || c.Log.Format == "json", "log.format %q is not text or json", c.Log.Format)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Location resolves Scheduler.Timezone. Validate has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return lvl, nil
}
