// Package config は「デフォルト → TOML ファイル → 環境変数」の順に設定を読む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type DB struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path"` // sqlite のファイルパス
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

type Config struct {
	HTTPAddr    string `toml:"http_addr"`
	GRPCAddr    string `toml:"grpc_addr"`
	MetricsAddr string `toml:"metrics_addr"`

	// duration は TOML でも "3s" 形式の文字列で書く
	RequestTimeout time.Duration `toml:"-"`
	HealthInterval time.Duration `toml:"-"`

	LogDevelopment bool `toml:"log_development"`
	TraceStdout    bool `toml:"trace_stdout"`

	DB DB `toml:"db"`
}

// TOML 読み込み用（duration を文字列で受ける）
type fileConfig struct {
	Config
	RequestTimeout string `toml:"request_timeout"`
	HealthInterval string `toml:"health_interval"`
}

const (
	defaultRequestTimeout = 3 * time.Second
	defaultHealthInterval = 10 * time.Second
)

func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		GRPCAddr:       ":50051",
		MetricsAddr:    ":9464",
		RequestTimeout: defaultRequestTimeout,
		HealthInterval: defaultHealthInterval,
		DB: DB{
			Driver:   DriverSQLite,
			Path:     "app.db",
			Host:     "127.0.0.1",
			Port:     "3306",
			User:     "root",
			Password: "root",
			Name:     "todo",
		},
	}
}

// Load は設定を組み立てる。
// CONFIG_FILE が指定されていればそれを読み、その上から環境変数で上書きする。
// duration の値が壊れている場合は起動失敗にせず、warn してデフォルトに落とす。
func Load(logger *zap.Logger) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(&cfg, path, logger); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	loadEnv(&cfg, logger)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return fmt.Errorf("db path is required for driver %q", c.DB.Driver)
		}
	case DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("unknown db driver %q", c.DB.Driver)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http addr is required")
	}
	return nil
}

func loadFile(cfg *Config, path string, logger *zap.Logger) error {
	fc := fileConfig{Config: *cfg}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return err
	}

	fc.Config.RequestTimeout = parseDuration(logger, "request_timeout", fc.RequestTimeout, cfg.RequestTimeout)
	fc.Config.HealthInterval = parseDuration(logger, "health_interval", fc.HealthInterval, cfg.HealthInterval)
	*cfg = fc.Config
	return nil
}

func loadEnv(cfg *Config, logger *zap.Logger) {
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getenv("GRPC_ADDR", cfg.GRPCAddr)
	cfg.MetricsAddr = getenv("METRICS_ADDR", cfg.MetricsAddr)

	cfg.RequestTimeout = parseDuration(logger, "REQUEST_TIMEOUT", os.Getenv("REQUEST_TIMEOUT"), cfg.RequestTimeout)
	cfg.HealthInterval = parseDuration(logger, "HEALTH_INTERVAL", os.Getenv("HEALTH_INTERVAL"), cfg.HealthInterval)

	cfg.LogDevelopment = getbool(logger, "LOG_DEVELOPMENT", cfg.LogDevelopment)
	cfg.TraceStdout = getbool(logger, "TRACE_STDOUT", cfg.TraceStdout)

	cfg.DB.Driver = getenv("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Path = getenv("DB_PATH", cfg.DB.Path)
	cfg.DB.Host = getenv("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getenv("DB_PORT", cfg.DB.Port)
	cfg.DB.User = getenv("DB_USER", cfg.DB.User)
	cfg.DB.Password = getenv("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = getenv("DB_NAME", cfg.DB.Name)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(logger *zap.Logger, key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Warn("invalid bool config, fallback to default",
			zap.String("key", key),
			zap.String("raw", raw),
			zap.Bool("default", def),
		)
		return def
	}
	return b
}

func parseDuration(logger *zap.Logger, key, raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		logger.Warn("invalid duration config, fallback to default",
			zap.String("key", key),
			zap.String("raw", raw),
			zap.Duration("default", def),
			zap.Error(err),
		)
		return def
	}
	return d
}
