// Package sqldb は to-do item の関係 DB 実装（SQLite / MySQL）。
package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hijjiri/todo-items/internal/config"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Dialect は接続先 DB の種類。goose の dialect 名と揃えてある。
type Dialect string

const (
	DialectSQLite Dialect = "sqlite3"
	DialectMySQL  Dialect = "mysql"
)

const sqliteBusyTimeoutMS = 5000

// Open は設定に従って DB を開き、ping が通るまで待つ。
func Open(ctx context.Context, cfg config.DB, logger *zap.Logger) (*sql.DB, Dialect, error) {
	return OpenWithRetry(ctx, cfg, logger, DefaultConnectRetry)
}

func OpenWithRetry(ctx context.Context, cfg config.DB, logger *zap.Logger, policy RetryPolicy) (*sql.DB, Dialect, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		db      *sql.DB
		dialect Dialect
		err     error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err = sql.Open("sqlite", sqliteDSN(cfg.Path))
		dialect = DialectSQLite
		if err == nil {
			// 書き込みは 1 本に絞る（SQLITE_BUSY 回避）
			db.SetMaxOpenConns(1)
		}
	case config.DriverMySQL:
		var connector driver.Connector
		connector, err = mysql.NewConnector(mysqlConfig(cfg))
		if err == nil {
			db = sql.OpenDB(connector)
			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(5 * time.Minute)
		}
		dialect = DialectMySQL
	default:
		return nil, "", fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	err = doWithRetry(ctx, policy, func() error {
		return db.PingContext(ctx)
	}, func(attempt int, err error) {
		logger.Warn("failed to ping db",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", policy.MaxAttempts),
			zap.Error(err),
		)
	})
	if err != nil {
		db.Close()
		return nil, "", fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	return db, dialect, nil
}

func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", sqliteBusyTimeoutMS))
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

func mysqlConfig(cfg config.DB) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Timeout = 5 * time.Second
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc
}
