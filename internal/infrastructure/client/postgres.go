package client

import (
	"context"
	"fmt"
	"time"

	"github.com/St1cky1/todo-service/internal/logging"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/sirupsen/logrus"
)

const pingTimeout = 5 * time.Second

type PostgresClient struct {
	Pool *pgxpool.Pool
}

// PoolOptions - лимиты пула, нули заменяются значениями по умолчанию
type PoolOptions struct {
	MaxConns int32
	MinConns int32
	// уровень логирования запросов pgx: error, warn, info, debug
	QueryLogLevel string
}

func NewPostgresClient(ctx context.Context, connString string, opts PoolOptions) (*PostgresClient, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	poolConfig.MaxConns = orDefault(opts.MaxConns, 20)
	poolConfig.MinConns = orDefault(opts.MinConns, 2)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.Tracer = newQueryTracer(opts.QueryLogLevel)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresClient{Pool: pool}, nil
}

func (c *PostgresClient) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// HealthCheck - ping для grpc health
func (c *PostgresClient) HealthCheck(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}

// newQueryTracer пишет события pgx в общий logrus логгер
func newQueryTracer(level string) *tracelog.TraceLog {
	logLevel, err := tracelog.LogLevelFromString(level)
	if err != nil {
		logLevel = tracelog.LogLevelWarn
	}

	return &tracelog.TraceLog{
		Logger: tracelog.LoggerFunc(func(ctx context.Context, lvl tracelog.LogLevel, msg string, data map[string]any) {
			entry := logging.Logger.WithContext(ctx).WithFields(logrus.Fields(data)).WithField("component", "pgx")
			switch lvl {
			case tracelog.LogLevelError:
				entry.Error(msg)
			case tracelog.LogLevelWarn:
				entry.Warn(msg)
			case tracelog.LogLevelInfo:
				entry.Info(msg)
			default:
				entry.Debug(msg)
			}
		}),
		LogLevel: logLevel,
	}
}

func orDefault(v, def int32) int32 {
	if v <= 0 {
		return def
	}
	return v
}
