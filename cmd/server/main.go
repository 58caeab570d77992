package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/St1cky1/todo-service/internal/api"
	grpcapi "github.com/St1cky1/todo-service/internal/api/grpc"
	"github.com/St1cky1/todo-service/internal/config"
	"github.com/St1cky1/todo-service/internal/infrastructure/auth"
	"github.com/St1cky1/todo-service/internal/infrastructure/client"
	"github.com/St1cky1/todo-service/internal/logging"
	"github.com/St1cky1/todo-service/internal/metrics"
	"github.com/St1cky1/todo-service/internal/repository"
	"github.com/St1cky1/todo-service/internal/repository/gormrepo"
	"github.com/St1cky1/todo-service/internal/usecase"
	"github.com/St1cky1/todo-service/internal/worker"
	"github.com/St1cky1/todo-service/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	tokenCleanupInterval = time.Hour
	healthCheckInterval  = 15 * time.Second
)

// stores - репозитории выбранного драйвера БД
type stores struct {
	tasks   repository.ITaskRepository
	users   repository.IUserRepository
	refresh repository.IRefreshTokenRepository
	audit   repository.ITaskAuditRepository
	ping    func(ctx context.Context) error
	close   func()
}

func main() {
	if err := run(); err != nil {
		logging.Logger.WithError(err).Fatal("❌ Сервис остановлен с ошибкой")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logging.Init(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
		Service: "todo-service",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	revoked := repository.IRevokedTokenRepository(repository.NewMemoryRevokedTokenRepository())
	if cfg.RedisEnabled() {
		rdb, err := client.NewRedisClient(ctx, cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		revoked = repository.NewRevokedTokenRepository(rdb)
		logging.Logger.Info("✅ Подключение к Redis установлено")
	} else {
		logging.Logger.Warn("REDIS_HOST не задан, отозванные токены хранятся в памяти процесса")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	authService := usecase.NewAuthService(st.users, st.refresh, revoked, auth.NewPasswordManager(), jwtManager)
	userService := usecase.NewUserService(st.users)

	baseTasks := usecase.NewTaskService(st.tasks)
	tasks := usecase.ITaskService(baseTasks)
	history := usecase.NewTaskHistoryService(baseTasks, st.audit)

	g, gctx := errgroup.WithContext(ctx)

	var rabbitMQ *client.RabbitMQClient
	var audited *usecase.AuditedTaskService
	if cfg.RabbitMQEnabled() {
		rabbitMQ, err = client.NewRabbitMQClient(cfg.RabbitMQURL(), m)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		logging.Logger.Info("✅ Подключение к RabbitMQ установлено")

		audited = usecase.NewAuditedTaskService(baseTasks, rabbitMQ)
		tasks = audited

		auditWorker := worker.NewAuditWorker(cfg.RabbitMQURL(), st.audit, m)
		g.Go(func() error { return auditWorker.Start(gctx) })
	} else {
		logging.Logger.Warn("RABBITMQ_HOST не задан, аудит задач отключен")
	}

	cleanup := worker.NewTokenCleanupWorker(st.refresh, tokenCleanupInterval)
	g.Go(func() error { return cleanup.Start(gctx) })

	// gRPC: health и reflection
	grpcServer := grpcapi.NewGRPCServer()
	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	g.Go(func() error {
		logging.Logger.Infof("Запуск gRPC сервера на порту %s...", cfg.GRPCPort)
		return grpcServer.Serve(grpcLis)
	})
	g.Go(func() error {
		grpcServer.WatchDependencies(gctx, healthCheckInterval, grpcapi.DependencyCheck{
			Name:  cfg.DBDriver,
			Check: st.ping,
		})
		return nil
	})

	healthz, closeGateway, err := grpcapi.NewGatewayHandler(gctx, "localhost:"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	defer closeGateway()

	router := api.NewRouter(api.Deps{
		Tasks:          tasks,
		History:        history,
		Auth:           authService,
		Users:          userService,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Healthz:        healthz,
		StartedAt:      time.Now(),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logging.Logger.Infof("✅ HTTP API слушает :%s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logging.Logger.Info("Завершение работы...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.Stop()

		// дожидаемся фоновых публикаций до закрытия соединения
		if audited != nil {
			audited.Wait()
		}
		if rabbitMQ != nil {
			_ = rabbitMQ.Close()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logging.Logger.Info("✅ Приложение завершено корректно")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.DBDriver == config.DriverSQLite {
		db, err := gormrepo.Open(cfg.SQLitePath, cfg.LogLevel == "debug")
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		logging.Logger.WithField("path", cfg.SQLitePath).Info("✅ SQLite открыта")

		return &stores{
			tasks:   gormrepo.NewTaskRepository(db),
			users:   gormrepo.NewUserRepository(db),
			refresh: gormrepo.NewRefreshTokenRepository(db),
			audit:   gormrepo.NewTaskAuditRepository(db),
			ping:    sqlDB.PingContext,
			close:   func() { _ = sqlDB.Close() },
		}, nil
	}

	if err := runMigrations(cfg.PostgresURL()); err != nil {
		return nil, err
	}

	pg, err := client.NewPostgresClient(ctx, cfg.PostgresURL(), client.PoolOptions{
		MaxConns:      int32(cfg.DBMaxConns),
		QueryLogLevel: cfg.DBLogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	logging.Logger.Info("✅ Подключение к БД установлено")

	return &stores{
		tasks:   repository.NewTaskRepository(pg.Pool),
		users:   repository.NewUserRepository(pg.Pool),
		refresh: repository.NewRefreshTokenRepository(pg.Pool),
		audit:   repository.NewTaskAuditRepository(pg.Pool),
		ping:    pg.HealthCheck,
		close:   pg.Close,
	}, nil
}

func runMigrations(dbURL string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("ошибка чтения миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("ошибка создания мигратора: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка выполнения миграций: %w", err)
	}

	logging.Logger.Info("✅ Миграции выполнены успешно")
	return nil
}
