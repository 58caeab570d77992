// Package grpc - gRPC плоскость здоровья сервиса: grpc.health.v1 и reflection.
package grpc

import (
	"context"
	"net"
	"runtime/debug"
	"time"

	"github.com/St1cky1/todo-service/internal/logging"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceTasks - имя сервиса в health check для API задач
const ServiceTasks = "todo.tasks"

// DependencyCheck - проверка внешней зависимости (БД, брокер)
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type GRPCServer struct {
	server *grpc.Server
	health *health.Server
}

func NewGRPCServer() *GRPCServer {
	s := &GRPCServer{
		server: grpc.NewServer(
			grpc.ChainUnaryInterceptor(recoveryInterceptor, loggingInterceptor),
		),
		health: health.NewServer(),
	}

	healthpb.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)

	// до первой проверки зависимостей считаем сервис неготовым
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *GRPCServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

// WatchDependencies периодически проверяет зависимости и обновляет статус
func (s *GRPCServer) WatchDependencies(ctx context.Context, interval time.Duration, checks ...DependencyCheck) {
	s.runChecks(ctx, checks)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runChecks(ctx, checks)
		}
	}
}

func (s *GRPCServer) runChecks(ctx context.Context, checks []DependencyCheck) {
	serving := healthpb.HealthCheckResponse_SERVING

	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Check(checkCtx)
		cancel()

		depStatus := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			logging.Logger.WithError(err).WithField("dependency", c.Name).Warn("❌ Зависимость недоступна")
			depStatus = healthpb.HealthCheckResponse_NOT_SERVING
			serving = healthpb.HealthCheckResponse_NOT_SERVING
		}
		s.health.SetServingStatus(c.Name, depStatus)
	}

	s.setStatus(serving)
}

func (s *GRPCServer) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceTasks, st)
}

func loggingInterceptor(ctx context.Context, req interface{},
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	entry := logging.Logger.WithFields(logrus.Fields{
		"method":      info.FullMethod,
		"code":        status.Code(err).String(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("gRPC call")
	} else {
		entry.Debug("gRPC call")
	}
	return resp, err
}

func recoveryInterceptor(ctx context.Context, req interface{},
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger.WithFields(logrus.Fields{
				"method": info.FullMethod,
				"panic":  r,
				"stack":  string(debug.Stack()),
			}).Error("❌ gRPC panic")
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
