package app

import (
	"errors"
	"net"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Имя сервиса в grpc.health.v1 для probe'ов оркестратора.
const grpcHealthService = "storefront"

// grpcHealthServer обслуживает стандартный grpc.health.v1 протокол.
type grpcHealthServer struct {
	server *grpc.Server
	health *health.Server
	addr   net.Addr
	logger *log.Entry
}

// startGRPCHealthServer запускает gRPC health, если addr задан; иначе возвращает nil.
func startGRPCHealthServer(addr string, logger *log.Entry) (*grpcHealthServer, error) {
	if addr == "" {
		return nil, nil
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	grpcMetrics.InitializeMetrics(server)
	reflection.Register(server)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcHealthService, healthpb.HealthCheckResponse_SERVING)

	s := &grpcHealthServer{server: server, health: healthServer, addr: lis.Addr(), logger: logger}
	go func() {
		logger.Infof("gRPC health слушает %s", lis.Addr())
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.WithError(err).Warn("grpc health server failed")
		}
	}()
	return s, nil
}

// Stop переводит сервис в NOT_SERVING и останавливает сервер.
func (s *grpcHealthServer) Stop(timeout time.Duration) {
	if s == nil {
		return
	}
	s.health.Shutdown()

	stoppedCh := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(timeout):
		s.logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		s.server.Stop()
	}
}
