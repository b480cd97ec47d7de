package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	httpsvc "github.com/vladislavdragonenkov/storefront/internal/service/http"
	"github.com/vladislavdragonenkov/storefront/internal/service/sales"
	"github.com/vladislavdragonenkov/storefront/internal/service/webhook"
)

const (
	opsShutdownTimeout = 5 * time.Second
	readHeaderTimeout  = 10 * time.Second
)

// Run поднимает REST API, сервер метрик и (опционально) gRPC health
// и блокируется до отмены ctx или ошибки API-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer deps.Close()

	router := httpsvc.NewRouter(buildServices(deps, cfg), httpsvc.Options{
		Metrics: deps.Metrics,
		Logger:  logger.WithField("layer", "http"),
	})

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, deps.Health)

	grpcHealth, err := startGRPCHealthServer(cfg.GRPCHealthAddr, logger)
	if err != nil {
		shutdownHTTP(metricsSrv, opsShutdownTimeout, logger)
		return fmt.Errorf("start grpc health server: %w", err)
	}

	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		grpcHealth.Stop(opsShutdownTimeout)
		shutdownHTTP(metricsSrv, opsShutdownTimeout, logger)
		return err
	}

	apiSrv := &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("REST API слушает %s", lis.Addr())
		errCh <- apiSrv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем REST API")
		grpcHealth.Stop(opsShutdownTimeout)
		shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
		shutdownHTTP(metricsSrv, opsShutdownTimeout, logger)
		return ctx.Err()
	case err := <-errCh:
		grpcHealth.Stop(opsShutdownTimeout)
		shutdownHTTP(metricsSrv, opsShutdownTimeout, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// buildServices собирает доменные сервисы поверх зависимостей.
func buildServices(deps *Dependencies, cfg Config) httpsvc.Services {
	logger := deps.Logger

	salesSvc := sales.NewService(deps.Sales, deps.Events, logger.WithField("component", "sales"))

	return httpsvc.Services{
		Catalog: catalog.NewService(deps.Products, deps.Images, deps.Events, deps.Metrics, logger.WithField("component", "catalog")),
		Cart:    cart.NewService(deps.Carts, logger.WithField("component", "cart")),
		Sales:   salesSvc,
		Checkout: checkout.NewService(deps.Payments, deps.Identity, checkout.Config{
			FrontendURL: cfg.FrontendURL,
			Currency:    cfg.CheckoutCurrency,
			TaxRate:     &cfg.TaxRate,
		}, deps.Metrics, logger.WithField("component", "checkout")),
		Webhook: webhook.NewProcessor(deps.Payments, salesSvc, deps.Metrics, logger.WithField("component", "webhook")),
	}
}

// opsHandler собирает служебные маршруты: /metrics, /healthz, /livez, /readyz.
// Готовность снимает только проверка "storage"; images и cache дают деградацию.
func opsHandler(healthHandler *healthcheck.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	return mux
}

// startMetricsServer запускает служебный HTTP-сервер и останавливает его по отмене ctx.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: opsHandler(healthHandler), ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, opsShutdownTimeout, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = opsShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
