package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestRun_ServesAPIAndStopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	apiPort := findFreePort(t)
	opsPort := findFreePort(t)
	cfg.HTTPAddr = fmt.Sprintf("127.0.0.1:%d", apiPort)
	cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", opsPort)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", apiPort)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond)

	resp, err := http.Get(base + "/products")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, err = http.Post(base+"/create-checkout-session", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "checkout must be disabled without stripe")

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), "unexpected error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_InvalidStorage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "unknown"

	err := Run(context.Background(), cfg)
	require.Error(t, err)
}

func TestStartGRPCHealthServer_Disabled(t *testing.T) {
	srv, err := startGRPCHealthServer("", log.WithField("test", "grpc-health"))
	require.NoError(t, err)
	assert.Nil(t, srv)

	// nil-сервер останавливается без паники
	srv.Stop(time.Second)
}

func TestStartGRPCHealthServer_Serving(t *testing.T) {
	logger := log.WithField("test", "grpc-health")

	srv, err := startGRPCHealthServer("127.0.0.1:0", logger)
	require.NoError(t, err)
	defer srv.Stop(time.Second)

	conn, err := grpc.NewClient(srv.addr.String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: grpcHealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
