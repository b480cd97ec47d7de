package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestNewDependencies_MemoryDefaults(t *testing.T) {
	deps, err := NewDependencies(context.Background(), DefaultConfig(), log.WithField("test", "dependencies"))
	require.NoError(t, err)
	defer deps.Close()

	assert.NotNil(t, deps.Products)
	assert.NotNil(t, deps.Carts)
	assert.NotNil(t, deps.Sales)
	assert.IsType(t, &memory.ImageStore{}, deps.Images)
	assert.Nil(t, deps.Payments, "payments must stay disabled without a secret key")
	assert.Nil(t, deps.Identity)
	assert.Nil(t, deps.Events, "events must stay disabled without brokers")
	assert.NotNil(t, deps.Metrics)
	assert.NotNil(t, deps.Health)
}

func TestNewDependencies_WithNilLogger(t *testing.T) {
	deps, err := NewDependencies(context.Background(), DefaultConfig(), nil)
	require.NoError(t, err)
	defer deps.Close()

	assert.NotNil(t, deps.Logger)
}

func TestNewDependencies_UnsupportedDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "cassandra"

	deps, err := NewDependencies(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Nil(t, deps)
}

func TestNewDependencies_ProductCache(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.RedisAddr = mr.Addr()

	deps, err := NewDependencies(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer deps.Close()

	ctx := context.Background()
	require.NoError(t, deps.Products.Upsert(ctx, domain.Product{ID: "p-1", Name: "Mug", Price: 10, Images: []string{}}))

	got, err := deps.Products.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Mug", got.Name)
	assert.NotEmpty(t, mr.Keys(), "product must be cached after the first read")

	rec := httptest.NewRecorder()
	deps.Health.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cache")
}

func TestNewDependencies_Payments(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StripeSecretKey = "sk_test_123"
	cfg.StripeWebhookSecret = "whsec_123"

	deps, err := NewDependencies(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer deps.Close()

	assert.NotNil(t, deps.Payments)
	assert.Nil(t, deps.Identity)
}

func TestNewDependencies_CognitoRequiresPayments(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CognitoUserPoolID = "us-east-1_abc"

	deps, err := NewDependencies(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.Identity, "customer lookup is only used by checkout")
}

func TestDependencies_CloseIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.RedisAddr = mr.Addr()

	deps, err := NewDependencies(context.Background(), cfg, nil)
	require.NoError(t, err)

	deps.Close()
	deps.Close()

	var nilDeps *Dependencies
	nilDeps.Close()
}
