package httpsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/sales"
	"github.com/vladislavdragonenkov/storefront/internal/service/webhook"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type stubPayments struct {
	event    domain.PaymentEvent
	parseErr error
}

func (p *stubPayments) CreateCheckoutSession(context.Context, domain.CheckoutSessionParams) (domain.CheckoutSession, error) {
	return domain.CheckoutSession{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}, nil
}

func (p *stubPayments) CreateCustomer(context.Context, domain.Customer) (string, error) {
	return "cus_1", nil
}

func (p *stubPayments) ParseWebhookEvent([]byte, string) (domain.PaymentEvent, error) {
	return p.event, p.parseErr
}

func (p *stubPayments) ListSessionLineItems(context.Context, string) ([]domain.SessionLineItem, error) {
	return []domain.SessionLineItem{{Description: "Vase", Quantity: 1, AmountTotalMinor: 1130}}, nil
}

type brokenProducts struct {
	domain.ProductRepository
}

func (brokenProducts) List(context.Context) ([]domain.Product, error) {
	return nil, domain.StoreError("scan products", errors.New("connection refused"))
}

type testEnv struct {
	handler  http.Handler
	images   *memory.ImageStore
	sales    domain.SalesRepository
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T, payments domain.PaymentProvider) *testEnv {
	t.Helper()
	return newTestEnvWithProducts(t, payments, memory.NewProductRepository())
}

func newTestEnvWithProducts(t *testing.T, payments domain.PaymentProvider, products domain.ProductRepository) *testEnv {
	t.Helper()
	return buildTestEnv(t, payments, nil, products)
}

func buildTestEnv(t *testing.T, payments domain.PaymentProvider, identity domain.IdentityProvider, products domain.ProductRepository) *testEnv {
	t.Helper()

	env := &testEnv{
		images:   memory.NewImageStore(),
		sales:    memory.NewSalesRepository(),
		registry: prometheus.NewRegistry(),
	}
	m := metrics.NewStorefrontMetricsWithRegisterer(env.registry)
	logger := log.WithField("component", "http-test")

	salesSvc := sales.NewService(env.sales, nil, logger)
	env.handler = NewRouter(Services{
		Catalog:  catalog.NewService(products, env.images, nil, m, logger),
		Cart:     cart.NewService(memory.NewCartRepository(), logger),
		Sales:    salesSvc,
		Checkout: checkout.NewService(payments, identity, checkout.Config{FrontendURL: "https://shop.example"}, m, logger),
		Webhook:  webhook.NewProcessor(payments, salesSvc, m, logger),
	}, Options{Metrics: m, Logger: logger})
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}
	return e.do(t, method, target, body, "application/json")
}

type upload struct {
	field string
	name  string
}

func multipartBody(t *testing.T, product string, files ...upload) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if product != "" {
		require.NoError(t, mw.WriteField("product", product))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("png:" + f.name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLive(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Server is live!", rec.Body.String())
}

func TestProducts_CreateWithImagesAndFetch(t *testing.T) {
	env := newTestEnv(t, nil)

	body, ct := multipartBody(t, `{"id":"p-1","name":"Vase","price":25}`,
		upload{"images", "front.png"}, upload{"images", "back.png"})
	rec := env.do(t, http.MethodPost, "/products", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	created := decode[domain.Product](t, rec)
	assert.Equal(t, "p-1", created.ID)
	assert.Equal(t, []string{memory.ImageURLBase + "front.png", memory.ImageURLBase + "back.png"}, created.Images)

	rec = env.do(t, http.MethodGet, "/products/p-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decode[domain.Product](t, rec))

	rec = env.do(t, http.MethodGet, "/products", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Product](t, rec), 1)
}

func TestProducts_LegacyImageField(t *testing.T) {
	env := newTestEnv(t, nil)

	body, ct := multipartBody(t, `{"name":"Mug"}`, upload{"image", "mug.png"})
	rec := env.do(t, http.MethodPost, "/products", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	created := decode[domain.Product](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{memory.ImageURLBase + "mug.png"}, created.Images)
}

func TestProducts_TooManyImagesRejectedBeforeUpload(t *testing.T) {
	env := newTestEnv(t, nil)

	files := make([]upload, 0, 6)
	for i := 0; i < 6; i++ {
		files = append(files, upload{"images", fmt.Sprintf("%d.png", i)})
	}
	body, ct := multipartBody(t, `{"name":"Lamp"}`, files...)

	rec := env.do(t, http.MethodPost, "/products", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Err, "at most 5 images")
	assert.Zero(t, env.images.Len())
}

func TestProducts_CreateValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	body, ct := multipartBody(t, "", upload{"images", "a.png"})
	rec := env.do(t, http.MethodPost, "/products", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, `{not json`)
	rec = env.do(t, http.MethodPost, "/products", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/products", map[string]any{"name": "", "price": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts_CreateFromJSON(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.doJSON(t, http.MethodPost, "/products", map[string]any{"name": "Plate", "price": 4.5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"images":[]`)
}

func TestProducts_GetMissing(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/products/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[errorResponse](t, rec).Err)
}

func TestProducts_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t, nil)

	body, ct := multipartBody(t, `{"id":"p-1","name":"Vase"}`, upload{"images", "vase one.png"})
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/products", body, ct).Code)

	rec := env.doJSON(t, http.MethodPut, "/products/p-1", domain.Product{
		Name:   "Vase XL",
		Price:  30,
		Images: []string{memory.ImageURLBase + "vase%20one.png"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Product](t, rec)
	assert.Equal(t, "p-1", updated.ID)
	assert.Equal(t, "Vase XL", updated.Name)

	rec = env.do(t, http.MethodDelete, "/products/p-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Message       string                      `json:"message"`
		ProductID     string                      `json:"productId"`
		ImagesDeleted int                         `json:"imagesDeleted"`
		FailedImages  []domain.ImageDeleteFailure `json:"failedImages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "p-1", resp.ProductID)
	assert.Equal(t, 1, resp.ImagesDeleted)
	assert.NotNil(t, resp.FailedImages)
	assert.Empty(t, resp.FailedImages)
	assert.False(t, env.images.Exists("vase one.png"))

	rec = env.do(t, http.MethodDelete, "/products/never-existed", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProducts_StoreFailureIsGeneric(t *testing.T) {
	env := newTestEnvWithProducts(t, nil, brokenProducts{ProductRepository: memory.NewProductRepository()})

	rec := env.do(t, http.MethodGet, "/products", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong!", decode[errorResponse](t, rec).Err)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestCart_Lifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.doJSON(t, http.MethodPost, "/cart", domain.CartItem{UserEmail: "a@x.com", ProductID: "p1", ProductName: "Vase", Price: 10, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[messageResponse](t, rec).Message)

	rec = env.do(t, http.MethodGet, "/cart/a@x.com", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]domain.CartItem](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	rec = env.do(t, http.MethodDelete, "/cart/a@x.com/p1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/cart/a@x.com", nil, "")
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestCart_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.doJSON(t, http.MethodPost, "/cart", map[string]any{"productID": "p1", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Err, "userEmail")

	rec = env.do(t, http.MethodPost, "/cart", []byte("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSales_LegacyIDAndQueries(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.doJSON(t, http.MethodPost, "/sales", map[string]any{
		"salesId":     "legacy-1",
		"userEmail":   "a@x.com",
		"totalAmount": 22.6,
		"products":    []map[string]any{{"productName": "Vase", "quantity": 2, "price": 22.6}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "legacy-1", decode[recordSaleResponse](t, rec).SaleID)

	rec = env.doJSON(t, http.MethodPost, "/sales", map[string]any{"userEmail": "b@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[recordSaleResponse](t, rec).SaleID)

	rec = env.do(t, http.MethodGet, "/sales", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Sale](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/sales/user/a@x.com", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]domain.Sale](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, "legacy-1", mine[0].SaleID)
	assert.False(t, mine[0].Timestamp.IsZero())

	rec = env.do(t, http.MethodDelete, "/sales/legacy-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/sales", map[string]any{"totalAmount": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_NotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.doJSON(t, http.MethodPost, "/create-checkout-session", map[string]any{
		"customerEmail": "a@x.com",
		"cartItems":     []map[string]any{{"productName": "Vase", "price": 10, "quantity": 1}},
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCheckout_CreatesSession(t *testing.T) {
	env := newTestEnv(t, &stubPayments{})

	rec := env.doJSON(t, http.MethodPost, "/create-checkout-session", map[string]any{
		"customerEmail": "a@x.com",
		"cartItems":     []map[string]any{{"productID": "p1", "productName": "Vase", "price": 10, "quantity": 1}},
		"total":         11.3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.CheckoutSession{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}, decode[domain.CheckoutSession](t, rec))

	rec = env.doJSON(t, http.MethodPost, "/create-checkout-session", map[string]any{"customerEmail": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type missingCustomer struct{}

func (missingCustomer) LookupCustomer(_ context.Context, email string) (domain.Customer, error) {
	return domain.Customer{}, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, email)
}

func TestCheckout_UnknownCustomerIsGeneric500(t *testing.T) {
	env := buildTestEnv(t, &stubPayments{}, missingCustomer{}, memory.NewProductRepository())

	rec := env.doJSON(t, http.MethodPost, "/create-checkout-session", map[string]any{
		"customerEmail": "buyer@example.com",
		"cartItems":     []map[string]any{{"productName": "Vase", "price": 10, "quantity": 1}},
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, genericErrorMessage, decode[errorResponse](t, rec).Err)
	assert.NotContains(t, rec.Body.String(), "buyer@example.com")
}

func TestWebhook_BadSignature(t *testing.T) {
	env := newTestEnv(t, &stubPayments{parseErr: fmt.Errorf("%w: no valid signature", domain.ErrWebhookSignature)})

	rec := env.do(t, http.MethodPost, "/webhook", []byte(`{"id":"evt"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Webhook Error: "), rec.Body.String())
}

func TestWebhook_RecordsSale(t *testing.T) {
	payments := &stubPayments{event: domain.PaymentEvent{
		ID:   "evt_1",
		Type: domain.PaymentEventCheckoutCompleted,
		Session: &domain.CompletedSession{
			ID:               "cs_test_1",
			CustomerEmail:    "a@x.com",
			AmountTotalMinor: 1130,
			Currency:         "usd",
		},
	}}
	env := newTestEnv(t, payments)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[webhookResponse](t, rec).Received)

	stored, err := env.sales.ListByUser(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "cs_test_1", stored[0].SaleID)
	assert.Equal(t, 11.3, stored[0].TotalAmount)
}

func TestMetrics_UseRoutePattern(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodGet, "/products/abc", nil, "")
	env.do(t, http.MethodGet, "/products/def", nil, "")

	families, err := env.registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, family := range families {
		if family.GetName() != "storefront_http_requests_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["route"] == "/products/{id}" && labels["status"] == "404" {
				found = true
				assert.Equal(t, float64(2), m.GetCounter().GetValue())
			}
		}
	}
	assert.True(t, found, "expected request counter labelled with the route pattern")
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", domain.ErrQuantityInvalid, http.StatusBadRequest},
		{"signature", domain.ErrWebhookSignature, http.StatusBadRequest},
		{"not found", domain.ErrProductNotFound, http.StatusNotFound},
		{"customer not found", fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, "buyer@example.com"), http.StatusInternalServerError},
		{"customer lookup", fmt.Errorf("%w: timeout", domain.ErrCustomerLookup), http.StatusInternalServerError},
		{"payments disabled", domain.ErrPaymentsDisabled, http.StatusServiceUnavailable},
		{"provider", fmt.Errorf("%w: boom", domain.ErrPaymentProvider), http.StatusInternalServerError},
		{"store", domain.StoreError("get", errors.New("x")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := statusForError(tt.err)
			assert.Equal(t, tt.status, status)
			if status == http.StatusInternalServerError {
				assert.Equal(t, genericErrorMessage, message)
			}
		})
	}
}
