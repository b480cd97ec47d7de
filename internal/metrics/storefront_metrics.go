package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения label outcome.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeIgnored = "ignored"
)

// StorefrontMetrics содержит метрики HTTP API и бизнес-операций витрины.
// Все методы безопасны для nil-получателя.
type StorefrontMetrics struct {
	// HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	// Каталог
	imageUploads         *prometheus.CounterVec
	imageCascadeFailures prometheus.Counter

	// Оформление и вебхуки
	checkoutSessions    *prometheus.CounterVec
	webhookEvents       *prometheus.CounterVec
	salePersistFailures prometheus.Counter

	// Доменные события
	eventsPublished *prometheus.CounterVec
}

// NewStorefrontMetrics регистрирует метрики в DefaultRegisterer.
func NewStorefrontMetrics() *StorefrontMetrics {
	return NewStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStorefrontMetricsWithRegisterer регистрирует метрики в переданном registerer
// (в тестах используется изолированный prometheus.NewRegistry()).
func NewStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route"}),
		httpInFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_http_in_flight_requests",
			Help: "Number of HTTP requests currently being served",
		}),
		imageUploads: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_image_uploads_total",
			Help: "Total number of product image uploads by outcome",
		}, []string{"outcome"}),
		imageCascadeFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_image_cascade_failures_total",
			Help: "Total number of product images left behind by cascading product deletes",
		}),
		checkoutSessions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_sessions_total",
			Help: "Total number of checkout session attempts by variant and outcome",
		}, []string{"variant", "outcome"}),
		webhookEvents: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_webhook_events_total",
			Help: "Total number of verified payment webhook events by type and outcome",
		}, []string{"type", "outcome"}),
		salePersistFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_sale_persist_failures_total",
			Help: "Total number of webhook sales that could not be recorded",
		}),
		eventsPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_domain_events_total",
			Help: "Total number of domain events published by type and outcome",
		}, []string{"type", "outcome"}),
	}
}

// RecordHTTPRequest фиксирует завершённый HTTP-запрос.
func (m *StorefrontMetrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// HTTPRequestStarted увеличивает число обслуживаемых запросов.
func (m *StorefrontMetrics) HTTPRequestStarted() {
	if m == nil {
		return
	}
	m.httpInFlight.Inc()
}

// HTTPRequestFinished уменьшает число обслуживаемых запросов.
func (m *StorefrontMetrics) HTTPRequestFinished() {
	if m == nil {
		return
	}
	m.httpInFlight.Dec()
}

// RecordImageUpload фиксирует загрузку одного изображения.
func (m *StorefrontMetrics) RecordImageUpload(outcome string) {
	if m == nil {
		return
	}
	m.imageUploads.WithLabelValues(outcome).Inc()
}

// RecordImageCascadeFailures добавляет n неудалённых изображений.
func (m *StorefrontMetrics) RecordImageCascadeFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.imageCascadeFailures.Add(float64(n))
}

// RecordCheckoutSession фиксирует попытку создания checkout-сессии.
func (m *StorefrontMetrics) RecordCheckoutSession(variant, outcome string) {
	if m == nil {
		return
	}
	m.checkoutSessions.WithLabelValues(variant, outcome).Inc()
}

// RecordWebhookEvent фиксирует обработку проверенного события вебхука.
func (m *StorefrontMetrics) RecordWebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// RecordSalePersistFailure фиксирует продажу, потерянную при записи.
func (m *StorefrontMetrics) RecordSalePersistFailure() {
	if m == nil {
		return
	}
	m.salePersistFailures.Inc()
}

// RecordEventPublished фиксирует публикацию доменного события.
func (m *StorefrontMetrics) RecordEventPublished(eventType, outcome string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType, outcome).Inc()
}
