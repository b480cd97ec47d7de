// Package httpsvc реализует REST API витрины поверх chi.
package httpsvc

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Ограничения размера тел запросов.
const (
	DefaultMaxUploadBytes int64 = 32 << 20
	DefaultMaxBodyBytes   int64 = 1 << 20
	multipartMemoryBytes  int64 = 8 << 20
)

const (
	liveMessage         = "Server is live!"
	genericErrorMessage = "Something went wrong!"
)

// CatalogService — операции каталога товаров.
type CatalogService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	Create(ctx context.Context, product domain.Product, files []domain.ImageFile) (domain.Product, error)
	Update(ctx context.Context, id string, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id string) (domain.ProductDeleteResult, error)
}

// CartService описывает операции корзины.
type CartService interface {
	Add(ctx context.Context, item domain.CartItem) error
	ListByUser(ctx context.Context, email string) ([]domain.CartItem, error)
	Remove(ctx context.Context, email, productID string) error
}

// SalesService описывает операции журнала продаж.
type SalesService interface {
	Record(ctx context.Context, sale domain.Sale) (string, error)
	ListByUser(ctx context.Context, email string) ([]domain.Sale, error)
	List(ctx context.Context) ([]domain.Sale, error)
	Delete(ctx context.Context, saleID string) error
}

// CheckoutService создаёт checkout-сессии.
type CheckoutService interface {
	CreateSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error)
}

// WebhookProcessor обрабатывает вебхуки платёжного провайдера.
type WebhookProcessor interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

// Services — зависимости HTTP-слоя.
type Services struct {
	Catalog  CatalogService
	Cart     CartService
	Sales    SalesService
	Checkout CheckoutService
	Webhook  WebhookProcessor
}

// Options настраивает роутер.
type Options struct {
	Metrics        *metrics.StorefrontMetrics
	Logger         *log.Entry
	MaxUploadBytes int64
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// Server держит обработчики REST API.
type Server struct {
	svc            Services
	metrics        *metrics.StorefrontMetrics
	logger         *log.Entry
	maxUploadBytes int64
	maxBodyBytes   int64
}

// NewRouter собирает chi-роутер со всеми маршрутами API.
func NewRouter(svc Services, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = log.New().WithField("component", "http")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		svc:            svc,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		maxUploadBytes: opts.MaxUploadBytes,
		maxBodyBytes:   opts.MaxBodyBytes,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/", s.live)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.listProducts)
		r.Post("/", s.createProduct)
		r.Get("/{id}", s.getProduct)
		r.Put("/{id}", s.updateProduct)
		r.Delete("/{id}", s.deleteProduct)
	})

	r.Post("/cart", s.addCartItem)
	r.Get("/cart/{email}", s.listCart)
	r.Delete("/cart/{email}/{productId}", s.removeCartItem)

	r.Route("/sales", func(r chi.Router) {
		r.Post("/", s.recordSale)
		r.Get("/", s.listSales)
		r.Get("/user/{email}", s.listUserSales)
		r.Delete("/{saleId}", s.deleteSale)
	})

	r.Post("/create-checkout-session", s.createCheckoutSession)
	r.Post("/webhook", s.webhook)

	return r
}

func (s *Server) live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(liveMessage))
}
