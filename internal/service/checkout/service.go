package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Значения по умолчанию для сессии оформления.
const (
	DefaultCurrency = "usd"
	DefaultTaxRate  = 0.13

	successPath = "/success?session_id={CHECKOUT_SESSION_ID}"
	cancelPath  = "/cart"

	variantCustomer = "customer"
	variantEmail    = "email"
)

// DefaultAllowedCountries — страны доставки по умолчанию.
var DefaultAllowedCountries = []string{"US", "CA"}

// Тарифы доставки для сессий без профиля покупателя.
var defaultShippingOptions = []domain.ShippingOption{
	{
		DisplayName: "Standard Shipping",
		AmountMinor: 0,
		Estimate:    domain.DeliveryEstimate{MinBusinessDays: 5, MaxBusinessDays: 7},
	},
	{
		DisplayName: "Expedited Shipping",
		AmountMinor: 1500,
		Estimate:    domain.DeliveryEstimate{MinBusinessDays: 1, MaxBusinessDays: 3},
	},
}

// Config задаёт параметры сессий оформления.
type Config struct {
	FrontendURL      string
	Currency         string
	// TaxRate == nil означает DefaultTaxRate; нулевая ставка задаётся явно.
	TaxRate          *float64
	AllowedCountries []string
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Currency) == "" {
		c.Currency = DefaultCurrency
	}
	c.Currency = strings.ToLower(c.Currency)
	if c.TaxRate == nil {
		rate := DefaultTaxRate
		c.TaxRate = &rate
	}
	if len(c.AllowedCountries) == 0 {
		c.AllowedCountries = DefaultAllowedCountries
	}
	c.FrontendURL = strings.TrimRight(c.FrontendURL, "/")
	return c
}

// Service создаёт hosted-checkout сессии у платёжного провайдера.
type Service struct {
	payments domain.PaymentProvider
	identity domain.IdentityProvider
	cfg      Config
	taxRate  decimal.Decimal
	metrics  *metrics.StorefrontMetrics
	logger   *log.Entry
}

// NewService создаёт сервис оформления. payments == nil означает, что платежи
// не сконфигурированы; identity == nil включает вариант сессии по email.
func NewService(
	payments domain.PaymentProvider,
	identity domain.IdentityProvider,
	cfg Config,
	m *metrics.StorefrontMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	cfg = cfg.withDefaults()
	return &Service{
		payments: payments,
		identity: identity,
		cfg:      cfg,
		taxRate:  decimal.NewFromFloat(*cfg.TaxRate),
		metrics:  m,
		logger:   logger,
	}
}

// Enabled сообщает, сконфигурирован ли платёжный провайдер.
func (s *Service) Enabled() bool {
	return s.payments != nil
}

// CreateSession валидирует корзину, при наличии identity-провайдера создаёт
// покупателя у платёжного провайдера и открывает checkout-сессию.
func (s *Service) CreateSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	if s.payments == nil {
		return domain.CheckoutSession{}, domain.ErrPaymentsDisabled
	}
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	if err := req.Validate(); err != nil {
		return domain.CheckoutSession{}, err
	}

	params := s.baseParams(req)
	variant := variantEmail
	if s.identity != nil {
		variant = variantCustomer
		customerID, err := s.registerCustomer(ctx, req)
		if err != nil {
			s.metrics.RecordCheckoutSession(variant, metrics.OutcomeFailure)
			return domain.CheckoutSession{}, err
		}
		params.CustomerID = customerID
	} else {
		params.CustomerEmail = req.CustomerEmail
		params.ShippingOptions = defaultShippingOptions
	}

	session, err := s.payments.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.metrics.RecordCheckoutSession(variant, metrics.OutcomeFailure)
		s.logger.WithError(err).WithField("customer_email", req.CustomerEmail).Error("failed to create checkout session")
		if !errors.Is(err, domain.ErrPaymentProvider) {
			err = fmt.Errorf("%w: %w", domain.ErrPaymentProvider, err)
		}
		return domain.CheckoutSession{}, err
	}

	s.metrics.RecordCheckoutSession(variant, metrics.OutcomeSuccess)
	s.logger.WithFields(log.Fields{
		"session_id": session.ID,
		"variant":    variant,
		"items":      len(params.LineItems),
	}).Info("checkout session created")
	return session, nil
}

func (s *Service) baseParams(req domain.CheckoutRequest) domain.CheckoutSessionParams {
	lineItems := make([]domain.CheckoutLineItem, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		lineItems = append(lineItems, domain.CheckoutLineItem{
			Name:            item.ProductName,
			Image:           strings.TrimSpace(item.Image),
			UnitAmountMinor: UnitAmountWithTax(item.Price, s.taxRate),
			Quantity:        item.Quantity,
		})
	}

	return domain.CheckoutSessionParams{
		Currency:         s.cfg.Currency,
		LineItems:        lineItems,
		SuccessURL:       s.cfg.FrontendURL + successPath,
		CancelURL:        s.cfg.FrontendURL + cancelPath,
		AllowedCountries: append([]string(nil), s.cfg.AllowedCountries...),
		Metadata:         map[string]string{"customer_email": req.CustomerEmail},
	}
}

// registerCustomer ищет профиль в identity-провайдере и регистрирует
// покупателя у платёжного провайдера с именем и адресом доставки.
func (s *Service) registerCustomer(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	customer, err := s.identity.LookupCustomer(ctx, req.CustomerEmail)
	if err != nil {
		s.logger.WithError(err).WithField("customer_email", req.CustomerEmail).Warn("customer lookup failed")
		return "", err
	}
	if customer.Email == "" {
		customer.Email = req.CustomerEmail
	}
	if customer.Address.IsZero() && !req.Shipping.IsZero() {
		address := *req.Shipping
		customer.Address = &address
	}

	customerID, err := s.payments.CreateCustomer(ctx, customer)
	if err != nil {
		s.logger.WithError(err).WithField("customer_email", req.CustomerEmail).Error("failed to create payment customer")
		if !errors.Is(err, domain.ErrPaymentProvider) {
			err = fmt.Errorf("%w: %w", domain.ErrPaymentProvider, err)
		}
		return "", err
	}
	return customerID, nil
}
