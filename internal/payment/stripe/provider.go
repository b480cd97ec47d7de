// Package stripe адаптирует Stripe к порту domain.PaymentProvider.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
	breakerHalfOpenRequests = 1

	deliveryUnitBusinessDay = "business_day"
	shippingRateFixedAmount = "fixed_amount"
)

// Config описывает подключение к Stripe.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// APIURL переопределяет адрес API (тесты, stripe-mock).
	APIURL     string
	HTTPClient *http.Client
}

// Provider реализует domain.PaymentProvider поверх stripe-go.
// Все исходящие вызовы проходят через circuit breaker и не повторяются.
type Provider struct {
	api           *client.API
	webhookSecret string
	breaker       *gobreaker.CircuitBreaker[any]
	logger        *log.Entry
}

var _ domain.PaymentProvider = (*Provider)(nil)

// New создаёт клиента Stripe.
func New(cfg Config, logger *log.Entry) (*Provider, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	logger = logger.WithField("component", "stripe")

	backendCfg := &stripeapi.BackendConfig{
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     logger,
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripeapi.String(cfg.APIURL)
	}
	if cfg.HTTPClient != nil {
		backendCfg.HTTPClient = cfg.HTTPClient
	}
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendCfg)

	return &Provider{
		api:           client.New(cfg.SecretKey, &stripeapi.Backends{API: backend, Connect: backend, Uploads: backend}),
		webhookSecret: cfg.WebhookSecret,
		breaker:       newBreaker("stripe", logger),
		logger:        logger,
	}, nil
}

func newBreaker(name string, logger *log.Entry) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: breakerHalfOpenRequests,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
		IsSuccessful: isProviderHealthy,
	})
}

// isProviderHealthy считает клиентские ошибки Stripe (4xx, кроме 429) признаком
// рабочего провайдера: они не должны размыкать breaker.
func isProviderHealthy(err error) bool {
	if err == nil {
		return true
	}
	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) {
		code := stripeErr.HTTPStatusCode
		return code >= 400 && code < 500 && code != http.StatusTooManyRequests
	}
	return false
}

func (p *Provider) call(op string, fn func() (any, error)) (any, error) {
	res, err := p.breaker.Execute(fn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrPaymentProvider, op, err)
	}
	return res, nil
}

// CreateCheckoutSession создаёт hosted checkout-сессию в режиме payment.
func (p *Provider) CreateCheckoutSession(ctx context.Context, params domain.CheckoutSessionParams) (domain.CheckoutSession, error) {
	sp := buildSessionParams(params)
	sp.Context = ctx

	res, err := p.call("create checkout session", func() (any, error) {
		return p.api.CheckoutSessions.New(sp)
	})
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	session := res.(*stripeapi.CheckoutSession)
	return domain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func buildSessionParams(params domain.CheckoutSessionParams) *stripeapi.CheckoutSessionParams {
	sp := &stripeapi.CheckoutSessionParams{
		Mode:       stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		SuccessURL: stripeapi.String(params.SuccessURL),
		CancelURL:  stripeapi.String(params.CancelURL),
	}

	for _, item := range params.LineItems {
		product := &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripeapi.String(item.Name),
		}
		if item.Image != "" {
			product.Images = stripeapi.StringSlice([]string{item.Image})
		}
		sp.LineItems = append(sp.LineItems, &stripeapi.CheckoutSessionLineItemParams{
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripeapi.String(params.Currency),
				ProductData: product,
				UnitAmount:  stripeapi.Int64(item.UnitAmountMinor),
			},
			Quantity: stripeapi.Int64(item.Quantity),
		})
	}

	if len(params.AllowedCountries) > 0 {
		sp.ShippingAddressCollection = &stripeapi.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripeapi.StringSlice(params.AllowedCountries),
		}
	}

	if params.CustomerID != "" {
		sp.Customer = stripeapi.String(params.CustomerID)
	} else if params.CustomerEmail != "" {
		sp.CustomerEmail = stripeapi.String(params.CustomerEmail)
	}

	for _, opt := range params.ShippingOptions {
		sp.ShippingOptions = append(sp.ShippingOptions, &stripeapi.CheckoutSessionShippingOptionParams{
			ShippingRateData: &stripeapi.CheckoutSessionShippingOptionShippingRateDataParams{
				DisplayName: stripeapi.String(opt.DisplayName),
				Type:        stripeapi.String(shippingRateFixedAmount),
				FixedAmount: &stripeapi.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripeapi.Int64(opt.AmountMinor),
					Currency: stripeapi.String(params.Currency),
				},
				DeliveryEstimate: &stripeapi.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{
					Minimum: &stripeapi.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
						Unit:  stripeapi.String(deliveryUnitBusinessDay),
						Value: stripeapi.Int64(opt.Estimate.MinBusinessDays),
					},
					Maximum: &stripeapi.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
						Unit:  stripeapi.String(deliveryUnitBusinessDay),
						Value: stripeapi.Int64(opt.Estimate.MaxBusinessDays),
					},
				},
			},
		})
	}

	for k, v := range params.Metadata {
		sp.AddMetadata(k, v)
	}
	return sp
}

// CreateCustomer регистрирует покупателя с именем и адресом доставки.
func (p *Provider) CreateCustomer(ctx context.Context, customer domain.Customer) (string, error) {
	params := &stripeapi.CustomerParams{
		Email: stripeapi.String(customer.Email),
	}
	params.Context = ctx
	if customer.Name != "" {
		params.Name = stripeapi.String(customer.Name)
	}
	if !customer.Address.IsZero() {
		name := customer.Address.Name
		if name == "" {
			name = customer.Name
		}
		params.Shipping = &stripeapi.CustomerShippingParams{
			Name: stripeapi.String(name),
			Address: &stripeapi.AddressParams{
				Line1:      stripeapi.String(customer.Address.Line1),
				Line2:      stripeapi.String(customer.Address.Line2),
				City:       stripeapi.String(customer.Address.City),
				State:      stripeapi.String(customer.Address.State),
				PostalCode: stripeapi.String(customer.Address.PostalCode),
				Country:    stripeapi.String(customer.Address.Country),
			},
		}
	}

	res, err := p.call("create customer", func() (any, error) {
		return p.api.Customers.New(params)
	})
	if err != nil {
		return "", err
	}
	return res.(*stripeapi.Customer).ID, nil
}

// ParseWebhookEvent проверяет подпись Stripe-Signature и разбирает событие.
// Несовпадение версии API событий не считается ошибкой.
func (p *Provider) ParseWebhookEvent(payload []byte, signature string) (domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: %w", domain.ErrWebhookSignature, err)
	}

	result := domain.PaymentEvent{ID: event.ID, Type: string(event.Type)}
	if event.Type != stripeapi.EventTypeCheckoutSessionCompleted || event.Data == nil {
		return result, nil
	}

	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: decode checkout session: %w", domain.ErrPaymentProvider, err)
	}
	result.Session = completedSession(&session)
	return result, nil
}

func completedSession(s *stripeapi.CheckoutSession) *domain.CompletedSession {
	out := &domain.CompletedSession{
		ID:               s.ID,
		CustomerEmail:    s.CustomerEmail,
		AmountTotalMinor: s.AmountTotal,
		Currency:         string(s.Currency),
	}
	if out.CustomerEmail == "" && s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if s.ShippingDetails != nil {
		addr := &domain.ShippingAddress{Name: s.ShippingDetails.Name}
		if a := s.ShippingDetails.Address; a != nil {
			addr.Line1 = a.Line1
			addr.Line2 = a.Line2
			addr.City = a.City
			addr.State = a.State
			addr.PostalCode = a.PostalCode
			addr.Country = a.Country
		}
		if !addr.IsZero() {
			out.Shipping = addr
		}
	}
	return out
}

// ListSessionLineItems выгружает все позиции сессии, проходя страницы.
func (p *Provider) ListSessionLineItems(ctx context.Context, sessionID string) ([]domain.SessionLineItem, error) {
	res, err := p.call("list line items", func() (any, error) {
		params := &stripeapi.CheckoutSessionListLineItemsParams{Session: stripeapi.String(sessionID)}
		params.Context = ctx

		items := make([]domain.SessionLineItem, 0)
		iter := p.api.CheckoutSessions.ListLineItems(params)
		for iter.Next() {
			li := iter.LineItem()
			items = append(items, domain.SessionLineItem{
				Description:      li.Description,
				Quantity:         li.Quantity,
				AmountTotalMinor: li.AmountTotal,
			})
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]domain.SessionLineItem), nil
}
