package webhook

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

// SaleRecorder сохраняет продажу, созданную по оплаченной сессии.
type SaleRecorder interface {
	Record(ctx context.Context, sale domain.Sale) (string, error)
}

// Processor обрабатывает вебхуки платёжного провайдера.
type Processor struct {
	payments domain.PaymentProvider
	sales    SaleRecorder
	metrics  *metrics.StorefrontMetrics
	logger   *log.Entry
	now      func() time.Time
}

// NewProcessor создаёт обработчик вебхуков. payments == nil означает,
// что платежи не сконфигурированы.
func NewProcessor(payments domain.PaymentProvider, sales SaleRecorder, m *metrics.StorefrontMetrics, logger *log.Entry) *Processor {
	if logger == nil {
		logger = log.New().WithField("component", "webhook")
	}
	return &Processor{
		payments: payments,
		sales:    sales,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle проверяет подпись и обрабатывает событие. Ошибка возвращается только
// до проверки подписи; после неё событие всегда подтверждается, а сбои
// получения позиций или записи продажи логируются и учитываются в метриках.
func (p *Processor) Handle(ctx context.Context, payload []byte, signature string) error {
	if p.payments == nil {
		return domain.ErrPaymentsDisabled
	}

	event, err := p.payments.ParseWebhookEvent(payload, signature)
	if err != nil {
		if errors.Is(err, domain.ErrWebhookSignature) {
			p.logger.WithError(err).Warn("webhook signature verification failed")
			p.metrics.RecordWebhookEvent("unverified", metrics.OutcomeFailure)
			return err
		}
		p.logger.WithError(err).Error("failed to decode verified webhook event")
		p.metrics.RecordWebhookEvent("undecodable", metrics.OutcomeFailure)
		return nil
	}

	logger := p.logger.WithFields(log.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	if event.Type != domain.PaymentEventCheckoutCompleted || event.Session == nil {
		logger.Info("webhook event acknowledged")
		p.metrics.RecordWebhookEvent(event.Type, metrics.OutcomeIgnored)
		return nil
	}

	// Провайдер может закрыть соединение раньше, чем продажа будет записана.
	ctx = context.WithoutCancel(ctx)
	if err := p.recordSale(ctx, event.Session, logger); err != nil {
		p.metrics.RecordSalePersistFailure()
		p.metrics.RecordWebhookEvent(event.Type, metrics.OutcomeFailure)
		return nil
	}

	p.metrics.RecordWebhookEvent(event.Type, metrics.OutcomeSuccess)
	return nil
}

func (p *Processor) recordSale(ctx context.Context, session *domain.CompletedSession, logger *log.Entry) error {
	logger = logger.WithField("session_id", session.ID)

	lineItems, err := p.payments.ListSessionLineItems(ctx, session.ID)
	if err != nil {
		logger.WithError(err).Error("failed to list checkout session line items")
		return err
	}

	sale := BuildSale(session, lineItems, p.now())
	if _, err := p.sales.Record(ctx, sale); err != nil {
		logger.WithError(err).WithField("user_email", sale.UserEmail).Error("failed to record sale from webhook")
		return err
	}

	logger.WithFields(log.Fields{
		"sale_id":      sale.SaleID,
		"total_amount": sale.TotalAmount,
	}).Info("sale recorded from checkout session")
	return nil
}

// BuildSale строит продажу по оплаченной сессии. saleId совпадает
// с идентификатором сессии, поэтому повторная доставка перезаписывает запись.
func BuildSale(session *domain.CompletedSession, lineItems []domain.SessionLineItem, now time.Time) domain.Sale {
	products := make([]domain.SaleProduct, 0, len(lineItems))
	for _, li := range lineItems {
		products = append(products, domain.SaleProduct{
			ProductName: li.Description,
			Quantity:    li.Quantity,
			Price:       checkout.FromMinorUnits(li.AmountTotalMinor),
		})
	}

	return domain.Sale{
		SaleID:            session.ID,
		CheckoutSessionID: session.ID,
		UserEmail:         strings.TrimSpace(session.CustomerEmail),
		TotalAmount:       checkout.FromMinorUnits(session.AmountTotalMinor),
		Currency:          session.Currency,
		PaymentStatus:     domain.PaymentStatusPaid,
		ShippingAddress:   session.Shipping,
		Timestamp:         now,
		Products:          products,
	}
}
