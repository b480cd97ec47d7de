package sales

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Service ведёт журнал продаж.
type Service struct {
	sales  domain.SalesRepository
	events domain.EventPublisher
	logger *log.Entry
	newID  func() string
	now    func() time.Time
}

// NewService создаёт сервис продаж. events может быть nil.
func NewService(sales domain.SalesRepository, events domain.EventPublisher, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "sales")
	}
	return &Service{
		sales:  sales,
		events: events,
		logger: logger,
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record сохраняет продажу целиком и возвращает её идентификатор.
// Пустой saleId генерируется, нулевой timestamp заменяется текущим временем.
func (s *Service) Record(ctx context.Context, sale domain.Sale) (string, error) {
	sale.SaleID = strings.TrimSpace(sale.SaleID)
	if sale.SaleID == "" {
		sale.SaleID = s.newID()
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = s.now()
	}
	sale.Normalize()
	if err := sale.Validate(); err != nil {
		return "", err
	}

	if err := s.sales.Upsert(ctx, sale); err != nil {
		return "", err
	}

	s.logger.WithFields(log.Fields{
		"sale_id":      sale.SaleID,
		"user_email":   sale.UserEmail,
		"total_amount": sale.TotalAmount,
	}).Info("sale recorded")

	if s.events != nil {
		err := s.events.Publish(ctx, domain.Event{
			Type:        domain.EventSaleRecorded,
			AggregateID: sale.SaleID,
			Payload:     sale,
			OccurredAt:  s.now(),
		})
		if err != nil {
			s.logger.WithError(err).WithField("sale_id", sale.SaleID).Warn("failed to publish sale event")
		}
	}

	return sale.SaleID, nil
}

// ListByUser возвращает продажи пользователя через вторичный индекс.
func (s *Service) ListByUser(ctx context.Context, email string) ([]domain.Sale, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrUserEmailRequired
	}
	return normalized(s.sales.ListByUser(ctx, email))
}

// List возвращает все продажи.
func (s *Service) List(ctx context.Context) ([]domain.Sale, error) {
	return normalized(s.sales.List(ctx))
}

// Delete удаляет продажу; отсутствие записи не ошибка.
func (s *Service) Delete(ctx context.Context, saleID string) error {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return domain.ErrSaleIDRequired
	}
	return s.sales.Delete(ctx, saleID)
}

func normalized(sales []domain.Sale, err error) ([]domain.Sale, error) {
	if err != nil {
		return nil, err
	}
	if sales == nil {
		return []domain.Sale{}, nil
	}
	for i := range sales {
		sales[i].Normalize()
	}
	return sales, nil
}
