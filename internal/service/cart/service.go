package cart

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Service управляет корзинами пользователей.
type Service struct {
	items  domain.CartRepository
	logger *log.Entry
}

// NewService создаёт сервис корзины.
func NewService(items domain.CartRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{items: items, logger: logger}
}

// Add добавляет позицию или перезаписывает существующую с тем же ключом.
func (s *Service) Add(ctx context.Context, item domain.CartItem) error {
	item.UserEmail = strings.TrimSpace(item.UserEmail)
	item.ProductID = strings.TrimSpace(item.ProductID)
	if err := item.Validate(); err != nil {
		return err
	}
	if err := s.items.Upsert(ctx, item); err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{
		"user_email": item.UserEmail,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	}).Debug("cart item stored")
	return nil
}

// ListByUser возвращает корзину пользователя, никогда не nil.
func (s *Service) ListByUser(ctx context.Context, email string) ([]domain.CartItem, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrUserEmailRequired
	}
	items, err := s.items.ListByUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, nil
}

// Remove удаляет позицию; отсутствие позиции не ошибка.
func (s *Service) Remove(ctx context.Context, email, productID string) error {
	email = strings.TrimSpace(email)
	productID = strings.TrimSpace(productID)
	if email == "" {
		return domain.ErrUserEmailRequired
	}
	if productID == "" {
		return domain.ErrProductIDRequired
	}
	return s.items.Delete(ctx, email, productID)
}
