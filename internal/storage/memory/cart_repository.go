package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartKey struct {
	userEmail string
	productID string
}

// cartRepositoryInMemory хранит позиции корзин по составному ключу.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[cartKey]domain.CartItem
}

// NewCartRepository возвращает in-memory реализацию CartRepository.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		items: make(map[cartKey]domain.CartItem),
	}
}

func (r *cartRepositoryInMemory) Upsert(_ context.Context, item domain.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[cartKey{userEmail: item.UserEmail, productID: item.ProductID}] = item
	return nil
}

func (r *cartRepositoryInMemory) ListByUser(_ context.Context, userEmail string) ([]domain.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.CartItem, 0)
	for key, item := range r.items {
		if key.userEmail != userEmail {
			continue
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProductID < result[j].ProductID })
	return result, nil
}

func (r *cartRepositoryInMemory) Delete(_ context.Context, userEmail, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, cartKey{userEmail: userEmail, productID: productID})
	return nil
}
