package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type salesRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Sale
}

// NewSalesRepository возвращает in-memory реализацию SalesRepository.
func NewSalesRepository() domain.SalesRepository {
	return &salesRepositoryInMemory{
		items: make(map[string]domain.Sale),
	}
}

func (r *salesRepositoryInMemory) Upsert(_ context.Context, sale domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[sale.SaleID] = cloneSale(sale)
	return nil
}

// ListByUser возвращает продажи пользователя, новые первыми.
func (r *salesRepositoryInMemory) ListByUser(_ context.Context, userEmail string) ([]domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Sale, 0)
	for _, sale := range r.items {
		if sale.UserEmail != userEmail {
			continue
		}
		result = append(result, cloneSale(sale))
	}
	sortSales(result)
	return result, nil
}

func (r *salesRepositoryInMemory) List(_ context.Context) ([]domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Sale, 0, len(r.items))
	for _, sale := range r.items {
		result = append(result, cloneSale(sale))
	}
	sortSales(result)
	return result, nil
}

func (r *salesRepositoryInMemory) Delete(_ context.Context, saleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, saleID)
	return nil
}

func sortSales(sales []domain.Sale) {
	sort.Slice(sales, func(i, j int) bool {
		if !sales[i].Timestamp.Equal(sales[j].Timestamp) {
			return sales[i].Timestamp.After(sales[j].Timestamp)
		}
		return sales[i].SaleID > sales[j].SaleID
	})
}

func cloneSale(s domain.Sale) domain.Sale {
	s.Products = slices.Clone(s.Products)
	if s.ShippingAddress != nil {
		addr := *s.ShippingAddress
		s.ShippingAddress = &addr
	}
	return s
}
