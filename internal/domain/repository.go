package domain

import "context"

// ProductRepository описывает требования к хранилищу товаров.
type ProductRepository interface {
	// List возвращает все товары без пагинации.
	List(ctx context.Context) ([]Product, error)
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	// Upsert сохраняет запись целиком (replace).
	Upsert(ctx context.Context, product Product) error
	// Delete удаляет запись; отсутствие записи не ошибка.
	Delete(ctx context.Context, id string) error
}

// CartRepository хранит позиции корзин по ключу (userEmail, productID).
type CartRepository interface {
	Upsert(ctx context.Context, item CartItem) error
	ListByUser(ctx context.Context, userEmail string) ([]CartItem, error)
	Delete(ctx context.Context, userEmail, productID string) error
}

// SalesRepository хранит журнал продаж.
type SalesRepository interface {
	Upsert(ctx context.Context, sale Sale) error
	// ListByUser использует вторичный индекс по userEmail.
	ListByUser(ctx context.Context, userEmail string) ([]Sale, error)
	// List — полный просмотр таблицы (админский сценарий).
	List(ctx context.Context) ([]Sale, error)
	Delete(ctx context.Context, saleID string) error
}
