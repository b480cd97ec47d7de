package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

func (r *cartRepository) Upsert(ctx context.Context, item domain.CartItem) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	body, err := json.Marshal(item)
	if err != nil {
		return domain.StoreError("encode cart item", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_email, product_id, body, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_email, product_id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()
	`, item.UserEmail, item.ProductID, string(body))
	if err != nil {
		return domain.StoreError("upsert cart item", err)
	}
	return nil
}

func (r *cartRepository) ListByUser(ctx context.Context, userEmail string) ([]domain.CartItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT body FROM cart_items WHERE user_email = $1 ORDER BY product_id
	`, userEmail)
	if err != nil {
		return nil, domain.StoreError("list cart", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, domain.StoreError("scan cart item", err)
		}
		var item domain.CartItem
		if err := json.Unmarshal(body, &item); err != nil {
			return nil, domain.StoreError("decode cart item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("iterate cart", err)
	}
	return items, nil
}

func (r *cartRepository) Delete(ctx context.Context, userEmail, productID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_email = $1 AND product_id = $2`, userEmail, productID)
	if err != nil {
		return domain.StoreError("delete cart item", err)
	}
	return nil
}
