package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
// Товар хранится целиком в JSONB-колонке body.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT body FROM products ORDER BY id`)
	if err != nil {
		return nil, domain.StoreError("list products", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, domain.StoreError("scan product", err)
		}
		var p domain.Product
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, domain.StoreError("decode product", err)
		}
		p.Normalize()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("iterate products", err)
	}
	return products, nil
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var body []byte
	err := r.db.QueryRowContext(ctx, `SELECT body FROM products WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, domain.StoreError("get product", err)
	}

	var p domain.Product
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Product{}, domain.StoreError("decode product", err)
	}
	p.Normalize()
	return p, nil
}

func (r *productRepository) Upsert(ctx context.Context, product domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	product.Normalize()
	body, err := json.Marshal(product)
	if err != nil {
		return domain.StoreError("encode product", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products (id, body, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()
	`, product.ID, string(body))
	if err != nil {
		return domain.StoreError("upsert product", err)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return domain.StoreError("delete product", err)
	}
	return nil
}
