package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type salesRepository struct {
	db *sql.DB
}

// NewSalesRepository создаёт PostgreSQL-реализацию SalesRepository.
func NewSalesRepository(store *Store) domain.SalesRepository {
	return &salesRepository{db: store.DB()}
}

func (r *salesRepository) Upsert(ctx context.Context, sale domain.Sale) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	sale.Normalize()
	body, err := json.Marshal(sale)
	if err != nil {
		return domain.StoreError("encode sale", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sales (sale_id, user_email, sold_at, body) VALUES ($1, $2, $3, $4)
		ON CONFLICT (sale_id) DO UPDATE SET
			user_email = EXCLUDED.user_email,
			sold_at = EXCLUDED.sold_at,
			body = EXCLUDED.body
	`, sale.SaleID, sale.UserEmail, sale.Timestamp, string(body))
	if err != nil {
		return domain.StoreError("upsert sale", err)
	}
	return nil
}

func (r *salesRepository) ListByUser(ctx context.Context, userEmail string) ([]domain.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT body FROM sales WHERE user_email = $1 ORDER BY sold_at DESC, sale_id DESC
	`, userEmail)
	if err != nil {
		return nil, domain.StoreError("list sales by user", err)
	}
	return scanSales(rows)
}

func (r *salesRepository) List(ctx context.Context) ([]domain.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT body FROM sales ORDER BY sold_at DESC, sale_id DESC`)
	if err != nil {
		return nil, domain.StoreError("list sales", err)
	}
	return scanSales(rows)
}

func (r *salesRepository) Delete(ctx context.Context, saleID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE sale_id = $1`, saleID); err != nil {
		return domain.StoreError("delete sale", err)
	}
	return nil
}

func scanSales(rows *sql.Rows) ([]domain.Sale, error) {
	defer rows.Close()

	sales := make([]domain.Sale, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, domain.StoreError("scan sale", err)
		}
		var sale domain.Sale
		if err := json.Unmarshal(body, &sale); err != nil {
			return nil, domain.StoreError("decode sale", err)
		}
		sale.Normalize()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("iterate sales", err)
	}
	return sales, nil
}
