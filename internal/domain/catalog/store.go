package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bloom/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

const productColumns = `
id, name, kind, price_cents, colors, stem_lengths, images,
quantity, sold_count, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p                     Product
		colors, stems, images []byte
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Kind, &p.PriceCents, &colors, &stems, &images,
		&p.Quantity, &p.SoldCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(colors) > 0 {
		if err := json.Unmarshal(colors, &p.Colors); err != nil {
			return nil, fmt.Errorf("decode colors: %w", err)
		}
	}
	if len(stems) > 0 {
		if err := json.Unmarshal(stems, &p.StemLengths); err != nil {
			return nil, fmt.Errorf("decode stem lengths: %w", err)
		}
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("decode images: %w", err)
		}
	}
	return &p, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *Repository) GetWrapper(ctx context.Context, id int64) (*Wrapper, error) {
	var w Wrapper
	err := r.db.QueryRow(ctx, `
SELECT id, name, price_cents, quantity, is_active, created_at, updated_at
FROM wrappers
WHERE id = $1`, id).Scan(
		&w.ID, &w.Name, &w.PriceCents, &w.Quantity, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWrapperNotFound
		}
		return nil, fmt.Errorf("get wrapper: %w", err)
	}
	return &w, nil
}

func (r *Repository) GetAddon(ctx context.Context, id int64) (*Addon, error) {
	var a Addon
	err := r.db.QueryRow(ctx, `
SELECT id, name, category, price_cents, quantity, sold_count, is_active, created_at, updated_at
FROM addons
WHERE id = $1`, id).Scan(
		&a.ID, &a.Name, &a.Category, &a.PriceCents, &a.Quantity, &a.SoldCount, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddonNotFound
		}
		return nil, fmt.Errorf("get addon: %w", err)
	}
	return &a, nil
}

// ListProducts returns a page of products and the total row count.
func (r *Repository) ListProducts(ctx context.Context, activeOnly bool, limit, offset int) ([]*Product, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
SELECT `+productColumns+`, COUNT(*) OVER() AS total_count
FROM products
WHERE ($1 = false OR is_active = true)
ORDER BY id ASC
LIMIT $2 OFFSET $3`, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Product
		total int
	)
	for rows.Next() {
		var (
			p                     Product
			colors, stems, images []byte
			t                     int
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Kind, &p.PriceCents, &colors, &stems, &images,
			&p.Quantity, &p.SoldCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		_ = json.Unmarshal(colors, &p.Colors)
		_ = json.Unmarshal(stems, &p.StemLengths)
		_ = json.Unmarshal(images, &p.Images)

		if total == 0 {
			total = t
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration: %w", err)
	}

	return out, total, nil
}

func (r *Repository) DeactivateSoldOut(ctx context.Context) (int64, error) {
	var n int64
	for _, table := range []string{"products", "wrappers", "addons"} {
		tag, err := r.db.Exec(ctx, fmt.Sprintf(`
UPDATE %s
SET is_active = false,
    updated_at = now()
WHERE quantity = 0
  AND is_active = true`, table))
		if err != nil {
			return n, fmt.Errorf("deactivate sold out %s: %w", table, err)
		}
		n += tag.RowsAffected()
	}
	return n, nil
}
