package carts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bloom/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

const cartColumns = `id, user_id, session_id, flower_items, addon_items, version, expires_at, created_at, updated_at`

func scanCart(row pgx.Row) (*Cart, error) {
	var (
		c               Cart
		flowers, addons []byte
	)
	if err := row.Scan(
		&c.ID, &c.Owner.UserID, &c.Owner.SessionID, &flowers, &addons,
		&c.Version, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	c.FlowerItems = []FlowerItem{}
	c.AddonItems = []AddonItem{}
	if len(flowers) > 0 {
		if err := json.Unmarshal(flowers, &c.FlowerItems); err != nil {
			return nil, fmt.Errorf("decode flower items: %w", err)
		}
	}
	if len(addons) > 0 {
		if err := json.Unmarshal(addons, &c.AddonItems); err != nil {
			return nil, fmt.Errorf("decode addon items: %w", err)
		}
	}
	c.RecomputeTotals()
	return &c, nil
}

func encodeItems(c *Cart) ([]byte, []byte, error) {
	flowers, err := json.Marshal(c.FlowerItems)
	if err != nil {
		return nil, nil, fmt.Errorf("encode flower items: %w", err)
	}
	addons, err := json.Marshal(c.AddonItems)
	if err != nil {
		return nil, nil, fmt.Errorf("encode addon items: %w", err)
	}
	return flowers, addons, nil
}

func (r *Repository) GetByOwner(ctx context.Context, owner Owner) (*Cart, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}

	var row pgx.Row
	if owner.UserID != nil {
		row = r.db.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, *owner.UserID)
	} else {
		row = r.db.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE session_id = $1`, *owner.SessionID)
	}

	c, err := scanCart(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return c, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Cart, error) {
	c, err := scanCart(r.db.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart %d: %w", id, err)
	}
	return c, nil
}

// Create relies on the partial unique indexes over user_id and session_id;
// a racing insert for the same owner surfaces as ErrCartExists.
func (r *Repository) Create(ctx context.Context, c *Cart) error {
	if !c.Owner.Valid() {
		return ErrInvalidOwner
	}
	flowers, addons, err := encodeItems(c)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, `
INSERT INTO carts (user_id, session_id, flower_items, addon_items, total_cents, item_count, version, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
RETURNING id, version, created_at, updated_at
`, c.Owner.UserID, c.Owner.SessionID, flowers, addons, c.Total(), c.TotalItemCount(), c.ExpiresAt).
		Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCartExists
		}
		return fmt.Errorf("create cart: %w", err)
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, c *Cart) error {
	flowers, addons, err := encodeItems(c)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, `
UPDATE carts
SET flower_items = $3,
    addon_items  = $4,
    total_cents  = $5,
    item_count   = $6,
    expires_at   = $7,
    version      = version + 1,
    updated_at   = now()
WHERE id = $1
  AND version = $2
RETURNING version, updated_at
`, c.ID, c.Version, flowers, addons, c.Total(), c.TotalItemCount(), c.ExpiresAt).
		Scan(&c.Version, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return fmt.Errorf("save cart %d: %w", c.ID, err)
	}
	return nil
}

func (r *Repository) PurgeExpiredGuests(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
DELETE FROM carts
WHERE user_id IS NULL
  AND expires_at IS NOT NULL
  AND expires_at <= $1
`, now)
	if err != nil {
		return 0, fmt.Errorf("purge guest carts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]*Cart, int, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+cartColumns+`, COUNT(*) OVER()
FROM carts
ORDER BY updated_at DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list carts: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Cart
		total int
	)
	for rows.Next() {
		var (
			c               Cart
			flowers, addons []byte
		)
		if err := rows.Scan(
			&c.ID, &c.Owner.UserID, &c.Owner.SessionID, &flowers, &addons,
			&c.Version, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt, &total,
		); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(flowers, &c.FlowerItems); err != nil {
			return nil, 0, fmt.Errorf("decode flower items: %w", err)
		}
		if err := json.Unmarshal(addons, &c.AddonItems); err != nil {
			return nil, 0, fmt.Errorf("decode addon items: %w", err)
		}
		c.RecomputeTotals()
		out = append(out, &c)
	}
	return out, total, rows.Err()
}
