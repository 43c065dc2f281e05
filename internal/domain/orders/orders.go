package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bloom/internal/domain/carts"
	"bloom/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	q   dbx.Querier
	gen *NumberGenerator
}

func NewRepository(q dbx.Querier, gen *NumberGenerator) *Repository {
	if gen == nil {
		panic("orders: NumberGenerator is nil")
	}
	return &Repository{
		q:   q,
		gen: gen,
	}
}

const orderColumns = `
id, COALESCE(order_number, ''), user_id, session_id, items,
delivery_name, delivery_address, delivery_phone, delivery_email, payment_method, comments,
status, status_history, total_amount_cents, version, created_at, updated_at`

func scanOrder(row pgx.Row, extra ...any) (*Order, error) {
	var (
		o              Order
		items, history []byte
	)
	dest := []any{
		&o.ID, &o.OrderNumber, &o.Owner.UserID, &o.Owner.SessionID, &items,
		&o.Delivery.Name, &o.Delivery.Address, &o.Delivery.Phone, &o.Delivery.Email,
		&o.Delivery.PaymentMethod, &o.Delivery.Comments,
		&o.Status, &history, &o.TotalAmountCents, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	if err := json.Unmarshal(history, &o.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history: %w", err)
	}
	return &o, nil
}

func encode(o *Order) ([]byte, []byte, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, nil, fmt.Errorf("encode order items: %w", err)
	}
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return nil, nil, fmt.Errorf("encode status history: %w", err)
	}
	return items, history, nil
}

// Create must run inside the checkout transaction: the order number is
// derived from the id and written by a second statement.
func (r *Repository) Create(ctx context.Context, o *Order) error {
	items, history, err := encode(o)
	if err != nil {
		return err
	}

	err = r.q.QueryRow(ctx, `
INSERT INTO orders (
  user_id, session_id, items,
  delivery_name, delivery_address, delivery_phone, delivery_email, payment_method, comments,
  status, status_history, total_amount_cents, version, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1,$13,$13)
RETURNING id, version`,
		o.Owner.UserID, o.Owner.SessionID, items,
		o.Delivery.Name, o.Delivery.Address, o.Delivery.Phone, o.Delivery.Email,
		o.Delivery.PaymentMethod, o.Delivery.Comments,
		o.Status, history, o.TotalAmountCents, o.CreatedAt,
	).Scan(&o.ID, &o.Version)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	num, err := r.gen.Generate(o.ID)
	if err != nil {
		return err
	}
	if _, err := r.q.Exec(ctx, `UPDATE orders SET order_number = $2 WHERE id = $1`, o.ID, num); err != nil {
		return fmt.Errorf("set order number: %w", err)
	}
	o.OrderNumber = num
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

func (r *Repository) Save(ctx context.Context, o *Order) error {
	items, history, err := encode(o)
	if err != nil {
		return err
	}

	err = r.q.QueryRow(ctx, `
UPDATE orders
SET items              = $3,
    status             = $4,
    status_history     = $5,
    total_amount_cents = $6,
    version            = version + 1,
    updated_at         = now()
WHERE id = $1
  AND version = $2
RETURNING version, updated_at`,
		o.ID, o.Version, items, o.Status, history, o.TotalAmountCents,
	).Scan(&o.Version, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return fmt.Errorf("save order %d: %w", o.ID, err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repository) ListByOwner(ctx context.Context, owner carts.Owner, limit, offset int) ([]*Order, int, error) {
	if !owner.Valid() {
		return nil, 0, carts.ErrInvalidOwner
	}
	if owner.UserID != nil {
		return r.list(ctx, `WHERE user_id = $1`, []any{*owner.UserID}, limit, offset)
	}
	return r.list(ctx, `WHERE session_id = $1`, []any{*owner.SessionID}, limit, offset)
}

func (r *Repository) ListAll(ctx context.Context, status Status, limit, offset int) ([]*Order, int, error) {
	if status == "" {
		return r.list(ctx, ``, nil, limit, offset)
	}
	return r.list(ctx, `WHERE status = $1`, []any{status}, limit, offset)
}

func (r *Repository) list(ctx context.Context, where string, args []any, limit, offset int) ([]*Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	n := len(args)
	q := fmt.Sprintf(`
SELECT %s, COUNT(*) OVER() AS total_count
FROM orders
%s
ORDER BY created_at DESC, id DESC
LIMIT $%d OFFSET $%d`, orderColumns, where, n+1, n+2)

	rows, err := r.q.Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Order
		total int
	)
	for rows.Next() {
		o, err := scanOrder(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
