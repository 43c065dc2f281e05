package stock

import (
	"context"
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

func table(k Kind) (string, bool, error) {
	switch k {
	case KindProduct:
		return "products", true, nil
	case KindAddon:
		return "addons", true, nil
	case KindWrapper:
		return "wrappers", false, nil
	default:
		return "", false, fmt.Errorf("unknown stock kind %q", k)
	}
}

func (r *Repository) CheckAvailable(ctx context.Context, ref Ref, qty int) (bool, error) {
	tbl, _, err := table(ref.Kind)
	if err != nil {
		return false, err
	}

	var onHand int
	err = r.db.QueryRow(ctx, fmt.Sprintf(`SELECT quantity FROM %s WHERE id = $1`, tbl), ref.ID).Scan(&onHand)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUnknownItem
		}
		return false, fmt.Errorf("check stock %s: %w", ref, err)
	}
	return onHand >= qty, nil
}

func (r *Repository) Debit(ctx context.Context, ref Ref, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	tbl, sold, err := table(ref.Kind)
	if err != nil {
		return 0, err
	}

	soldSet := ""
	if sold {
		soldSet = "sold_count = sold_count + $2,"
	}

	var left int
	err = r.db.QueryRow(ctx, fmt.Sprintf(`
UPDATE %s
SET quantity = quantity - $2,
    %s
    updated_at = now()
WHERE id = $1
  AND quantity >= $2
RETURNING quantity`, tbl, soldSet), ref.ID, qty).Scan(&left)
	if err == nil {
		return left, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("debit %s: %w", ref, err)
	}

	// No row updated: either the item is gone or it cannot cover qty.
	if _, cerr := r.CheckAvailable(ctx, ref, qty); cerr != nil {
		return 0, cerr
	}
	return 0, &ShortageError{Ref: ref, Requested: qty}
}

func (r *Repository) Credit(ctx context.Context, ref Ref, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	tbl, sold, err := table(ref.Kind)
	if err != nil {
		return 0, err
	}

	soldSet := ""
	if sold {
		soldSet = "sold_count = GREATEST(sold_count - $2, 0),"
	}

	var left int
	err = r.db.QueryRow(ctx, fmt.Sprintf(`
UPDATE %s
SET quantity = quantity + $2,
    %s
    updated_at = now()
WHERE id = $1
RETURNING quantity`, tbl, soldSet), ref.ID, qty).Scan(&left)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownItem
		}
		return 0, fmt.Errorf("credit %s: %w", ref, err)
	}
	return left, nil
}
