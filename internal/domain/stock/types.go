// Package stock is the ledger over catalog quantities. Every write is a
// single atomic delta; nothing reads a quantity and writes it back.
package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnknownItem       = errors.New("stock item not found")
	ErrInvalidQuantity   = errors.New("stock quantity must be positive")
)

type Kind string

const (
	KindProduct Kind = "product"
	KindWrapper Kind = "wrapper"
	KindAddon   Kind = "addon"
)

type Ref struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

func Product(id int64) Ref { return Ref{Kind: KindProduct, ID: id} }
func Wrapper(id int64) Ref { return Ref{Kind: KindWrapper, ID: id} }
func Addon(id int64) Ref   { return Ref{Kind: KindAddon, ID: id} }

type Movement struct {
	Ref      Ref
	Quantity int
}

// Merge sums movements per ref, drops non-positive totals and orders the
// result by ref so concurrent debits lock rows in the same order.
func Merge(ms []Movement) []Movement {
	sums := make(map[Ref]int, len(ms))
	for _, m := range ms {
		sums[m.Ref] += m.Quantity
	}

	out := make([]Movement, 0, len(sums))
	for ref, q := range sums {
		if q > 0 {
			out = append(out, Movement{Ref: ref, Quantity: q})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ref.Kind != out[j].Ref.Kind {
			return out[i].Ref.Kind < out[j].Ref.Kind
		}
		return out[i].Ref.ID < out[j].Ref.ID
	})
	return out
}

// ShortageError reports which ref could not cover a debit.
type ShortageError struct {
	Ref       Ref
	Requested int
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (requested %d)", e.Ref, e.Requested)
}

func (e *ShortageError) Unwrap() error { return ErrInsufficientStock }

type Ledger interface {
	CheckAvailable(ctx context.Context, ref Ref, qty int) (bool, error)
	// Debit subtracts qty only if at least qty is on hand and returns the
	// remaining quantity. A shortfall returns a *ShortageError.
	Debit(ctx context.Context, ref Ref, qty int) (int, error)
	Credit(ctx context.Context, ref Ref, qty int) (int, error)
}

// DebitAll applies every movement or stops at the first failure. Callers run
// it inside a transaction so a partial debit is rolled back.
func DebitAll(ctx context.Context, l Ledger, ms []Movement) (map[Ref]int, error) {
	remaining := make(map[Ref]int, len(ms))
	for _, m := range Merge(ms) {
		left, err := l.Debit(ctx, m.Ref, m.Quantity)
		if err != nil {
			return nil, err
		}
		remaining[m.Ref] = left
	}
	return remaining, nil
}

func CreditAll(ctx context.Context, l Ledger, ms []Movement) error {
	for _, m := range Merge(ms) {
		if _, err := l.Credit(ctx, m.Ref, m.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Diff splits the change from before to after into the movements to debit
// and the movements to credit.
func Diff(before, after []Movement) (debit, credit []Movement) {
	delta := make(map[Ref]int)
	for _, m := range before {
		delta[m.Ref] -= m.Quantity
	}
	for _, m := range after {
		delta[m.Ref] += m.Quantity
	}
	for ref, d := range delta {
		switch {
		case d > 0:
			debit = append(debit, Movement{Ref: ref, Quantity: d})
		case d < 0:
			credit = append(credit, Movement{Ref: ref, Quantity: -d})
		}
	}
	return Merge(debit), Merge(credit)
}
