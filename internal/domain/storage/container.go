package storage

import (
	"context"
	"fmt"

	"bloom/internal/domain/carts"
	"bloom/internal/domain/catalog"
	"bloom/internal/domain/orders"
	"bloom/internal/domain/stock"
	"bloom/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sales is the set of repositories a sales unit of work touches.
type Sales struct {
	Catalog catalog.Store
	Carts   carts.Store
	Orders  orders.Store
	Stock   stock.Ledger
}

// Provider hands out repositories, either bound to the pool or to a single
// transaction.
type Provider interface {
	Repos() *Sales
	// WithSalesTx runs fn atomically: every write made through s commits or
	// none does.
	WithSalesTx(ctx context.Context, fn func(s *Sales) error) error
}

type Container struct {
	pool  *pgxpool.Pool // IMPORTANT: set the pool so WithSalesTx works
	gen   *orders.NumberGenerator
	Sales Sales
}

func NewContainer(db *pgxpool.Pool, gen *orders.NumberGenerator) *Container {
	return &Container{
		pool:  db,
		gen:   gen,
		Sales: newSales(db, gen),
	}
}

func newSales(q dbx.Querier, gen *orders.NumberGenerator) Sales {
	return Sales{
		Catalog: catalog.NewRepository(q),
		Carts:   carts.NewRepository(q),
		Orders:  orders.NewRepository(q, gen),
		Stock:   stock.NewRepository(q),
	}
}

func (c *Container) Repos() *Sales { return &c.Sales }

// WithSalesTx runs a sales unit-of-work atomically.
func (c *Container) WithSalesTx(ctx context.Context, fn func(s *Sales) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil (did you forget to set pool in NewContainer?)")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	s := newSales(tx, c.gen)
	if err := fn(&s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
