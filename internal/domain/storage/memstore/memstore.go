// Package memstore is an in-memory storage.Provider. Transactions work on a
// private copy of the whole state that replaces it on commit, so a failed
// unit of work leaves nothing behind. It backs the tests and the
// STORE_DRIVER=memory mode.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"bloom/internal/domain/carts"
	"bloom/internal/domain/catalog"
	"bloom/internal/domain/orders"
	"bloom/internal/domain/storage"
)

type state struct {
	products map[int64]*catalog.Product
	wrappers map[int64]*catalog.Wrapper
	addons   map[int64]*catalog.Addon
	carts    map[int64]*carts.Cart
	orders   map[int64]*orders.Order

	nextID int64
}

func newState() *state {
	return &state{
		products: map[int64]*catalog.Product{},
		wrappers: map[int64]*catalog.Wrapper{},
		addons:   map[int64]*catalog.Addon{},
		carts:    map[int64]*carts.Cart{},
		orders:   map[int64]*orders.Order{},
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *state) clone() *state {
	cp := newState()
	cp.nextID = s.nextID
	for id, p := range s.products {
		cp.products[id] = cloneProduct(p)
	}
	for id, w := range s.wrappers {
		w2 := *w
		cp.wrappers[id] = &w2
	}
	for id, a := range s.addons {
		a2 := *a
		cp.addons[id] = &a2
	}
	for id, c := range s.carts {
		cp.carts[id] = c.Clone()
	}
	for id, o := range s.orders {
		cp.orders[id] = o.Clone()
	}
	return cp
}

func cloneProduct(p *catalog.Product) *catalog.Product {
	cp := *p
	cp.Colors = make([]catalog.ColorVariant, len(p.Colors))
	for i, c := range p.Colors {
		c.Images = append([]string(nil), c.Images...)
		cp.Colors[i] = c
	}
	cp.StemLengths = append([]catalog.StemLength(nil), p.StemLengths...)
	cp.Images = append([]string(nil), p.Images...)
	return &cp
}

type Store struct {
	mu  sync.Mutex
	st  *state
	gen *orders.NumberGenerator
	now func() time.Time
}

var _ storage.Provider = (*Store)(nil)

func New(gen *orders.NumberGenerator) *Store {
	if gen == nil {
		panic("memstore: NumberGenerator is nil")
	}
	return &Store{st: newState(), gen: gen, now: time.Now}
}

// view routes repository calls either to the live state, under the store
// lock, or to a transaction's private copy.
type view struct {
	m  *Store
	tx *state
}

func (v *view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	return fn(v.m.st)
}

func (m *Store) sales(v *view) *storage.Sales {
	return &storage.Sales{
		Catalog: &catalogRepo{v: v},
		Carts:   &cartRepo{v: v},
		Orders:  &orderRepo{v: v},
		Stock:   &ledger{v: v},
	}
}

func (m *Store) Repos() *storage.Sales {
	return m.sales(&view{m: m})
}

// WithSalesTx serializes units of work. fn must only use the repositories
// it is handed; calling Repos() from inside fn deadlocks.
func (m *Store) WithSalesTx(ctx context.Context, fn func(s *storage.Sales) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := m.st.clone()
	if err := fn(m.sales(&view{m: m, tx: tx})); err != nil {
		return err
	}
	m.st = tx
	return nil
}

// PutProduct seeds or replaces a product and returns its id.
func (m *Store) PutProduct(p catalog.Product) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.st.id()
	}
	m.stamp(&p.CreatedAt, &p.UpdatedAt)
	m.st.products[p.ID] = cloneProduct(&p)
	return p.ID
}

func (m *Store) PutWrapper(w catalog.Wrapper) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == 0 {
		w.ID = m.st.id()
	}
	m.stamp(&w.CreatedAt, &w.UpdatedAt)
	m.st.wrappers[w.ID] = &w
	return w.ID
}

func (m *Store) PutAddon(a catalog.Addon) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.st.id()
	}
	m.stamp(&a.CreatedAt, &a.UpdatedAt)
	m.st.addons[a.ID] = &a
	return a.ID
}

func (m *Store) stamp(created, updated *time.Time) {
	now := m.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
