package memstore

import (
	"context"
	"sort"
	"time"

	"bloom/internal/domain/carts"
	"bloom/internal/domain/catalog"
	"bloom/internal/domain/orders"
	"bloom/internal/domain/stock"
)

type catalogRepo struct{ v *view }

func (r *catalogRepo) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	var out *catalog.Product
	err := r.v.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return catalog.ErrProductNotFound
		}
		out = cloneProduct(p)
		return nil
	})
	return out, err
}

func (r *catalogRepo) GetWrapper(_ context.Context, id int64) (*catalog.Wrapper, error) {
	var out catalog.Wrapper
	err := r.v.do(func(st *state) error {
		w, ok := st.wrappers[id]
		if !ok {
			return catalog.ErrWrapperNotFound
		}
		out = *w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *catalogRepo) GetAddon(_ context.Context, id int64) (*catalog.Addon, error) {
	var out catalog.Addon
	err := r.v.do(func(st *state) error {
		a, ok := st.addons[id]
		if !ok {
			return catalog.ErrAddonNotFound
		}
		out = *a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *catalogRepo) ListProducts(_ context.Context, activeOnly bool, limit, offset int) ([]*catalog.Product, int, error) {
	var (
		out   []*catalog.Product
		total int
	)
	err := r.v.do(func(st *state) error {
		var all []*catalog.Product
		for _, id := range sortedIDs(st.products) {
			p := st.products[id]
			if activeOnly && !p.IsActive {
				continue
			}
			all = append(all, cloneProduct(p))
		}
		total = len(all)
		out = page(all, limit, offset)
		return nil
	})
	return out, total, err
}

func (r *catalogRepo) DeactivateSoldOut(_ context.Context) (int64, error) {
	var n int64
	err := r.v.do(func(st *state) error {
		for _, p := range st.products {
			if p.IsActive && p.Quantity == 0 {
				p.IsActive = false
				n++
			}
		}
		for _, w := range st.wrappers {
			if w.IsActive && w.Quantity == 0 {
				w.IsActive = false
				n++
			}
		}
		for _, a := range st.addons {
			if a.IsActive && a.Quantity == 0 {
				a.IsActive = false
				n++
			}
		}
		return nil
	})
	return n, err
}

type ledger struct{ v *view }

// counters returns pointers to the quantity and, where tracked, sold count
// behind ref.
func counters(st *state, ref stock.Ref) (*int, *int, error) {
	switch ref.Kind {
	case stock.KindProduct:
		if p, ok := st.products[ref.ID]; ok {
			return &p.Quantity, &p.SoldCount, nil
		}
	case stock.KindAddon:
		if a, ok := st.addons[ref.ID]; ok {
			return &a.Quantity, &a.SoldCount, nil
		}
	case stock.KindWrapper:
		if w, ok := st.wrappers[ref.ID]; ok {
			return &w.Quantity, nil, nil
		}
	}
	return nil, nil, stock.ErrUnknownItem
}

func (l *ledger) CheckAvailable(_ context.Context, ref stock.Ref, qty int) (bool, error) {
	var ok bool
	err := l.v.do(func(st *state) error {
		q, _, err := counters(st, ref)
		if err != nil {
			return err
		}
		ok = *q >= qty
		return nil
	})
	return ok, err
}

func (l *ledger) Debit(_ context.Context, ref stock.Ref, qty int) (int, error) {
	if qty <= 0 {
		return 0, stock.ErrInvalidQuantity
	}
	var left int
	err := l.v.do(func(st *state) error {
		q, sold, err := counters(st, ref)
		if err != nil {
			return err
		}
		if *q < qty {
			return &stock.ShortageError{Ref: ref, Requested: qty}
		}
		*q -= qty
		if sold != nil {
			*sold += qty
		}
		left = *q
		return nil
	})
	return left, err
}

func (l *ledger) Credit(_ context.Context, ref stock.Ref, qty int) (int, error) {
	if qty <= 0 {
		return 0, stock.ErrInvalidQuantity
	}
	var left int
	err := l.v.do(func(st *state) error {
		q, sold, err := counters(st, ref)
		if err != nil {
			return err
		}
		*q += qty
		if sold != nil {
			*sold = max(*sold-qty, 0)
		}
		left = *q
		return nil
	})
	return left, err
}

type cartRepo struct{ v *view }

func (r *cartRepo) GetByOwner(_ context.Context, owner carts.Owner) (*carts.Cart, error) {
	if !owner.Valid() {
		return nil, carts.ErrInvalidOwner
	}
	var out *carts.Cart
	err := r.v.do(func(st *state) error {
		for _, c := range st.carts {
			if c.Owner.Key() == owner.Key() {
				out = c.Clone()
				return nil
			}
		}
		return carts.ErrCartNotFound
	})
	return out, err
}

func (r *cartRepo) GetByID(_ context.Context, id int64) (*carts.Cart, error) {
	var out *carts.Cart
	err := r.v.do(func(st *state) error {
		c, ok := st.carts[id]
		if !ok {
			return carts.ErrCartNotFound
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r *cartRepo) Create(_ context.Context, c *carts.Cart) error {
	if !c.Owner.Valid() {
		return carts.ErrInvalidOwner
	}
	return r.v.do(func(st *state) error {
		for _, existing := range st.carts {
			if existing.Owner.Key() == c.Owner.Key() {
				return carts.ErrCartExists
			}
		}
		now := r.v.m.now()
		c.ID = st.id()
		c.Version = 1
		c.CreatedAt = now
		c.UpdatedAt = now
		st.carts[c.ID] = c.Clone()
		return nil
	})
}

func (r *cartRepo) Save(_ context.Context, c *carts.Cart) error {
	return r.v.do(func(st *state) error {
		stored, ok := st.carts[c.ID]
		if !ok || stored.Version != c.Version {
			return carts.ErrVersionConflict
		}
		c.Version++
		c.UpdatedAt = r.v.m.now()
		c.RecomputeTotals()
		st.carts[c.ID] = c.Clone()
		return nil
	})
}

func (r *cartRepo) PurgeExpiredGuests(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.v.do(func(st *state) error {
		for id, c := range st.carts {
			if c.Owner.IsGuest() && c.Expired(now) {
				delete(st.carts, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *cartRepo) List(_ context.Context, limit, offset int) ([]*carts.Cart, int, error) {
	var (
		out   []*carts.Cart
		total int
	)
	err := r.v.do(func(st *state) error {
		all := make([]*carts.Cart, 0, len(st.carts))
		for _, c := range st.carts {
			all = append(all, c.Clone())
		}
		sort.Slice(all, func(i, j int) bool {
			if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
				return all[i].UpdatedAt.After(all[j].UpdatedAt)
			}
			return all[i].ID > all[j].ID
		})
		total = len(all)
		out = page(all, limit, offset)
		return nil
	})
	return out, total, err
}

type orderRepo struct{ v *view }

func (r *orderRepo) Create(_ context.Context, o *orders.Order) error {
	return r.v.do(func(st *state) error {
		id := st.id()
		num, err := r.v.m.gen.Generate(id)
		if err != nil {
			return err
		}
		o.ID = id
		o.OrderNumber = num
		o.Version = 1
		st.orders[id] = o.Clone()
		return nil
	})
}

func (r *orderRepo) Get(_ context.Context, id int64) (*orders.Order, error) {
	var out *orders.Order
	err := r.v.do(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return orders.ErrOrderNotFound
		}
		out = o.Clone()
		return nil
	})
	return out, err
}

func (r *orderRepo) Save(_ context.Context, o *orders.Order) error {
	return r.v.do(func(st *state) error {
		stored, ok := st.orders[o.ID]
		if !ok || stored.Version != o.Version {
			return orders.ErrVersionConflict
		}
		o.Version++
		o.UpdatedAt = r.v.m.now()
		st.orders[o.ID] = o.Clone()
		return nil
	})
}

func (r *orderRepo) Delete(_ context.Context, id int64) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.orders[id]; !ok {
			return orders.ErrOrderNotFound
		}
		delete(st.orders, id)
		return nil
	})
}

func (r *orderRepo) ListByOwner(_ context.Context, owner carts.Owner, limit, offset int) ([]*orders.Order, int, error) {
	if !owner.Valid() {
		return nil, 0, carts.ErrInvalidOwner
	}
	return r.list(func(o *orders.Order) bool { return o.Owner.Key() == owner.Key() }, limit, offset)
}

func (r *orderRepo) ListAll(_ context.Context, status orders.Status, limit, offset int) ([]*orders.Order, int, error) {
	return r.list(func(o *orders.Order) bool { return status == "" || o.Status == status }, limit, offset)
}

func (r *orderRepo) list(keep func(*orders.Order) bool, limit, offset int) ([]*orders.Order, int, error) {
	var (
		out   []*orders.Order
		total int
	)
	err := r.v.do(func(st *state) error {
		var all []*orders.Order
		ids := sortedIDs(st.orders)
		for i := len(ids) - 1; i >= 0; i-- {
			if o := st.orders[ids[i]]; keep(o) {
				all = append(all, o.Clone())
			}
		}
		total = len(all)
		out = page(all, limit, offset)
		return nil
	})
	return out, total, err
}
