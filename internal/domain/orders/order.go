package orders

import (
	"time"

	"bloom/internal/domain/carts"
	"bloom/internal/domain/pricing"
	"bloom/internal/domain/stock"
)

// New snapshots the cart's lines into a pending order.
func New(c *carts.Cart, d Delivery, now time.Time) *Order {
	o := &Order{
		Owner:         c.Owner,
		Items:         ItemsFromCart(c),
		Delivery:      d,
		Status:        StatusPending,
		StatusHistory: []StatusChange{{Status: StatusPending, Timestamp: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	o.RecomputeTotal()
	return o
}

func ItemsFromCart(c *carts.Cart) []Item {
	out := make([]Item, 0, len(c.FlowerItems)+len(c.AddonItems))
	for _, f := range c.FlowerItems {
		pid := f.ProductID
		it := Item{
			Type:               carts.ItemFlower,
			ProductID:          &pid,
			Name:               f.Name,
			Kind:               f.Kind,
			Quantity:           f.Quantity,
			SelectedColor:      f.SelectedColor,
			SelectedStemLength: f.SelectedStemLength,
			UnitPriceCents:     f.UnitPriceCents,
			Image:              f.Image,
			LineTotalCents:     f.LineTotalCents,
		}
		if f.Wrapper != nil {
			w := *f.Wrapper
			it.Wrapper = &w
		}
		out = append(out, it)
	}
	for _, a := range c.AddonItems {
		aid := a.AddonID
		out = append(out, Item{
			Type:           carts.ItemAddon,
			AddonID:        &aid,
			Name:           a.Name,
			Quantity:       a.Quantity,
			UnitPriceCents: a.UnitPriceCents,
			Image:          a.Image,
			LineTotalCents: a.LineTotalCents,
		})
	}
	return out
}

// Movements lists the stock an item holds. A per_order wrapper holds one
// unit whatever the quantity.
func (it Item) Movements() []stock.Movement {
	if it.Quantity <= 0 {
		return nil
	}
	var ms []stock.Movement
	switch it.Type {
	case carts.ItemFlower:
		if it.ProductID != nil {
			ms = append(ms, stock.Movement{Ref: stock.Product(*it.ProductID), Quantity: it.Quantity})
		}
		if it.Wrapper != nil {
			ms = append(ms, stock.Movement{Ref: stock.Wrapper(it.Wrapper.WrapperID), Quantity: it.Wrapper.Units(it.Quantity)})
		}
	case carts.ItemAddon:
		if it.AddonID != nil {
			ms = append(ms, stock.Movement{Ref: stock.Addon(*it.AddonID), Quantity: it.Quantity})
		}
	}
	return ms
}

// Movements is the merged stock the whole order holds.
func (o *Order) Movements() []stock.Movement {
	var ms []stock.Movement
	for _, it := range o.Items {
		ms = append(ms, it.Movements()...)
	}
	return stock.Merge(ms)
}

func (o *Order) RecomputeTotal() {
	var total int64
	for _, it := range o.Items {
		total += it.LineTotalCents
	}
	o.TotalAmountCents = total
}

func (o *Order) Item(index int) (Item, bool) {
	if index < 0 || index >= len(o.Items) {
		return Item{}, false
	}
	return o.Items[index], true
}

// SetItemQuantity reprices the line at index with its pinned unit price. A
// quantity of zero or less removes the line.
func (o *Order) SetItemQuantity(calc pricing.LineCalculator, index, qty int) error {
	if index < 0 || index >= len(o.Items) {
		return ErrItemNotFound
	}
	if qty <= 0 {
		return o.RemoveItem(index)
	}

	it := &o.Items[index]
	it.Quantity = qty
	if it.Type == carts.ItemAddon {
		it.LineTotalCents = calc.AddonLineTotal(it.UnitPriceCents, qty)
	} else {
		it.LineTotalCents = calc.FlowerLineTotal(it.UnitPriceCents, qty, it.Wrapper, it.Kind)
	}
	o.RecomputeTotal()
	return nil
}

func (o *Order) RemoveItem(index int) error {
	if index < 0 || index >= len(o.Items) {
		return ErrItemNotFound
	}
	o.Items = append(o.Items[:index], o.Items[index+1:]...)
	o.RecomputeTotal()
	return nil
}

// SetStatus moves the order to s and appends the change to its history.
// Moving to the current status changes nothing and reports false.
func (o *Order) SetStatus(s Status, now time.Time) bool {
	if o.Status == s {
		return false
	}
	o.Status = s
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: s, Timestamp: now})
	o.UpdatedAt = now
	return true
}

func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = make([]Item, len(o.Items))
	for i, it := range o.Items {
		if it.Wrapper != nil {
			w := *it.Wrapper
			it.Wrapper = &w
		}
		cp.Items[i] = it
	}
	cp.StatusHistory = append([]StatusChange{}, o.StatusHistory...)
	return &cp
}
