// Package carts holds the cart aggregate and its Postgres repository.
package carts

import (
	"encoding/json"
	"strconv"
	"time"

	"bloom/internal/domain/pricing"

	"github.com/google/uuid"
)

type Cart struct {
	ID          int64        `json:"id"`
	Owner       Owner        `json:"owner"`
	FlowerItems []FlowerItem `json:"flower_items"`
	AddonItems  []AddonItem  `json:"addon_items"`
	Version     int          `json:"version"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// written only by RecomputeTotals
	total     int64
	itemCount int
}

// New returns an empty cart for owner. Guest carts expire ttl after now.
func New(owner Owner, now time.Time, ttl time.Duration) *Cart {
	c := &Cart{
		Owner:       owner,
		FlowerItems: []FlowerItem{},
		AddonItems:  []AddonItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.Touch(now, ttl)
	return c
}

func (c *Cart) Total() int64        { return c.total }
func (c *Cart) TotalItemCount() int { return c.itemCount }
func (c *Cart) IsEmpty() bool       { return len(c.FlowerItems) == 0 && len(c.AddonItems) == 0 }

// Expired reports whether a guest cart outlived its TTL.
func (c *Cart) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Touch records activity and pushes a guest cart's expiry forward.
func (c *Cart) Touch(now time.Time, ttl time.Duration) {
	c.UpdatedAt = now
	if c.Owner.IsGuest() {
		exp := now.Add(ttl)
		c.ExpiresAt = &exp
	}
}

// RecomputeTotals re-derives total and item count from the lines. It is the
// only writer of either.
func (c *Cart) RecomputeTotals() {
	var total int64
	var count int
	for _, f := range c.FlowerItems {
		total += f.LineTotalCents
		count += f.Quantity
	}
	for _, a := range c.AddonItems {
		total += a.LineTotalCents
		count += a.Quantity
	}
	c.total = total
	c.itemCount = count
}

func (c *Cart) AddFlower(calc pricing.LineCalculator, it FlowerItem) FlowerItem {
	it.ID = uuid.NewString()
	if it.Wrapper != nil {
		w := *it.Wrapper
		w.Type = pricing.WrapperTypeFor(it.Kind)
		it.Wrapper = &w
	}
	it.LineTotalCents = calc.FlowerLineTotal(it.UnitPriceCents, it.Quantity, it.Wrapper, it.Kind)
	c.FlowerItems = append(c.FlowerItems, it)
	c.RecomputeTotals()
	return it
}

func (c *Cart) AddAddon(calc pricing.LineCalculator, it AddonItem) AddonItem {
	it.ID = uuid.NewString()
	it.LineTotalCents = calc.AddonLineTotal(it.UnitPriceCents, it.Quantity)
	c.AddonItems = append(c.AddonItems, it)
	c.RecomputeTotals()
	return it
}

// SetQuantity reprices a line at its pinned unit price. A quantity of zero
// or less removes the line.
func (c *Cart) SetQuantity(calc pricing.LineCalculator, itemID string, typ ItemType, qty int) error {
	if qty <= 0 {
		return c.Remove(itemID, typ)
	}

	switch typ {
	case ItemFlower:
		f := c.flower(itemID)
		if f == nil {
			return ErrItemNotFound
		}
		f.Quantity = qty
		f.LineTotalCents = calc.FlowerLineTotal(f.UnitPriceCents, f.Quantity, f.Wrapper, f.Kind)
	case ItemAddon:
		a := c.addon(itemID)
		if a == nil {
			return ErrItemNotFound
		}
		a.Quantity = qty
		a.LineTotalCents = calc.AddonLineTotal(a.UnitPriceCents, a.Quantity)
	default:
		return ErrInvalidItemType
	}

	c.RecomputeTotals()
	return nil
}

// SetWrapper replaces the wrapper on a flower line; nil clears it.
func (c *Cart) SetWrapper(calc pricing.LineCalculator, itemID string, w *pricing.WrapperSnapshot) error {
	f := c.flower(itemID)
	if f == nil {
		return ErrItemNotFound
	}

	if w != nil {
		snap := *w
		snap.Type = pricing.WrapperTypeFor(f.Kind)
		w = &snap
	}
	f.Wrapper = w
	f.LineTotalCents = calc.FlowerLineTotal(f.UnitPriceCents, f.Quantity, f.Wrapper, f.Kind)
	c.RecomputeTotals()
	return nil
}

// SetVariant re-pins the color, stem length, unit price and image of a
// flower line.
func (c *Cart) SetVariant(calc pricing.LineCalculator, itemID string, v Variant) error {
	f := c.flower(itemID)
	if f == nil {
		return ErrItemNotFound
	}
	f.SelectedColor = v.Color
	f.SelectedStemLength = v.StemLength
	f.UnitPriceCents = v.UnitPriceCents
	f.Image = v.Image
	f.LineTotalCents = calc.FlowerLineTotal(f.UnitPriceCents, f.Quantity, f.Wrapper, f.Kind)
	c.RecomputeTotals()
	return nil
}

func (c *Cart) Remove(itemID string, typ ItemType) error {
	switch typ {
	case ItemFlower:
		for i := range c.FlowerItems {
			if c.FlowerItems[i].ID == itemID {
				c.FlowerItems = append(c.FlowerItems[:i], c.FlowerItems[i+1:]...)
				c.RecomputeTotals()
				return nil
			}
		}
	case ItemAddon:
		for i := range c.AddonItems {
			if c.AddonItems[i].ID == itemID {
				c.AddonItems = append(c.AddonItems[:i], c.AddonItems[i+1:]...)
				c.RecomputeTotals()
				return nil
			}
		}
	default:
		return ErrInvalidItemType
	}
	return ErrItemNotFound
}

func (c *Cart) Clear() {
	c.FlowerItems = []FlowerItem{}
	c.AddonItems = []AddonItem{}
	c.RecomputeTotals()
}

// Flower returns a copy of the flower line with the given id.
func (c *Cart) Flower(itemID string) (FlowerItem, bool) {
	if f := c.flower(itemID); f != nil {
		return *f, true
	}
	return FlowerItem{}, false
}

func (c *Cart) Addon(itemID string) (AddonItem, bool) {
	if a := c.addon(itemID); a != nil {
		return *a, true
	}
	return AddonItem{}, false
}

// Clone deep-copies the cart so a failed mutation never leaks into the
// caller's copy.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.FlowerItems = make([]FlowerItem, len(c.FlowerItems))
	for i, f := range c.FlowerItems {
		if f.Wrapper != nil {
			w := *f.Wrapper
			f.Wrapper = &w
		}
		cp.FlowerItems[i] = f
	}
	cp.AddonItems = append([]AddonItem{}, c.AddonItems...)
	if c.ExpiresAt != nil {
		exp := *c.ExpiresAt
		cp.ExpiresAt = &exp
	}
	return &cp
}

func (c *Cart) flower(id string) *FlowerItem {
	for i := range c.FlowerItems {
		if c.FlowerItems[i].ID == id {
			return &c.FlowerItems[i]
		}
	}
	return nil
}

func (c *Cart) addon(id string) *AddonItem {
	for i := range c.AddonItems {
		if c.AddonItems[i].ID == id {
			return &c.AddonItems[i]
		}
	}
	return nil
}

type cartJSON struct {
	*cartAlias
	TotalCents     int64 `json:"total_cents"`
	TotalItemCount int   `json:"total_item_count"`
}

type cartAlias Cart

func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(cartJSON{
		cartAlias:      (*cartAlias)(c),
		TotalCents:     c.total,
		TotalItemCount: c.itemCount,
	})
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
