package carts

import (
	"encoding/json"
	"testing"
	"time"

	"bloom/internal/domain/catalog"
	"bloom/internal/domain/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func newCart() *Cart {
	return New(SessionOwner("s-1"), time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), 24*time.Hour)
}

func wrapper200() *pricing.WrapperSnapshot {
	return &pricing.WrapperSnapshot{WrapperID: 9, Name: "Kraft", PriceCents: 200}
}

func TestOwner(t *testing.T) {
	assert.True(t, UserOwner(4).Valid())
	assert.True(t, SessionOwner("abc").Valid())
	assert.False(t, Owner{}.Valid())
	assert.False(t, SessionOwner("").Valid())

	uid := int64(1)
	sid := "x"
	assert.False(t, Owner{UserID: &uid, SessionID: &sid}.Valid())

	assert.Equal(t, "user:4", UserOwner(4).Key())
	assert.Equal(t, "session:abc", SessionOwner("abc").Key())
	assert.True(t, SessionOwner("abc").IsGuest())
	assert.False(t, UserOwner(4).IsGuest())
}

func TestNewCartExpiry(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	guest := New(SessionOwner("s"), now, 24*time.Hour)
	require.NotNil(t, guest.ExpiresAt)
	assert.Equal(t, now.Add(24*time.Hour), *guest.ExpiresAt)
	assert.False(t, guest.Expired(now))
	assert.True(t, guest.Expired(now.Add(24*time.Hour)))

	guest.Touch(now.Add(time.Hour), 24*time.Hour)
	assert.Equal(t, now.Add(25*time.Hour), *guest.ExpiresAt)

	user := New(UserOwner(1), now, 24*time.Hour)
	assert.Nil(t, user.ExpiresAt)
	assert.False(t, user.Expired(now.Add(1000*time.Hour)))
}

func TestCartTotalsScenario(t *testing.T) {
	calc := pricing.NewEngine(nil)
	c := newCart()

	stem := c.AddFlower(calc, FlowerItem{ProductID: 1, Kind: catalog.KindBouquet, Quantity: 2, UnitPriceCents: 1500, SelectedStemLength: strp("60cm")})
	assert.Equal(t, int64(3000), stem.LineTotalCents)
	assert.NotEmpty(t, stem.ID)

	bouquet := c.AddFlower(calc, FlowerItem{ProductID: 2, Kind: catalog.KindBouquet, Quantity: 3, UnitPriceCents: 1000, Wrapper: wrapper200()})
	assert.Equal(t, int64(3600), bouquet.LineTotalCents)
	assert.Equal(t, pricing.WrapperPerItem, bouquet.Wrapper.Type)

	addon := c.AddAddon(calc, AddonItem{AddonID: 5, Quantity: 2, UnitPriceCents: 500})
	assert.Equal(t, int64(1000), addon.LineTotalCents)

	assert.Equal(t, int64(7600), c.Total())
	assert.Equal(t, 7, c.TotalItemCount())

	c.RecomputeTotals()
	c.RecomputeTotals()
	assert.Equal(t, int64(7600), c.Total())
}

func TestSingleWrapperChargedOnce(t *testing.T) {
	calc := pricing.NewEngine(nil)
	c := newCart()

	it := c.AddFlower(calc, FlowerItem{ProductID: 1, Kind: catalog.KindSingle, Quantity: 3, UnitPriceCents: 1000, Wrapper: wrapper200()})
	assert.Equal(t, int64(3200), it.LineTotalCents)
	assert.Equal(t, pricing.WrapperPerOrder, it.Wrapper.Type)

	require.NoError(t, c.SetQuantity(calc, it.ID, ItemFlower, 5))
	f, ok := c.Flower(it.ID)
	require.True(t, ok)
	assert.Equal(t, int64(5200), f.LineTotalCents)
	assert.Equal(t, int64(5200), c.Total())
}

func TestSetQuantityKeepsPinnedPrice(t *testing.T) {
	calc := pricing.NewEngine(nil)
	c := newCart()

	it := c.AddFlower(calc, FlowerItem{ProductID: 1, Kind: catalog.KindSingle, Quantity: 1, UnitPriceCents: 1500, SelectedStemLength: strp("60cm")})
	require.NoError(t, c.SetQuantity(calc, it.ID, ItemFlower, 4))

	f, _ := c.Flower(it.ID)
	assert.Equal(t, int64(1500), f.UnitPriceCents)
	assert.Equal(t, int64(6000), f.LineTotalCents)
}

func TestSetQuantityNonPositiveRemoves(t *testing.T) {
	calc := pricing.NewEngine(nil)
	c := newCart()

	f := c.AddFlower(calc, FlowerItem{ProductID: 1, Kind: catalog.KindBouquet, Quantity: 1, UnitPriceCents: 1000})
	a := c.AddAddon(calc, AddonItem{AddonID: 2, Quantity: 1, UnitPriceCents: 300})

	require.NoError(t, c.SetQuantity(calc, f.ID, ItemFlower, 0))
	require.NoError(t, c.SetQuantity(calc, a.ID, ItemAddon, -2))

	assert.True(t, c.IsEmpty())
	assert.Equal(t, int64(0), c.Total())
	assert.Equal(t, 0, c.TotalItemCount())
}

func TestMutationsOnMissingItem(t *testing.T) {
	calc := pricing.NewEngine(nil)
	c := newCart()
	a := c.AddAddon(calc, AddonItem{AddonID: 2, Quantity: 1, UnitPriceCents: 300})

	assert.ErrorIs(t, c.SetQuantity(calc, "nope", ItemFlower, 2), ErrItemNotFound)
	assert.ErrorIs(t, c.SetWrapper(calc, a.ID, nil), ErrItemNotFound)
	assert.ErrorIs(t, c.SetVariant(calc, "nope", Variant{}), ErrItemNotFound)
	assert.ErrorIs(t, c.Remove(a.ID, ItemFlower), ErrItemNotFound)
	assert.ErrorIs(t, c.Remove(a.ID, ItemType("bogus")), ErrInvalidItemType)
	assert.Equal(t, int64(300), c.Total())
}

func TestSetWrapperAndClear(t *testing.T) {
	calc := pricing.NewEngine(nil)
	c := newCart()
	it := c.AddFlower(calc, FlowerItem{ProductID: 1, Kind: catalog.KindBouquet, Quantity: 2, UnitPriceCents: 1000})

	require.NoError(t, c.SetWrapper(calc, it.ID, &pricing.WrapperSnapshot{WrapperID: 3, PriceCents: 150, Type: pricing.WrapperPerOrder}))
	f, _ := c.Flower(it.ID)
	assert.Equal(t, pricing.WrapperPerItem, f.Wrapper.Type)
	assert.Equal(t, int64(2300), c.Total())

	require.NoError(t, c.SetWrapper(calc, it.ID, nil))
	assert.Equal(t, int64(2000), c.Total())
}

func TestSetVariant(t *testing.T) {
	calc := pricing.NewEngine(nil)
	c := newCart()
	it := c.AddFlower(calc, FlowerItem{ProductID: 1, Kind: catalog.KindSingle, Quantity: 2, UnitPriceCents: 1000, Image: "rose"})

	require.NoError(t, c.SetVariant(calc, it.ID, Variant{Color: strp("red"), StemLength: strp("60cm"), UnitPriceCents: 1500, Image: "rose-red"}))
	f, _ := c.Flower(it.ID)
	assert.Equal(t, "red", *f.SelectedColor)
	assert.Equal(t, "rose-red", f.Image)
	assert.Equal(t, int64(3000), c.Total())
}

func TestRemoveAndClear(t *testing.T) {
	calc := pricing.NewEngine(nil)
	c := newCart()
	f := c.AddFlower(calc, FlowerItem{ProductID: 1, Kind: catalog.KindBouquet, Quantity: 1, UnitPriceCents: 1000})
	c.AddAddon(calc, AddonItem{AddonID: 2, Quantity: 2, UnitPriceCents: 300})

	require.NoError(t, c.Remove(f.ID, ItemFlower))
	assert.Equal(t, int64(600), c.Total())
	assert.Equal(t, 2, c.TotalItemCount())

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, int64(0), c.Total())
}

func TestCloneIsolation(t *testing.T) {
	calc := pricing.NewEngine(nil)
	c := newCart()
	it := c.AddFlower(calc, FlowerItem{ProductID: 1, Kind: catalog.KindBouquet, Quantity: 1, UnitPriceCents: 1000, Wrapper: wrapper200()})

	cp := c.Clone()
	require.NoError(t, cp.SetQuantity(calc, it.ID, ItemFlower, 3))
	cp.FlowerItems[0].Wrapper.PriceCents = 1

	assert.Equal(t, int64(1200), c.Total())
	f, _ := c.Flower(it.ID)
	assert.Equal(t, int64(200), f.Wrapper.PriceCents)
	assert.Equal(t, 1, f.Quantity)
}

func TestMarshalIncludesDerivedTotals(t *testing.T) {
	calc := pricing.NewEngine(nil)
	c := newCart()
	c.AddAddon(calc, AddonItem{AddonID: 2, Quantity: 2, UnitPriceCents: 300})

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.EqualValues(t, 600, out["total_cents"])
	assert.EqualValues(t, 2, out["total_item_count"])
	assert.Len(t, out["addon_items"], 1)
}

func TestParseItemType(t *testing.T) {
	typ, err := ParseItemType("addon")
	require.NoError(t, err)
	assert.Equal(t, ItemAddon, typ)

	_, err = ParseItemType("wrapper")
	assert.ErrorIs(t, err, ErrInvalidItemType)
}
