package sales

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bloom/internal/domain/carts"
	"bloom/internal/domain/catalog"
	"bloom/internal/domain/orders"
	"bloom/internal/domain/pricing"
	"bloom/internal/domain/storage"
	"bloom/internal/domain/storage/memstore"
	"bloom/internal/identity"
	"bloom/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	placed []*orders.Order
	low    [][]notifications.LowStockItem
}

func (r *recorder) OrderPlaced(_ context.Context, o *orders.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed = append(r.placed, o)
	return nil
}

func (r *recorder) LowStock(_ context.Context, _ *orders.Order, items []notifications.LowStockItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.low = append(r.low, items)
	return nil
}

type fixture struct {
	svc   *Service
	mem   *memstore.Store
	notes *recorder

	rose     int64 // single, 1000, 60cm at 1500, red
	bouquet  int64 // bouquet, 1000
	inactive int64
	wrapper  int64 // 200
	card     int64 // addon, 500
}

func strp(s string) *string { return &s }
func idp(v int64) *int64    { return &v }

var (
	ctx   = context.Background()
	admin = identity.Admin("admin-session")
)

func setup(t *testing.T) *fixture {
	t.Helper()

	gen, err := orders.NewNumberGenerator("sales-test")
	require.NoError(t, err)
	mem := memstore.New(gen)

	f := &fixture{mem: mem, notes: &recorder{}}
	f.rose = mem.PutProduct(catalog.Product{
		Name: "Rose", Kind: catalog.KindSingle, PriceCents: 1000, Quantity: 10, IsActive: true,
		StemLengths: []catalog.StemLength{{Length: "40cm", PriceCents: 1200}, {Length: "60cm", PriceCents: 1500}},
		Colors:      []catalog.ColorVariant{{Name: "red", Value: "#f00", Images: []string{"rose-red.jpg"}}, {Name: "white", Value: "#fff"}},
		Images:      []string{"rose.jpg"},
	})
	f.bouquet = mem.PutProduct(catalog.Product{Name: "Spring Bouquet", Kind: catalog.KindBouquet, PriceCents: 1000, Quantity: 10, IsActive: true})
	f.inactive = mem.PutProduct(catalog.Product{Name: "Lily", Kind: catalog.KindBouquet, PriceCents: 900, Quantity: 10, IsActive: false})
	f.wrapper = mem.PutWrapper(catalog.Wrapper{Name: "Kraft", PriceCents: 200, Quantity: 10, IsActive: true})
	f.card = mem.PutAddon(catalog.Addon{Name: "Card", Category: "cards", PriceCents: 500, Quantity: 10, IsActive: true})

	f.svc = NewService(mem, pricing.NewEngine(nil), nil, f.notes, zap.NewNop().Sugar(), Config{})
	return f
}

func (f *fixture) product(t *testing.T, id int64) *catalog.Product {
	t.Helper()
	p, err := f.mem.Repos().Catalog.GetProduct(ctx, id)
	require.NoError(t, err)
	return p
}

func (f *fixture) wrapperQty(t *testing.T) int {
	t.Helper()
	w, err := f.mem.Repos().Catalog.GetWrapper(ctx, f.wrapper)
	require.NoError(t, err)
	return w.Quantity
}

func (f *fixture) addon(t *testing.T) *catalog.Addon {
	t.Helper()
	a, err := f.mem.Repos().Catalog.GetAddon(ctx, f.card)
	require.NoError(t, err)
	return a
}

// fillScenarioCart builds the 3000 + 3600 + 1000 cart.
func (f *fixture) fillScenarioCart(t *testing.T, id identity.Identity) *carts.Cart {
	t.Helper()
	_, err := f.svc.AddFlowerItem(ctx, id, AddFlowerInput{ProductID: f.rose, Quantity: 2, StemLength: strp("60cm")})
	require.NoError(t, err)
	_, err = f.svc.AddFlowerItem(ctx, id, AddFlowerInput{ProductID: f.bouquet, Quantity: 3, Kind: catalog.KindBouquet, WrapperID: idp(f.wrapper)})
	require.NoError(t, err)
	c, err := f.svc.AddAddonItem(ctx, id, AddAddonInput{AddonID: f.card, Quantity: 2})
	require.NoError(t, err)
	return c
}

var delivery = orders.Delivery{Name: "Ann", Address: "1 Main St", Phone: "555-0100", PaymentMethod: "cash_on_delivery"}

func TestScenarioCartTotal(t *testing.T) {
	f := setup(t)
	c := f.fillScenarioCart(t, identity.Guest("s1"))

	require.Len(t, c.FlowerItems, 2)
	assert.Equal(t, int64(3000), c.FlowerItems[0].LineTotalCents)
	assert.Equal(t, int64(1500), c.FlowerItems[0].UnitPriceCents)
	assert.Equal(t, "rose.jpg", c.FlowerItems[0].Image)
	assert.Equal(t, int64(3600), c.FlowerItems[1].LineTotalCents)
	assert.Equal(t, pricing.WrapperPerItem, c.FlowerItems[1].Wrapper.Type)
	assert.Equal(t, int64(1000), c.AddonItems[0].LineTotalCents)
	assert.Equal(t, int64(7600), c.Total())
	assert.Equal(t, 7, c.TotalItemCount())

	got, err := f.svc.GetCart(ctx, identity.Guest("s1"))
	require.NoError(t, err)
	assert.Equal(t, int64(7600), got.Total())

	// stock is only read while shopping
	assert.Equal(t, 10, f.product(t, f.rose).Quantity)
}

func TestSingleFlowerWrapperChargedOnce(t *testing.T) {
	f := setup(t)
	c, err := f.svc.AddFlowerItem(ctx, identity.Guest("s"), AddFlowerInput{
		ProductID: f.rose, Quantity: 3, Kind: catalog.KindSingle, Color: strp("red"), WrapperID: idp(f.wrapper),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3200), c.Total())
	assert.Equal(t, pricing.WrapperPerOrder, c.FlowerItems[0].Wrapper.Type)
	assert.Equal(t, "rose-red.jpg", c.FlowerItems[0].Image)
}

func TestGetCartWithoutCart(t *testing.T) {
	f := setup(t)
	c, err := f.svc.GetCart(ctx, identity.User(5, ""))
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Zero(t, c.ID)

	_, err = f.svc.GetCart(ctx, identity.Guest(""))
	assert.ErrorIs(t, err, ErrNoCartOwner)
}

func TestUserAndGuestCartsAreSeparate(t *testing.T) {
	f := setup(t)
	_, err := f.svc.AddAddonItem(ctx, identity.User(5, "s1"), AddAddonInput{AddonID: f.card, Quantity: 1})
	require.NoError(t, err)

	guest, err := f.svc.GetCart(ctx, identity.Guest("s1"))
	require.NoError(t, err)
	assert.True(t, guest.IsEmpty())

	user, err := f.svc.GetCart(ctx, identity.User(5, "other"))
	require.NoError(t, err)
	assert.Equal(t, int64(500), user.Total())
}

func TestAddFlowerRejections(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s")

	_, err := f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.inactive, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: 999, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.rose, Quantity: 11})
	require.ErrorIs(t, err, ErrProductUnavailable)
	var ue *UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "Rose", ue.Name)
	assert.Equal(t, 11, ue.Requested)
	assert.Equal(t, 10, ue.Available)

	_, err = f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.rose, Quantity: 1, Color: strp("blue")})
	assert.ErrorIs(t, err, ErrVariantUnavailable)

	_, err = f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.bouquet, Quantity: 1, Color: strp("red")})
	assert.ErrorIs(t, err, ErrVariantUnavailable)

	_, err = f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.rose, Quantity: 1, StemLength: strp("80cm")})
	assert.ErrorIs(t, err, ErrVariantUnavailable)

	_, err = f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.rose, Quantity: 1, Kind: catalog.KindBouquet})
	assert.ErrorIs(t, err, pricing.ErrKindMismatch)

	_, err = f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.rose, Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// bouquet wrappers are per stem: 11 stems need 11 wrappers
	f.mem.PutProduct(catalog.Product{ID: f.bouquet, Name: "Spring Bouquet", Kind: catalog.KindBouquet, PriceCents: 1000, Quantity: 20, IsActive: true})
	_, err = f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.bouquet, Quantity: 11, WrapperID: idp(f.wrapper)})
	assert.ErrorIs(t, err, ErrWrapperUnavailable)

	c, err := f.svc.GetCart(ctx, guest)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestInactiveWrapperAndAddon(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s")
	f.mem.PutWrapper(catalog.Wrapper{ID: f.wrapper, Name: "Kraft", PriceCents: 200, Quantity: 10})
	f.mem.PutAddon(catalog.Addon{ID: f.card, Name: "Card", PriceCents: 500, Quantity: 10})

	_, err := f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.rose, Quantity: 1, WrapperID: idp(f.wrapper)})
	assert.ErrorIs(t, err, ErrWrapperUnavailable)

	_, err = f.svc.AddAddonItem(ctx, guest, AddAddonInput{AddonID: f.card, Quantity: 1})
	assert.ErrorIs(t, err, ErrAddonUnavailable)
}

func TestUpdateItemQuantity(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s")
	c := f.fillScenarioCart(t, guest)
	rose := c.FlowerItems[0]
	card := c.AddonItems[0]

	c, err := f.svc.UpdateItemQuantity(ctx, guest, rose.ID, carts.ItemFlower, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), c.FlowerItems[0].LineTotalCents)
	assert.Equal(t, int64(6000+3600+1000), c.Total())

	_, err = f.svc.UpdateItemQuantity(ctx, guest, rose.ID, carts.ItemFlower, 11)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	c, err = f.svc.UpdateItemQuantity(ctx, guest, card.ID, carts.ItemAddon, 0)
	require.NoError(t, err)
	assert.Empty(t, c.AddonItems)
	assert.Equal(t, int64(6000+3600), c.Total())

	_, err = f.svc.UpdateItemQuantity(ctx, guest, "missing", carts.ItemFlower, 1)
	assert.ErrorIs(t, err, ErrItemNotFound)

	// a rejected update leaves the stored cart alone
	stored, err := f.svc.GetCart(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, int64(9600), stored.Total())
}

func TestUpdateWrapperAndVariant(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s")
	c, err := f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.rose, Quantity: 3})
	require.NoError(t, err)
	item := c.FlowerItems[0].ID

	c, err = f.svc.UpdateWrapper(ctx, guest, item, idp(f.wrapper))
	require.NoError(t, err)
	assert.Equal(t, int64(3200), c.Total())

	c, err = f.svc.UpdateVariant(ctx, guest, item, strp("red"), strp("40cm"))
	require.NoError(t, err)
	assert.Equal(t, int64(1200), c.FlowerItems[0].UnitPriceCents)
	assert.Equal(t, "rose-red.jpg", c.FlowerItems[0].Image)
	assert.Equal(t, int64(3*1200+200), c.Total())

	_, err = f.svc.UpdateVariant(ctx, guest, item, strp("green"), nil)
	assert.ErrorIs(t, err, ErrVariantUnavailable)

	c, err = f.svc.UpdateWrapper(ctx, guest, item, nil)
	require.NoError(t, err)
	assert.Nil(t, c.FlowerItems[0].Wrapper)
	assert.Equal(t, int64(3600), c.Total())

	_, err = f.svc.UpdateWrapper(ctx, guest, "missing", nil)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s")
	c := f.fillScenarioCart(t, guest)

	c, err := f.svc.RemoveItem(ctx, guest, c.FlowerItems[1].ID, carts.ItemFlower)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), c.Total())

	c, err = f.svc.ClearCart(ctx, guest)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Zero(t, c.Total())
}

func TestPlaceOrder(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	f.fillScenarioCart(t, guest)

	o, err := f.svc.PlaceOrder(ctx, guest, delivery)
	require.NoError(t, err)

	assert.NotEmpty(t, o.OrderNumber)
	assert.Equal(t, orders.StatusPending, o.Status)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, orders.StatusPending, o.StatusHistory[0].Status)
	assert.Equal(t, int64(7600), o.TotalAmountCents)
	assert.Len(t, o.Items, 3)

	rose := f.product(t, f.rose)
	assert.Equal(t, 8, rose.Quantity)
	assert.Equal(t, 2, rose.SoldCount)
	assert.Equal(t, 7, f.product(t, f.bouquet).Quantity)
	assert.Equal(t, 7, f.wrapperQty(t))
	assert.Equal(t, 8, f.addon(t).Quantity)
	assert.Equal(t, 2, f.addon(t).SoldCount)

	c, err := f.svc.GetCart(ctx, guest)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	require.Len(t, f.notes.placed, 1)
	assert.Equal(t, o.ID, f.notes.placed[0].ID)
	assert.Empty(t, f.notes.low)

	_, err = f.svc.PlaceOrder(ctx, guest, delivery)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrderLowStock(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	_, err := f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.rose, Quantity: 8})
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, guest, delivery)
	require.NoError(t, err)

	require.Len(t, f.notes.low, 1)
	require.Len(t, f.notes.low[0], 1)
	assert.Equal(t, "Rose", f.notes.low[0][0].Name)
	assert.Equal(t, 2, f.notes.low[0][0].Remaining)
}

func TestPlaceOrderRejectsWholeOrder(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	f.fillScenarioCart(t, guest)

	// someone else drains the addon after it was carted
	f.mem.PutAddon(catalog.Addon{ID: f.card, Name: "Card", PriceCents: 500, Quantity: 1, IsActive: true})

	_, err := f.svc.PlaceOrder(ctx, guest, delivery)
	require.ErrorIs(t, err, ErrAddonUnavailable)
	assert.Contains(t, err.Error(), "Card")

	assert.Equal(t, 10, f.product(t, f.rose).Quantity)
	assert.Equal(t, 10, f.product(t, f.bouquet).Quantity)
	assert.Equal(t, 10, f.wrapperQty(t))
	assert.Equal(t, 1, f.addon(t).Quantity)

	c, err := f.svc.GetCart(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, int64(7600), c.Total())
	assert.Empty(t, f.notes.placed)
}

func TestPlaceOrderRejectsDeactivatedProduct(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	_, err := f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.rose, Quantity: 1})
	require.NoError(t, err)

	f.mem.PutProduct(catalog.Product{ID: f.rose, Name: "Rose", Kind: catalog.KindSingle, PriceCents: 1000, Quantity: 10})
	_, err = f.svc.PlaceOrder(ctx, guest, delivery)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestConcurrentOrdersNeverOverdraw(t *testing.T) {
	f := setup(t)
	last := f.mem.PutProduct(catalog.Product{Name: "Orchid", Kind: catalog.KindSingle, PriceCents: 3000, Quantity: 1, IsActive: true})

	buyers := []identity.Identity{identity.Guest("a"), identity.Guest("b"), identity.User(3, "")}
	for _, b := range buyers {
		_, err := f.svc.AddFlowerItem(ctx, b, AddFlowerInput{ProductID: last, Quantity: 1})
		require.NoError(t, err)
	}

	var ok, rejected int32
	var wg sync.WaitGroup
	for _, b := range buyers {
		wg.Add(1)
		go func(id identity.Identity) {
			defer wg.Done()
			_, err := f.svc.PlaceOrder(ctx, id, delivery)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, ErrProductUnavailable):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(b)
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok)
	assert.EqualValues(t, 2, rejected)
	assert.Equal(t, 0, f.product(t, last).Quantity)
}

func TestCancelReinstateRoundTrip(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	f.fillScenarioCart(t, guest)
	o, err := f.svc.PlaceOrder(ctx, guest, delivery)
	require.NoError(t, err)

	before := f.product(t, f.rose)

	o, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, o.Status)
	assert.Equal(t, 10, f.product(t, f.rose).Quantity)
	assert.Equal(t, 0, f.product(t, f.rose).SoldCount)
	assert.Equal(t, 10, f.wrapperQty(t))
	assert.Equal(t, 10, f.addon(t).Quantity)

	o, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, "inProgress")
	require.NoError(t, err)
	after := f.product(t, f.rose)
	assert.Equal(t, before.Quantity, after.Quantity)
	assert.Equal(t, before.SoldCount, after.SoldCount)
	assert.Equal(t, 7, f.wrapperQty(t))

	assert.Equal(t, []orders.Status{orders.StatusPending, orders.StatusCancelled, orders.StatusInProgress},
		statuses(o.StatusHistory))
}

func TestReinstateFailsWhenStockConsumed(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	_, err := f.svc.AddFlowerItem(ctx, guest, AddFlowerInput{ProductID: f.rose, Quantity: 6})
	require.NoError(t, err)
	o, err := f.svc.PlaceOrder(ctx, guest, delivery)
	require.NoError(t, err)

	_, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, "cancelled")
	require.NoError(t, err)

	other := identity.Guest("s2")
	_, err = f.svc.AddFlowerItem(ctx, other, AddFlowerInput{ProductID: f.rose, Quantity: 5})
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, other, delivery)
	require.NoError(t, err)

	_, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, "completed")
	require.ErrorIs(t, err, ErrInsufficientStockOnReinstate)

	got, err := f.svc.GetOrder(ctx, admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)
	assert.Equal(t, 5, f.product(t, f.rose).Quantity)
}

func TestStatusChangesWithoutStockEffect(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	f.fillScenarioCart(t, guest)
	o, err := f.svc.PlaceOrder(ctx, guest, delivery)
	require.NoError(t, err)

	o, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, "inProgress")
	require.NoError(t, err)
	o, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, "completed")
	require.NoError(t, err)
	o, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, "completed")
	require.NoError(t, err)

	assert.Len(t, o.StatusHistory, 3)
	assert.Equal(t, 8, f.product(t, f.rose).Quantity)

	_, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, "shipped")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateOrderStatus(ctx, guest, o.ID, "cancelled")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateOrderStatus(ctx, admin, 9999, "cancelled")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderItemCorrections(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	f.fillScenarioCart(t, guest)
	o, err := f.svc.PlaceOrder(ctx, guest, delivery)
	require.NoError(t, err)

	// bouquet line: 3 -> 5 takes two more stems and two more wrappers
	o, err = f.svc.UpdateOrderItemQuantity(ctx, admin, o.ID, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), o.Items[1].LineTotalCents)
	assert.Equal(t, int64(3000+6000+1000), o.TotalAmountCents)
	assert.Equal(t, 5, f.product(t, f.bouquet).Quantity)
	assert.Equal(t, 5, f.wrapperQty(t))

	o, err = f.svc.UpdateOrderItemQuantity(ctx, admin, o.ID, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, f.product(t, f.rose).Quantity)
	assert.Equal(t, 1, f.product(t, f.rose).SoldCount)

	_, err = f.svc.UpdateOrderItemQuantity(ctx, admin, o.ID, 1, 50)
	assert.ErrorIs(t, err, ErrProductUnavailable)
	assert.Equal(t, 5, f.product(t, f.bouquet).Quantity)

	_, err = f.svc.UpdateOrderItemQuantity(ctx, admin, o.ID, 7, 1)
	assert.ErrorIs(t, err, ErrItemNotFound)

	o, err = f.svc.RemoveOrderItem(ctx, admin, o.ID, 2)
	require.NoError(t, err)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, 10, f.addon(t).Quantity)

	o, err = f.svc.RemoveOrderItem(ctx, admin, o.ID, 0)
	require.NoError(t, err)
	o2, err := f.svc.RemoveOrderItem(ctx, admin, o.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, o2)

	_, err = f.svc.GetOrder(ctx, admin, o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, 10, f.product(t, f.rose).Quantity)
	assert.Equal(t, 10, f.product(t, f.bouquet).Quantity)
	assert.Equal(t, 10, f.wrapperQty(t))
}

func TestCorrectionsOnCancelledOrderLeaveStock(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	f.fillScenarioCart(t, guest)
	o, err := f.svc.PlaceOrder(ctx, guest, delivery)
	require.NoError(t, err)
	_, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, "cancelled")
	require.NoError(t, err)

	o, err = f.svc.UpdateOrderItemQuantity(ctx, admin, o.ID, 0, 9)
	require.NoError(t, err)
	assert.Equal(t, 10, f.product(t, f.rose).Quantity)

	// reinstating now takes the corrected quantity
	_, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, "pending")
	require.NoError(t, err)
	assert.Equal(t, 1, f.product(t, f.rose).Quantity)
}

func TestDeleteOrderReturnsExactlyWhatItHolds(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	f.fillScenarioCart(t, guest)
	o, err := f.svc.PlaceOrder(ctx, guest, delivery)
	require.NoError(t, err)

	for _, st := range []string{"cancelled", "pending", "cancelled", "inProgress"} {
		_, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, st)
		require.NoError(t, err)
	}
	require.NoError(t, f.svc.DeleteOrder(ctx, admin, o.ID))

	assert.Equal(t, 10, f.product(t, f.rose).Quantity)
	assert.Equal(t, 0, f.product(t, f.rose).SoldCount)
	assert.Equal(t, 10, f.product(t, f.bouquet).Quantity)
	assert.Equal(t, 10, f.wrapperQty(t))
	assert.Equal(t, 10, f.addon(t).Quantity)

	assert.ErrorIs(t, f.svc.DeleteOrder(ctx, admin, o.ID), ErrOrderNotFound)
	assert.ErrorIs(t, f.svc.DeleteOrder(ctx, guest, o.ID), ErrForbidden)
}

func TestDeleteCancelledOrderCreditsNothing(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	f.fillScenarioCart(t, guest)
	o, err := f.svc.PlaceOrder(ctx, guest, delivery)
	require.NoError(t, err)
	_, err = f.svc.UpdateOrderStatus(ctx, admin, o.ID, "cancelled")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteOrder(ctx, admin, o.ID))
	assert.Equal(t, 10, f.product(t, f.rose).Quantity)
}

func TestOrderVisibility(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s1")
	f.fillScenarioCart(t, guest)
	o, err := f.svc.PlaceOrder(ctx, guest, delivery)
	require.NoError(t, err)

	_, err = f.svc.GetOrder(ctx, guest, o.ID)
	require.NoError(t, err)
	_, err = f.svc.GetOrder(ctx, identity.Guest("s2"), o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	mine, total, err := f.svc.ListMyOrders(ctx, guest, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, o.ID, mine[0].ID)

	_, _, err = f.svc.ListOrders(ctx, guest, "", 10, 0)
	assert.ErrorIs(t, err, ErrForbidden)
	_, total, err = f.svc.ListOrders(ctx, admin, "pending", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	_, _, err = f.svc.ListOrders(ctx, admin, "lost", 10, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestHousekeeping(t *testing.T) {
	f := setup(t)
	_, err := f.svc.AddAddonItem(ctx, identity.Guest("old"), AddAddonInput{AddonID: f.card, Quantity: 1})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	n, err := f.svc.PurgeExpiredGuestCarts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	f.mem.PutProduct(catalog.Product{ID: f.bouquet, Name: "Spring Bouquet", Kind: catalog.KindBouquet, Quantity: 0, IsActive: true})
	n, err = f.svc.DeactivateSoldOut(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	products, total, err := f.svc.ListProducts(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, f.rose, products[0].ID)
}

func TestExpiredGuestCartStartsEmpty(t *testing.T) {
	f := setup(t)
	guest := identity.Guest("s")
	_, err := f.svc.AddAddonItem(ctx, guest, AddAddonInput{AddonID: f.card, Quantity: 1})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	c, err := f.svc.GetCart(ctx, guest)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = f.svc.PlaceOrder(ctx, guest, delivery)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

type flakyCarts struct {
	carts.Store
	conflicts int32
}

func (f *flakyCarts) Save(ctx context.Context, c *carts.Cart) error {
	if atomic.AddInt32(&f.conflicts, -1) >= 0 {
		return carts.ErrVersionConflict
	}
	return f.Store.Save(ctx, c)
}

type flakyProvider struct {
	*memstore.Store
	carts *flakyCarts
}

func (p *flakyProvider) Repos() *storage.Sales {
	r := p.Store.Repos()
	r.Carts = p.carts
	return r
}

func TestCartConflictsAreRetried(t *testing.T) {
	f := setup(t)
	flaky := &flakyCarts{Store: f.mem.Repos().Carts, conflicts: 2}
	svc := NewService(&flakyProvider{Store: f.mem, carts: flaky}, nil, nil, nil, nil, Config{})

	c, err := svc.AddAddonItem(ctx, identity.Guest("s"), AddAddonInput{AddonID: f.card, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(500), c.Total())

	flaky.conflicts = 3
	_, err = svc.AddAddonItem(ctx, identity.Guest("s"), AddAddonInput{AddonID: f.card, Quantity: 1})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	stored, err := f.svc.GetCart(ctx, identity.Guest("s"))
	require.NoError(t, err)
	assert.Len(t, stored.AddonItems, 1)
}

func statuses(h []orders.StatusChange) []orders.Status {
	out := make([]orders.Status, len(h))
	for i, c := range h {
		out[i] = c.Status
	}
	return out
}
