package pricing

import (
	"math"
	"testing"

	"bloom/internal/domain/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func strPtr(s string) *string { return &s }

func rose() *catalog.Product {
	return &catalog.Product{
		ID:         1,
		Name:       "Rose",
		Kind:       catalog.KindSingle,
		PriceCents: 1000,
		Colors: []catalog.ColorVariant{
			{Name: "red", Value: "#ff0000", Images: []string{"rose-red-1", "rose-red-2"}},
			{Name: "white", Value: "#ffffff"},
		},
		StemLengths: []catalog.StemLength{
			{Length: "40cm", PriceCents: 1200},
			{Length: "60cm", PriceCents: 1500},
		},
		Images:   []string{"rose-main"},
		Quantity: 10,
		IsActive: true,
	}
}

func TestResolveUnitPrice(t *testing.T) {
	e := NewEngine(nil)
	p := rose()

	price, err := e.ResolveUnitPrice(p, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), price)

	price, err = e.ResolveUnitPrice(p, strPtr("60cm"))
	require.NoError(t, err)
	assert.Equal(t, int64(1500), price)

	_, err = e.ResolveUnitPrice(p, strPtr("80cm"))
	assert.ErrorIs(t, err, ErrVariantUnavailable)

	_, err = e.ResolveUnitPrice(p, strPtr("60"))
	assert.ErrorIs(t, err, ErrVariantUnavailable, "stem length must match exactly")
}

func TestValidateColor(t *testing.T) {
	e := NewEngine(nil)
	p := rose()

	assert.NoError(t, e.ValidateColor(p, catalog.KindSingle, nil))
	assert.NoError(t, e.ValidateColor(p, catalog.KindSingle, strPtr("red")))
	assert.ErrorIs(t, e.ValidateColor(p, catalog.KindSingle, strPtr("blue")), ErrVariantUnavailable)
	assert.ErrorIs(t, e.ValidateColor(p, catalog.KindBouquet, strPtr("red")), ErrVariantUnavailable)
}

func TestResolveKind(t *testing.T) {
	e := NewEngine(nil)
	p := rose()

	kind, err := e.ResolveKind(p, "")
	require.NoError(t, err)
	assert.Equal(t, catalog.KindSingle, kind)

	_, err = e.ResolveKind(p, catalog.KindBouquet)
	assert.ErrorIs(t, err, ErrKindMismatch)

	_, err = e.ResolveKind(p, "bunch")
	assert.ErrorIs(t, err, ErrKindMismatch)

	p.Kind = ""
	kind, err = e.ResolveKind(p, catalog.KindBouquet)
	require.NoError(t, err)
	assert.Equal(t, catalog.KindBouquet, kind)
}

func TestResolveImage(t *testing.T) {
	e := NewEngine(nil)
	p := rose()

	assert.Equal(t, "rose-red-1", e.ResolveImage(p, strPtr("red")))
	assert.Equal(t, "rose-main", e.ResolveImage(p, strPtr("white")), "color without images falls back to product image")
	assert.Equal(t, "rose-main", e.ResolveImage(p, nil))

	p.Images = nil
	assert.Equal(t, PlaceholderImage, e.ResolveImage(p, strPtr("white")))
}

func TestFlowerLineTotal(t *testing.T) {
	e := NewEngine(nil)
	wrap := &WrapperSnapshot{WrapperID: 9, Name: "Kraft", PriceCents: 200}

	tests := []struct {
		name    string
		unit    int64
		qty     int
		wrapper *WrapperSnapshot
		kind    catalog.FlowerKind
		want    int64
	}{
		{"stem length no wrapper", 1500, 2, nil, catalog.KindSingle, 3000},
		{"single with wrapper charged once", 1000, 3, wrap, catalog.KindSingle, 3200},
		{"bouquet with wrapper per item", 1000, 3, wrap, catalog.KindBouquet, 3600},
		{"bouquet no wrapper", 1000, 3, nil, catalog.KindBouquet, 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.FlowerLineTotal(tt.unit, tt.qty, tt.wrapper, tt.kind))
		})
	}
}

func TestAddonLineTotal(t *testing.T) {
	e := NewEngine(nil)
	assert.Equal(t, int64(1000), e.AddonLineTotal(500, 2))
}

func TestInvalidInputIsCoercedAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := NewEngine(zap.New(core).Sugar())

	assert.Equal(t, int64(0), e.FlowerLineTotal(-100, 2, nil, catalog.KindBouquet))
	assert.Equal(t, int64(0), e.AddonLineTotal(500, -1))
	assert.Equal(t, int64(200), e.FlowerLineTotal(-1, 3, &WrapperSnapshot{PriceCents: 200}, catalog.KindSingle))
	assert.Equal(t, int64(0), e.AddonLineTotal(math.MaxInt64, 2))

	assert.Equal(t, 4, logs.Len())
}

func TestWrapperUnits(t *testing.T) {
	var none *WrapperSnapshot
	assert.Equal(t, 0, none.Units(3))

	perOrder := Snapshot(&catalog.Wrapper{ID: 1, PriceCents: 200}, catalog.KindSingle)
	assert.Equal(t, WrapperPerOrder, perOrder.Type)
	assert.Equal(t, 1, perOrder.Units(3))

	perItem := Snapshot(&catalog.Wrapper{ID: 1, PriceCents: 200}, catalog.KindBouquet)
	assert.Equal(t, WrapperPerItem, perItem.Type)
	assert.Equal(t, 3, perItem.Units(3))
}
