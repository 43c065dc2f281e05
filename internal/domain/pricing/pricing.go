// Package pricing computes unit prices, images and line totals for cart and
// order lines. Nothing here touches storage.
package pricing

import (
	"errors"
	"math"

	"bloom/internal/domain/catalog"

	"go.uber.org/zap"
)

// PlaceholderImage is served when neither the selected color nor the product
// has an image.
const PlaceholderImage = "placeholder/flower"

var (
	ErrVariantUnavailable = errors.New("variant unavailable")
	ErrKindMismatch       = errors.New("flower type does not match product")
)

type WrapperType string

const (
	WrapperPerItem  WrapperType = "per_item"
	WrapperPerOrder WrapperType = "per_order"
)

// WrapperTypeFor reports how a wrapper is charged for the given flower kind.
func WrapperTypeFor(kind catalog.FlowerKind) WrapperType {
	if kind == catalog.KindSingle {
		return WrapperPerOrder
	}
	return WrapperPerItem
}

// WrapperSnapshot pins a wrapper's name and price on a line at selection time.
type WrapperSnapshot struct {
	WrapperID  int64       `json:"wrapper_id"`
	Name       string      `json:"name"`
	PriceCents int64       `json:"price_cents"`
	Type       WrapperType `json:"wrapper_type"`
}

// Units is how many wrappers a line of qty flowers consumes.
func (w *WrapperSnapshot) Units(qty int) int {
	if w == nil || qty <= 0 {
		return 0
	}
	if w.Type == WrapperPerOrder {
		return 1
	}
	return qty
}

func Snapshot(w *catalog.Wrapper, kind catalog.FlowerKind) *WrapperSnapshot {
	if w == nil {
		return nil
	}
	return &WrapperSnapshot{
		WrapperID:  w.ID,
		Name:       w.Name,
		PriceCents: w.PriceCents,
		Type:       WrapperTypeFor(kind),
	}
}

// LineCalculator is what cart and order aggregates reprice lines through.
type LineCalculator interface {
	FlowerLineTotal(unitPrice int64, qty int, w *WrapperSnapshot, kind catalog.FlowerKind) int64
	AddonLineTotal(unitPrice int64, qty int) int64
}

type Engine struct {
	logger *zap.SugaredLogger
}

func NewEngine(logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{logger: logger}
}

// ResolveUnitPrice returns the selected stem length's price, or the base
// price when no stem length is selected.
func (e *Engine) ResolveUnitPrice(p *catalog.Product, stemLength *string) (int64, error) {
	if stemLength == nil {
		return p.PriceCents, nil
	}
	s, ok := p.StemLength(*stemLength)
	if !ok {
		return 0, ErrVariantUnavailable
	}
	return s.PriceCents, nil
}

// ValidateColor checks that a selected color exists on the product and that
// the line is a single-flower line; bouquets carry no color choice.
func (e *Engine) ValidateColor(p *catalog.Product, kind catalog.FlowerKind, color *string) error {
	if color == nil {
		return nil
	}
	if kind != catalog.KindSingle {
		return ErrVariantUnavailable
	}
	if _, ok := p.Color(*color); !ok {
		return ErrVariantUnavailable
	}
	return nil
}

// ResolveKind settles the line kind from the request and the product. An
// empty request kind takes the product's.
func (e *Engine) ResolveKind(p *catalog.Product, requested catalog.FlowerKind) (catalog.FlowerKind, error) {
	if requested == "" {
		if p.Kind.Valid() {
			return p.Kind, nil
		}
		return catalog.KindBouquet, nil
	}
	if !requested.Valid() {
		return "", ErrKindMismatch
	}
	if p.Kind.Valid() && p.Kind != requested {
		return "", ErrKindMismatch
	}
	return requested, nil
}

func (e *Engine) ResolveImage(p *catalog.Product, color *string) string {
	if color != nil {
		if c, ok := p.Color(*color); ok && len(c.Images) > 0 {
			return c.Images[0]
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return PlaceholderImage
}

// FlowerLineTotal charges a wrapper once on single-flower lines and once per
// stem on bouquet lines.
func (e *Engine) FlowerLineTotal(unitPrice int64, qty int, w *WrapperSnapshot, kind catalog.FlowerKind) int64 {
	unitPrice = e.sanitize("unit_price", unitPrice)
	q := e.sanitize("quantity", int64(qty))

	var wrapperPrice int64
	if w != nil {
		wrapperPrice = e.sanitize("wrapper_price", w.PriceCents)
	}

	if kind == catalog.KindSingle && w != nil {
		return e.add(e.mul(unitPrice, q), wrapperPrice)
	}
	return e.mul(e.add(unitPrice, wrapperPrice), q)
}

func (e *Engine) AddonLineTotal(unitPrice int64, qty int) int64 {
	return e.mul(e.sanitize("unit_price", unitPrice), e.sanitize("quantity", int64(qty)))
}

// sanitize coerces values no total can be built from to zero. The coercion
// is logged and never fails the caller.
func (e *Engine) sanitize(field string, v int64) int64 {
	if v < 0 {
		e.logger.Warnw("coerced invalid pricing input", "field", field, "value", v)
		return 0
	}
	return v
}

func (e *Engine) mul(a, b int64) int64 {
	if a != 0 && b > math.MaxInt64/a {
		e.logger.Warnw("coerced overflowing line total", "a", a, "b", b)
		return 0
	}
	return a * b
}

func (e *Engine) add(a, b int64) int64 {
	if a > math.MaxInt64-b {
		e.logger.Warnw("coerced overflowing line total", "a", a, "b", b)
		return 0
	}
	return a + b
}
