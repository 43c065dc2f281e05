package sales

import (
	"context"
	"errors"
	"fmt"

	"bloom/internal/domain/carts"
	"bloom/internal/domain/catalog"
	"bloom/internal/domain/pricing"
	"bloom/internal/domain/stock"
	"bloom/internal/domain/storage"
	"bloom/internal/identity"
)

type AddFlowerInput struct {
	ProductID  int64
	Quantity   int
	Kind       catalog.FlowerKind
	Color      *string
	StemLength *string
	WrapperID  *int64
}

type AddAddonInput struct {
	AddonID  int64
	Quantity int
}

// GetCart returns the caller's cart. A caller without one gets an empty,
// unsaved cart; carts are only stored on the first mutation.
func (s *Service) GetCart(ctx context.Context, id identity.Identity) (*carts.Cart, error) {
	owner, err := id.CartOwner()
	if err != nil {
		return nil, err
	}

	c, err := s.store.Repos().Carts.GetByOwner(ctx, owner)
	if errors.Is(err, carts.ErrCartNotFound) {
		return carts.New(owner, s.now(), s.cartTTL), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if c.Expired(s.now()) {
		c.Clear()
	}
	return c, nil
}

func (s *Service) AddFlowerItem(ctx context.Context, id identity.Identity, in AddFlowerInput) (*carts.Cart, error) {
	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	return s.mutateCart(ctx, id, "add_flower", func(repos *storage.Sales, c *carts.Cart) error {
		p, err := s.activeProduct(ctx, repos, in.ProductID, in.Quantity)
		if err != nil {
			return err
		}

		kind, err := s.pricing.ResolveKind(p, in.Kind)
		if err != nil {
			return err
		}
		if err := s.pricing.ValidateColor(p, kind, in.Color); err != nil {
			return err
		}
		unit, err := s.pricing.ResolveUnitPrice(p, in.StemLength)
		if err != nil {
			return err
		}

		var wrapper *pricing.WrapperSnapshot
		if in.WrapperID != nil {
			w, err := s.activeWrapper(ctx, repos, *in.WrapperID, kind, in.Quantity)
			if err != nil {
				return err
			}
			wrapper = pricing.Snapshot(w, kind)
		}

		c.AddFlower(s.pricing, carts.FlowerItem{
			ProductID:          p.ID,
			Name:               p.Name,
			Kind:               kind,
			Quantity:           in.Quantity,
			SelectedColor:      in.Color,
			SelectedStemLength: in.StemLength,
			UnitPriceCents:     unit,
			Image:              s.images.URL(s.pricing.ResolveImage(p, in.Color)),
			Wrapper:            wrapper,
		})
		return nil
	})
}

func (s *Service) AddAddonItem(ctx context.Context, id identity.Identity, in AddAddonInput) (*carts.Cart, error) {
	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	return s.mutateCart(ctx, id, "add_addon", func(repos *storage.Sales, c *carts.Cart) error {
		a, err := s.activeAddon(ctx, repos, in.AddonID, in.Quantity)
		if err != nil {
			return err
		}
		c.AddAddon(s.pricing, carts.AddonItem{
			AddonID:        a.ID,
			Name:           a.Name,
			Quantity:       in.Quantity,
			UnitPriceCents: a.PriceCents,
		})
		return nil
	})
}

// UpdateItemQuantity reprices a line at its pinned price. Zero or less
// removes the line.
func (s *Service) UpdateItemQuantity(ctx context.Context, id identity.Identity, itemID string, typ carts.ItemType, qty int) (*carts.Cart, error) {
	return s.mutateCart(ctx, id, "update_quantity", func(repos *storage.Sales, c *carts.Cart) error {
		if qty > 0 {
			if err := s.checkLine(ctx, repos, c, itemID, typ, qty); err != nil {
				return err
			}
		}
		return c.SetQuantity(s.pricing, itemID, typ, qty)
	})
}

// UpdateWrapper attaches, replaces or (with a nil wrapperID) removes the
// wrapper on a flower line.
func (s *Service) UpdateWrapper(ctx context.Context, id identity.Identity, itemID string, wrapperID *int64) (*carts.Cart, error) {
	return s.mutateCart(ctx, id, "update_wrapper", func(repos *storage.Sales, c *carts.Cart) error {
		f, ok := c.Flower(itemID)
		if !ok {
			return ErrItemNotFound
		}
		if wrapperID == nil {
			return c.SetWrapper(s.pricing, itemID, nil)
		}

		w, err := s.activeWrapper(ctx, repos, *wrapperID, f.Kind, f.Quantity)
		if err != nil {
			return err
		}
		return c.SetWrapper(s.pricing, itemID, pricing.Snapshot(w, f.Kind))
	})
}

// UpdateVariant re-resolves color and stem length against the current
// product and re-pins the unit price and image.
func (s *Service) UpdateVariant(ctx context.Context, id identity.Identity, itemID string, color, stemLength *string) (*carts.Cart, error) {
	return s.mutateCart(ctx, id, "update_variant", func(repos *storage.Sales, c *carts.Cart) error {
		f, ok := c.Flower(itemID)
		if !ok {
			return ErrItemNotFound
		}

		p, err := repos.Catalog.GetProduct(ctx, f.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return unavailable(ErrProductUnavailable, f.Name)
			}
			return err
		}
		if err := s.pricing.ValidateColor(p, f.Kind, color); err != nil {
			return err
		}
		unit, err := s.pricing.ResolveUnitPrice(p, stemLength)
		if err != nil {
			return err
		}

		return c.SetVariant(s.pricing, itemID, carts.Variant{
			Color:          color,
			StemLength:     stemLength,
			UnitPriceCents: unit,
			Image:          s.images.URL(s.pricing.ResolveImage(p, color)),
		})
	})
}

func (s *Service) RemoveItem(ctx context.Context, id identity.Identity, itemID string, typ carts.ItemType) (*carts.Cart, error) {
	return s.mutateCart(ctx, id, "remove_item", func(_ *storage.Sales, c *carts.Cart) error {
		return c.Remove(itemID, typ)
	})
}

func (s *Service) ClearCart(ctx context.Context, id identity.Identity) (*carts.Cart, error) {
	return s.mutateCart(ctx, id, "clear_cart", func(_ *storage.Sales, c *carts.Cart) error {
		c.Clear()
		return nil
	})
}

// mutateCart loads (creating if needed) the caller's cart, applies fn and
// saves it under the cart's version. fn works on a copy, so a failed
// mutation never reaches storage.
func (s *Service) mutateCart(ctx context.Context, id identity.Identity, op string, fn func(repos *storage.Sales, c *carts.Cart) error) (*carts.Cart, error) {
	owner, err := id.CartOwner()
	if err != nil {
		return nil, err
	}
	repos := s.store.Repos()

	var out *carts.Cart
	err = s.retry(op, func() error {
		c, err := s.getOrCreateCart(ctx, repos.Carts, owner)
		if err != nil {
			return err
		}

		next := c.Clone()
		if err := fn(repos, next); err != nil {
			return err
		}
		next.Touch(s.now(), s.cartTTL)
		if err := repos.Carts.Save(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debugw("cart updated", "op", op, "owner", owner.Key(), "total_cents", out.Total())
	return out, nil
}

// getOrCreateCart returns the owner's cart, creating it on first use. Two
// requests racing to create the same cart both end up with the winner's.
func (s *Service) getOrCreateCart(ctx context.Context, store carts.Store, owner carts.Owner) (*carts.Cart, error) {
	const attempts = 2

	for attempt := 1; attempt <= attempts; attempt++ {
		c, err := store.GetByOwner(ctx, owner)
		if err == nil {
			// Expired but not yet swept: start over.
			if c.Expired(s.now()) {
				c.Clear()
			}
			return c, nil
		}
		if !errors.Is(err, carts.ErrCartNotFound) {
			return nil, fmt.Errorf("load cart: %w", err)
		}

		c = carts.New(owner, s.now(), s.cartTTL)
		err = store.Create(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, carts.ErrCartExists) {
			return nil, fmt.Errorf("create cart: %w", err)
		}
	}
	return nil, fmt.Errorf("get or create cart: cart not found after conflict")
}

// checkLine validates that the stock behind a cart line covers qty.
func (s *Service) checkLine(ctx context.Context, repos *storage.Sales, c *carts.Cart, itemID string, typ carts.ItemType, qty int) error {
	switch typ {
	case carts.ItemFlower:
		f, ok := c.Flower(itemID)
		if !ok {
			return ErrItemNotFound
		}
		if _, err := s.activeProduct(ctx, repos, f.ProductID, qty); err != nil {
			return err
		}
		if f.Wrapper != nil {
			if _, err := s.activeWrapper(ctx, repos, f.Wrapper.WrapperID, f.Kind, qty); err != nil {
				return err
			}
		}
	case carts.ItemAddon:
		a, ok := c.Addon(itemID)
		if !ok {
			return ErrItemNotFound
		}
		if _, err := s.activeAddon(ctx, repos, a.AddonID, qty); err != nil {
			return err
		}
	default:
		return carts.ErrInvalidItemType
	}
	return nil
}

func (s *Service) activeProduct(ctx context.Context, repos *storage.Sales, id int64, qty int) (*catalog.Product, error) {
	p, err := repos.Catalog.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, unavailable(ErrProductUnavailable, fmt.Sprintf("product %d", id))
		}
		return nil, err
	}
	if !p.IsActive {
		return nil, unavailable(ErrProductUnavailable, p.Name)
	}
	if err := s.covers(ctx, repos, stock.Product(id), qty, ErrProductUnavailable, p.Name, p.Quantity); err != nil {
		return nil, err
	}
	return p, nil
}

// activeWrapper checks a wrapper for a flower line of qty stems of kind.
func (s *Service) activeWrapper(ctx context.Context, repos *storage.Sales, id int64, kind catalog.FlowerKind, qty int) (*catalog.Wrapper, error) {
	w, err := repos.Catalog.GetWrapper(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrWrapperNotFound) {
			return nil, unavailable(ErrWrapperUnavailable, fmt.Sprintf("wrapper %d", id))
		}
		return nil, err
	}
	if !w.IsActive {
		return nil, unavailable(ErrWrapperUnavailable, w.Name)
	}
	units := pricing.Snapshot(w, kind).Units(qty)
	if err := s.covers(ctx, repos, stock.Wrapper(id), units, ErrWrapperUnavailable, w.Name, w.Quantity); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) activeAddon(ctx context.Context, repos *storage.Sales, id int64, qty int) (*catalog.Addon, error) {
	a, err := repos.Catalog.GetAddon(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrAddonNotFound) {
			return nil, unavailable(ErrAddonUnavailable, fmt.Sprintf("addon %d", id))
		}
		return nil, err
	}
	if !a.IsActive {
		return nil, unavailable(ErrAddonUnavailable, a.Name)
	}
	if err := s.covers(ctx, repos, stock.Addon(id), qty, ErrAddonUnavailable, a.Name, a.Quantity); err != nil {
		return nil, err
	}
	return a, nil
}

// covers reads the ledger without reserving anything.
func (s *Service) covers(ctx context.Context, repos *storage.Sales, ref stock.Ref, qty int, sentinel error, name string, onHand int) error {
	if qty <= 0 {
		return nil
	}
	ok, err := repos.Stock.CheckAvailable(ctx, ref, qty)
	if err != nil {
		return fmt.Errorf("check stock %s: %w", ref, err)
	}
	if !ok {
		return short(sentinel, name, qty, onHand)
	}
	return nil
}

// ListCarts is the admin view of stored carts, newest first.
func (s *Service) ListCarts(ctx context.Context, id identity.Identity, limit, offset int) ([]*carts.Cart, int, error) {
	if !id.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	return s.store.Repos().Carts.List(ctx, limit, offset)
}
