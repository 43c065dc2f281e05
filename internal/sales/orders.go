package sales

import (
	"context"
	"errors"
	"fmt"

	"bloom/internal/domain/carts"
	"bloom/internal/domain/catalog"
	"bloom/internal/domain/orders"
	"bloom/internal/domain/stock"
	"bloom/internal/domain/storage"
	"bloom/internal/identity"
	"bloom/internal/notifications"
)

// PlaceOrder turns the caller's cart into a pending order. Availability is
// re-checked for every line, stock is debited, the order is stored and the
// cart is emptied, all in one transaction. Notifications go out only after
// it commits.
func (s *Service) PlaceOrder(ctx context.Context, id identity.Identity, d orders.Delivery) (*orders.Order, error) {
	owner, err := id.CartOwner()
	if err != nil {
		return nil, err
	}

	var (
		placed *orders.Order
		low    []notifications.LowStockItem
	)
	err = s.retry("place_order", func() error {
		return s.store.WithSalesTx(ctx, func(tx *storage.Sales) error {
			c, err := tx.Carts.GetByOwner(ctx, owner)
			if err != nil {
				if errors.Is(err, carts.ErrCartNotFound) {
					return ErrEmptyCart
				}
				return err
			}
			if c.IsEmpty() || c.Expired(s.now()) {
				return ErrEmptyCart
			}

			o := orders.New(c, d, s.now())
			if err := s.checkOrderItems(ctx, tx, o); err != nil {
				return err
			}

			remaining, err := s.debit(ctx, tx, itemNames(o), o.Movements())
			if err != nil {
				return err
			}
			if err := tx.Orders.Create(ctx, o); err != nil {
				return fmt.Errorf("create order: %w", err)
			}

			c.Clear()
			c.Touch(s.now(), s.cartTTL)
			if err := tx.Carts.Save(ctx, c); err != nil {
				return err
			}

			placed = o
			low = notifications.LowStockItems(remaining, itemNames(o))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("order placed",
		"order_id", placed.ID,
		"order_number", placed.OrderNumber,
		"owner", placed.Owner.Key(),
		"total_cents", placed.TotalAmountCents,
	)
	s.notify(ctx, placed, low)
	return placed, nil
}

func (s *Service) notify(ctx context.Context, o *orders.Order, low []notifications.LowStockItem) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderPlaced(ctx, o); err != nil {
		s.logger.Errorw("order notification", "order_id", o.ID, "error", err)
	}
	if len(low) == 0 {
		return
	}
	if err := s.notifier.LowStock(ctx, o, low); err != nil {
		s.logger.Errorw("low stock notification", "order_id", o.ID, "error", err)
	}
}

// GetOrder returns an order its owner placed, or any order for admins.
func (s *Service) GetOrder(ctx context.Context, id identity.Identity, orderID int64) (*orders.Order, error) {
	o, err := s.store.Repos().Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.Owns(o.Owner) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) ListMyOrders(ctx context.Context, id identity.Identity, limit, offset int) ([]*orders.Order, int, error) {
	owner, err := id.CartOwner()
	if err != nil {
		return nil, 0, err
	}
	return s.store.Repos().Orders.ListByOwner(ctx, owner, limit, offset)
}

// ListOrders is the admin listing; an empty status lists everything.
func (s *Service) ListOrders(ctx context.Context, id identity.Identity, status string, limit, offset int) ([]*orders.Order, int, error) {
	if !id.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	var st orders.Status
	if status != "" {
		parsed, err := orders.ParseStatus(status)
		if err != nil {
			return nil, 0, err
		}
		st = parsed
	}
	return s.store.Repos().Orders.ListAll(ctx, st, limit, offset)
}

// UpdateOrderStatus moves an order to status and reconciles stock:
// cancelling returns everything, leaving cancelled takes it again (or
// fails with ErrInsufficientStockOnReinstate), anything else only records
// history. Setting the current status is a no-op.
func (s *Service) UpdateOrderStatus(ctx context.Context, id identity.Identity, orderID int64, status string) (*orders.Order, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}
	next, err := orders.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	var out *orders.Order
	err = s.retry("update_status", func() error {
		return s.store.WithSalesTx(ctx, func(tx *storage.Sales) error {
			o, err := tx.Orders.Get(ctx, orderID)
			if err != nil {
				return err
			}
			prev := o.Status
			if prev == next {
				out = o
				return nil
			}

			switch {
			case next == orders.StatusCancelled:
				if err := stock.CreditAll(ctx, tx.Stock, o.Movements()); err != nil {
					return fmt.Errorf("credit cancelled order: %w", err)
				}
			case prev == orders.StatusCancelled:
				if err := s.reinstate(ctx, tx, o); err != nil {
					return err
				}
			}

			o.SetStatus(next, s.now())
			if err := tx.Orders.Save(ctx, o); err != nil {
				return err
			}
			out = o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("order status changed", "order_id", orderID, "status", out.Status)
	return out, nil
}

// reinstate takes stock again for an order leaving cancelled.
func (s *Service) reinstate(ctx context.Context, tx *storage.Sales, o *orders.Order) error {
	names := itemNames(o)
	for _, m := range o.Movements() {
		ok, err := tx.Stock.CheckAvailable(ctx, m.Ref, m.Quantity)
		if err != nil && !errors.Is(err, stock.ErrUnknownItem) {
			return err
		}
		if !ok {
			return short(ErrInsufficientStockOnReinstate, names[m.Ref], m.Quantity, s.onHand(ctx, tx, m.Ref))
		}
	}

	if _, err := stock.DebitAll(ctx, tx.Stock, o.Movements()); err != nil {
		var shortage *stock.ShortageError
		if errors.As(err, &shortage) {
			return short(ErrInsufficientStockOnReinstate, names[shortage.Ref], shortage.Requested, s.onHand(ctx, tx, shortage.Ref))
		}
		return err
	}
	return nil
}

// UpdateOrderItemQuantity corrects one line of a placed order. Stock moves
// by the difference unless the order is cancelled. A quantity of zero or
// less removes the line; removing the last line deletes the order, which is
// then returned as nil.
func (s *Service) UpdateOrderItemQuantity(ctx context.Context, id identity.Identity, orderID int64, index, qty int) (*orders.Order, error) {
	return s.correctItem(ctx, id, orderID, index, "update_order_item", func(o *orders.Order) error {
		return o.SetItemQuantity(s.pricing, index, qty)
	})
}

func (s *Service) RemoveOrderItem(ctx context.Context, id identity.Identity, orderID int64, index int) (*orders.Order, error) {
	return s.correctItem(ctx, id, orderID, index, "remove_order_item", func(o *orders.Order) error {
		return o.RemoveItem(index)
	})
}

func (s *Service) correctItem(ctx context.Context, id identity.Identity, orderID int64, index int, op string, apply func(o *orders.Order) error) (*orders.Order, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}

	var out *orders.Order
	err := s.retry(op, func() error {
		out = nil
		return s.store.WithSalesTx(ctx, func(tx *storage.Sales) error {
			o, err := tx.Orders.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if _, ok := o.Item(index); !ok {
				return ErrItemNotFound
			}
			names := itemNames(o)

			before := o.Movements()
			if err := apply(o); err != nil {
				return err
			}

			if o.Status != orders.StatusCancelled {
				debit, credit := stock.Diff(before, o.Movements())
				if err := stock.CreditAll(ctx, tx.Stock, credit); err != nil {
					return fmt.Errorf("credit corrected item: %w", err)
				}
				if _, err := s.debit(ctx, tx, names, debit); err != nil {
					return err
				}
			}

			if len(o.Items) == 0 {
				return tx.Orders.Delete(ctx, o.ID)
			}
			if err := tx.Orders.Save(ctx, o); err != nil {
				return err
			}
			out = o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if out == nil {
		s.logger.Infow("order emptied and deleted", "order_id", orderID)
	}
	return out, nil
}

// DeleteOrder returns whatever stock the order still holds and removes it.
// Cancelled orders hold nothing.
func (s *Service) DeleteOrder(ctx context.Context, id identity.Identity, orderID int64) error {
	if !id.IsAdmin() {
		return ErrForbidden
	}

	err := s.retry("delete_order", func() error {
		return s.store.WithSalesTx(ctx, func(tx *storage.Sales) error {
			o, err := tx.Orders.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if o.Status != orders.StatusCancelled {
				if err := stock.CreditAll(ctx, tx.Stock, o.Movements()); err != nil {
					return fmt.Errorf("credit deleted order: %w", err)
				}
			}
			return tx.Orders.Delete(ctx, o.ID)
		})
	})
	if err != nil {
		return err
	}

	s.logger.Infow("order deleted", "order_id", orderID)
	return nil
}

// checkOrderItems re-validates every line of a new order: the referenced
// records must still exist and be active, and merged demand must be on
// hand.
func (s *Service) checkOrderItems(ctx context.Context, tx *storage.Sales, o *orders.Order) error {
	for _, it := range o.Items {
		switch it.Type {
		case carts.ItemFlower:
			if it.ProductID == nil {
				return unavailable(ErrProductUnavailable, it.Name)
			}
			p, err := tx.Catalog.GetProduct(ctx, *it.ProductID)
			if errors.Is(err, catalog.ErrProductNotFound) || (err == nil && !p.IsActive) {
				return unavailable(ErrProductUnavailable, it.Name)
			}
			if err != nil {
				return err
			}
			if it.Wrapper != nil {
				w, err := tx.Catalog.GetWrapper(ctx, it.Wrapper.WrapperID)
				if errors.Is(err, catalog.ErrWrapperNotFound) || (err == nil && !w.IsActive) {
					return unavailable(ErrWrapperUnavailable, it.Wrapper.Name)
				}
				if err != nil {
					return err
				}
			}
		case carts.ItemAddon:
			if it.AddonID == nil {
				return unavailable(ErrAddonUnavailable, it.Name)
			}
			a, err := tx.Catalog.GetAddon(ctx, *it.AddonID)
			if errors.Is(err, catalog.ErrAddonNotFound) || (err == nil && !a.IsActive) {
				return unavailable(ErrAddonUnavailable, it.Name)
			}
			if err != nil {
				return err
			}
		}
	}

	names := itemNames(o)
	for _, m := range o.Movements() {
		ok, err := tx.Stock.CheckAvailable(ctx, m.Ref, m.Quantity)
		if err != nil {
			return fmt.Errorf("check stock %s: %w", m.Ref, err)
		}
		if !ok {
			return short(sentinelFor(m.Ref), names[m.Ref], m.Quantity, s.onHand(ctx, tx, m.Ref))
		}
	}
	return nil
}

// debit takes stock for ms. A concurrent order that got there first
// surfaces as an UnavailableError naming the item it drained.
func (s *Service) debit(ctx context.Context, tx *storage.Sales, names map[stock.Ref]string, ms []stock.Movement) (map[stock.Ref]int, error) {
	if len(ms) == 0 {
		return map[stock.Ref]int{}, nil
	}
	remaining, err := stock.DebitAll(ctx, tx.Stock, ms)
	if err != nil {
		var shortage *stock.ShortageError
		if errors.As(err, &shortage) {
			return nil, short(sentinelFor(shortage.Ref), names[shortage.Ref], shortage.Requested, s.onHand(ctx, tx, shortage.Ref))
		}
		return nil, fmt.Errorf("debit stock: %w", err)
	}
	return remaining, nil
}

// onHand is best effort; it only feeds error messages.
func (s *Service) onHand(ctx context.Context, tx *storage.Sales, ref stock.Ref) int {
	switch ref.Kind {
	case stock.KindProduct:
		if p, err := tx.Catalog.GetProduct(ctx, ref.ID); err == nil {
			return p.Quantity
		}
	case stock.KindWrapper:
		if w, err := tx.Catalog.GetWrapper(ctx, ref.ID); err == nil {
			return w.Quantity
		}
	case stock.KindAddon:
		if a, err := tx.Catalog.GetAddon(ctx, ref.ID); err == nil {
			return a.Quantity
		}
	}
	return 0
}

func sentinelFor(ref stock.Ref) error {
	switch ref.Kind {
	case stock.KindWrapper:
		return ErrWrapperUnavailable
	case stock.KindAddon:
		return ErrAddonUnavailable
	default:
		return ErrProductUnavailable
	}
}

func itemNames(o *orders.Order) map[stock.Ref]string {
	names := make(map[stock.Ref]string, len(o.Items))
	for _, it := range o.Items {
		switch {
		case it.ProductID != nil:
			names[stock.Product(*it.ProductID)] = it.Name
		case it.AddonID != nil:
			names[stock.Addon(*it.AddonID)] = it.Name
		}
		if it.Wrapper != nil {
			names[stock.Wrapper(it.Wrapper.WrapperID)] = it.Wrapper.Name
		}
	}
	return names
}
