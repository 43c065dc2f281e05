// Package notifications tells the shop about new orders and stock running
// low, by email and by push to the admin devices.
package notifications

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"bloom/internal/domain/orders"
	"bloom/internal/domain/stock"
	"bloom/internal/mailer"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LowStockThreshold is the highest remaining quantity that still triggers
// a low-stock notice. Zero does not: sold-out items are deactivated.
const LowStockThreshold = 3

type LowStockItem struct {
	Ref       stock.Ref
	Name      string
	Remaining int
}

type Notifier interface {
	OrderPlaced(ctx context.Context, o *orders.Order) error
	LowStock(ctx context.Context, o *orders.Order, items []LowStockItem) error
}

type OrderPlacedData struct {
	OrderNumber   string
	CustomerName  string
	Phone         string
	Email         string
	Address       string
	PaymentMethod string
	Comments      string
	Items         []orders.Item
	TotalCents    int64
}

type LowStockData struct {
	OrderNumber string
	Items       []LowStockItem
}

type Config struct {
	ShopName    string
	ShopEmail   string
	AdminTokens []string
	Timeout     time.Duration
}

// Dispatcher fans every notice out to email and push concurrently. Either
// channel may be nil.
type Dispatcher struct {
	mail   mailer.Client
	push   PushSender
	cfg    Config
	logger *zap.SugaredLogger
}

func NewDispatcher(mail mailer.Client, push PushSender, cfg Config, logger *zap.SugaredLogger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Dispatcher{mail: mail, push: push, cfg: cfg, logger: logger}
}

func (d *Dispatcher) OrderPlaced(ctx context.Context, o *orders.Order) error {
	data := OrderPlacedData{
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.Delivery.Name,
		Phone:         o.Delivery.Phone,
		Email:         o.Delivery.Email,
		Address:       o.Delivery.Address,
		PaymentMethod: o.Delivery.PaymentMethod,
		Comments:      o.Delivery.Comments,
		Items:         o.Items,
		TotalCents:    o.TotalAmountCents,
	}
	title := "New Order"
	body := fmt.Sprintf("%s placed order %s (%d items)", o.Delivery.Name, o.OrderNumber, len(o.Items))

	return d.fanOut(ctx, mailer.OrderPlacedTemplate, data, title, body, map[string]string{
		"type":    "order",
		"orderId": strconv.FormatInt(o.ID, 10),
		"screen":  "admin-orders-screen",
	})
}

func (d *Dispatcher) LowStock(ctx context.Context, o *orders.Order, items []LowStockItem) error {
	if len(items) == 0 {
		return nil
	}
	data := LowStockData{OrderNumber: o.OrderNumber, Items: items}
	title := "Low Stock"
	body := fmt.Sprintf("%s has %d left", items[0].Name, items[0].Remaining)
	if len(items) > 1 {
		body = fmt.Sprintf("%d items are almost sold out", len(items))
	}

	return d.fanOut(ctx, mailer.LowStockTemplate, data, title, body, map[string]string{
		"type":   "low_stock",
		"screen": "admin-inventory-screen",
	})
}

func (d *Dispatcher) fanOut(ctx context.Context, tmpl string, data any, title, body string, pushData map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if d.mail != nil && d.cfg.ShopEmail != "" {
		g.Go(func() error {
			if _, err := d.mail.Send(tmpl, d.cfg.ShopName, d.cfg.ShopEmail, data); err != nil {
				return fmt.Errorf("email %s: %w", tmpl, err)
			}
			return nil
		})
	}

	if d.push != nil && len(d.cfg.AdminTokens) > 0 {
		g.Go(func() error {
			if _, err := d.push.Publish(ctx, messages(d.cfg.AdminTokens, title, body, pushData)); err != nil {
				return fmt.Errorf("push %s: %w", title, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		d.logger.Errorw("notification failed", "template", tmpl, "error", err)
		return err
	}
	return nil
}

// LowStockItems picks the refs whose remaining quantity is in
// [1, LowStockThreshold] after a debit.
func LowStockItems(remaining map[stock.Ref]int, names map[stock.Ref]string) []LowStockItem {
	var out []LowStockItem
	for ref, left := range remaining {
		if left >= 1 && left <= LowStockThreshold {
			out = append(out, LowStockItem{Ref: ref, Name: names[ref], Remaining: left})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.String() < out[j].Ref.String() })
	return out
}
