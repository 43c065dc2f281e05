package orders

import (
	"context"
	"errors"
	"time"

	"bloom/internal/domain/carts"
	"bloom/internal/domain/catalog"
	"bloom/internal/domain/pricing"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrItemNotFound      = carts.ErrItemNotFound
	ErrInvalidTransition = errors.New("invalid order status")
	ErrVersionConflict   = errors.New("order was modified concurrently")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidTransition
}

type StatusChange struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type Delivery struct {
	Name          string `json:"name" validate:"required,max=120"`
	Address       string `json:"address" validate:"required,max=500"`
	Phone         string `json:"phone" validate:"required,max=40,phone"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash_on_delivery card bank_transfer"`
	Comments      string `json:"comments,omitempty" validate:"max=1000"`
}

// Item is one snapshotted line. Flower lines carry ProductID, addon lines
// carry AddonID.
type Item struct {
	Type               carts.ItemType           `json:"type"`
	ProductID          *int64                   `json:"product_id,omitempty"`
	AddonID            *int64                   `json:"addon_id,omitempty"`
	Name               string                   `json:"name"`
	Kind               catalog.FlowerKind       `json:"flower_type,omitempty"`
	Quantity           int                      `json:"quantity"`
	SelectedColor      *string                  `json:"selected_color,omitempty"`
	SelectedStemLength *string                  `json:"selected_stem_length,omitempty"`
	UnitPriceCents     int64                    `json:"unit_price_cents"`
	Image              string                   `json:"image,omitempty"`
	Wrapper            *pricing.WrapperSnapshot `json:"wrapper,omitempty"`
	LineTotalCents     int64                    `json:"line_total_cents"`
}

type Order struct {
	ID               int64          `json:"id"`
	OrderNumber      string         `json:"order_number"`
	Owner            carts.Owner    `json:"owner"`
	Items            []Item         `json:"items"`
	Delivery         Delivery       `json:"delivery"`
	Status           Status         `json:"status"`
	StatusHistory    []StatusChange `json:"status_history"`
	TotalAmountCents int64          `json:"total_amount_cents"`
	Version          int            `json:"version"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type Store interface {
	// Create inserts o, assigns its ID, OrderNumber, Version and timestamps.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	// Save writes o if its Version is current and bumps it; otherwise it
	// returns ErrVersionConflict.
	Save(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id int64) error
	ListByOwner(ctx context.Context, owner carts.Owner, limit, offset int) ([]*Order, int, error)
	// ListAll lists every order, newest first; an empty status means any.
	ListAll(ctx context.Context, status Status, limit, offset int) ([]*Order, int, error)
}
