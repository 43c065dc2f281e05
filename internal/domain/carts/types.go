package carts

import (
	"context"
	"errors"
	"time"

	"bloom/internal/domain/catalog"
	"bloom/internal/domain/pricing"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrCartExists      = errors.New("cart already exists for owner")
	ErrItemNotFound    = errors.New("item not found")
	ErrVersionConflict = errors.New("cart was modified concurrently")
	ErrInvalidOwner    = errors.New("cart owner must be exactly one of user or session")
	ErrInvalidItemType = errors.New("item type must be flower or addon")
)

type ItemType string

const (
	ItemFlower ItemType = "flower"
	ItemAddon  ItemType = "addon"
)

func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemFlower, ItemAddon:
		return ItemType(s), nil
	}
	return "", ErrInvalidItemType
}

// Owner keys a cart. Exactly one of the fields is set.
type Owner struct {
	UserID    *int64  `json:"user_id,omitempty"`
	SessionID *string `json:"session_id,omitempty"`
}

func UserOwner(id int64) Owner          { return Owner{UserID: &id} }
func SessionOwner(session string) Owner { return Owner{SessionID: &session} }

func (o Owner) Valid() bool {
	if o.UserID != nil {
		return o.SessionID == nil
	}
	return o.SessionID != nil && *o.SessionID != ""
}

func (o Owner) IsGuest() bool { return o.UserID == nil && o.SessionID != nil }

// Key is a stable string form, used for map keys and logs.
func (o Owner) Key() string {
	if o.UserID != nil {
		return "user:" + itoa(*o.UserID)
	}
	if o.SessionID != nil {
		return "session:" + *o.SessionID
	}
	return ""
}

type FlowerItem struct {
	ID                 string                   `json:"id"`
	ProductID          int64                    `json:"product_id"`
	Name               string                   `json:"name"`
	Kind               catalog.FlowerKind       `json:"flower_type"`
	Quantity           int                      `json:"quantity"`
	SelectedColor      *string                  `json:"selected_color,omitempty"`
	SelectedStemLength *string                  `json:"selected_stem_length,omitempty"`
	UnitPriceCents     int64                    `json:"unit_price_cents"`
	Image              string                   `json:"image"`
	Wrapper            *pricing.WrapperSnapshot `json:"wrapper,omitempty"`
	LineTotalCents     int64                    `json:"line_total_cents"`
}

type AddonItem struct {
	ID             string `json:"id"`
	AddonID        int64  `json:"addon_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Image          string `json:"image,omitempty"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// Variant is a re-resolved color / stem-length selection for a flower line.
type Variant struct {
	Color          *string
	StemLength     *string
	UnitPriceCents int64
	Image          string
}

type Store interface {
	GetByOwner(ctx context.Context, owner Owner) (*Cart, error)
	GetByID(ctx context.Context, id int64) (*Cart, error)
	// Create inserts c and fills its ID, Version and timestamps. It returns
	// ErrCartExists when the owner already holds a cart.
	Create(ctx context.Context, c *Cart) error
	// Save writes c if nobody saved it since it was loaded and bumps its
	// Version; otherwise it returns ErrVersionConflict.
	Save(ctx context.Context, c *Cart) error
	PurgeExpiredGuests(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context, limit, offset int) ([]*Cart, int, error)
}
