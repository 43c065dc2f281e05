package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrWrapperNotFound = errors.New("wrapper not found")
	ErrAddonNotFound   = errors.New("addon not found")
)

// FlowerKind decides how a wrapper is charged on a flower line.
type FlowerKind string

const (
	KindSingle  FlowerKind = "single"
	KindBouquet FlowerKind = "bouquet"
)

func (k FlowerKind) Valid() bool {
	return k == KindSingle || k == KindBouquet
}

type ColorVariant struct {
	Name   string   `json:"name"`
	Value  string   `json:"value"`
	Images []string `json:"images,omitempty"`
}

type StemLength struct {
	Length     string `json:"length"`
	PriceCents int64  `json:"price_cents"`
}

type Product struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Kind        FlowerKind     `json:"kind"`
	PriceCents  int64          `json:"price_cents"`
	Colors      []ColorVariant `json:"colors,omitempty"`
	StemLengths []StemLength   `json:"stem_lengths,omitempty"`
	Images      []string       `json:"images,omitempty"`
	Quantity    int            `json:"quantity"`
	SoldCount   int            `json:"sold_count"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Color returns the named color variant, if the product offers it.
func (p *Product) Color(name string) (ColorVariant, bool) {
	for _, c := range p.Colors {
		if c.Name == name {
			return c, true
		}
	}
	return ColorVariant{}, false
}

// StemLength returns the stem-length variant matching length exactly.
func (p *Product) StemLength(length string) (StemLength, bool) {
	for _, s := range p.StemLengths {
		if s.Length == length {
			return s, true
		}
	}
	return StemLength{}, false
}

type Wrapper struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Quantity   int       `json:"quantity"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Addon struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	PriceCents int64     `json:"price_cents"`
	Quantity   int       `json:"quantity"`
	SoldCount  int       `json:"sold_count"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is the read side of the catalog. Quantities are only written
// through the stock ledger.
type Store interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetWrapper(ctx context.Context, id int64) (*Wrapper, error)
	GetAddon(ctx context.Context, id int64) (*Addon, error)
	ListProducts(ctx context.Context, activeOnly bool, limit, offset int) ([]*Product, int, error)

	// DeactivateSoldOut flags every catalog record with zero quantity as
	// inactive and reports how many rows changed.
	DeactivateSoldOut(ctx context.Context) (int64, error)
}
