// Package sales runs the cart, checkout and order lifecycle on top of the
// catalog, pricing and stock packages. Every operation takes the caller's
// identity explicitly.
package sales

import (
	"context"
	"fmt"
	"time"

	"bloom/internal/domain/catalog"
	"bloom/internal/domain/pricing"
	"bloom/internal/domain/storage"
	"bloom/internal/media"
	"bloom/internal/notifications"

	"go.uber.org/zap"
)

// maxAttempts bounds retries of a unit of work that lost an optimistic
// version race.
const maxAttempts = 3

const DefaultGuestCartTTL = 24 * time.Hour

type Config struct {
	GuestCartTTL time.Duration
}

type Service struct {
	store    storage.Provider
	pricing  *pricing.Engine
	images   media.Resolver
	notifier notifications.Notifier
	logger   *zap.SugaredLogger
	cartTTL  time.Duration
	now      func() time.Time
}

func NewService(
	store storage.Provider,
	engine *pricing.Engine,
	images media.Resolver,
	notifier notifications.Notifier,
	logger *zap.SugaredLogger,
	cfg Config,
) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if engine == nil {
		engine = pricing.NewEngine(logger)
	}
	if images == nil {
		images = media.Passthrough{}
	}
	if cfg.GuestCartTTL <= 0 {
		cfg.GuestCartTTL = DefaultGuestCartTTL
	}
	return &Service{
		store:    store,
		pricing:  engine,
		images:   images,
		notifier: notifier,
		logger:   logger,
		cartTTL:  cfg.GuestCartTTL,
		now:      time.Now,
	}
}

// retry reruns fn while it fails on a version conflict.
func (s *Service) retry(op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !isConflict(err) {
			return err
		}
		if attempt == maxAttempts {
			s.logger.Warnw("giving up after version conflicts", "op", op, "attempts", attempt)
			return ErrConcurrentUpdate
		}
		s.logger.Infow("version conflict, retrying", "op", op, "attempt", attempt)
	}
}

// ListProducts is the storefront listing: active products only.
func (s *Service) ListProducts(ctx context.Context, limit, offset int) ([]*catalog.Product, int, error) {
	products, total, err := s.store.Repos().Catalog.ListProducts(ctx, true, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range products {
		for i, img := range p.Images {
			p.Images[i] = s.images.URL(img)
		}
		for i := range p.Colors {
			for j, img := range p.Colors[i].Images {
				p.Colors[i].Images[j] = s.images.URL(img)
			}
		}
	}
	return products, total, nil
}

// PurgeExpiredGuestCarts deletes guest carts idle past their TTL.
func (s *Service) PurgeExpiredGuestCarts(ctx context.Context) (int64, error) {
	n, err := s.store.Repos().Carts.PurgeExpiredGuests(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge guest carts: %w", err)
	}
	return n, nil
}

// DeactivateSoldOut hides every catalog record whose quantity reached zero.
func (s *Service) DeactivateSoldOut(ctx context.Context) (int64, error) {
	n, err := s.store.Repos().Catalog.DeactivateSoldOut(ctx)
	if err != nil {
		return 0, fmt.Errorf("deactivate sold out: %w", err)
	}
	return n, nil
}
