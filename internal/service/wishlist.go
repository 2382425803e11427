package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// WishlistService manages saved products.
type WishlistService struct {
	repo   repository.WishlistRepository
	locks  *ShopperLocks
	logger *slog.Logger
	now    func() time.Time
}

// NewWishlistService creates a new wishlist service.
func NewWishlistService(repo repository.WishlistRepository, locks *ShopperLocks, logger *slog.Logger) *WishlistService {
	return &WishlistService{repo: repo, locks: locks, logger: logger, now: time.Now}
}

// Get returns the shopper's wishlist, empty when none is stored.
func (s *WishlistService) Get(ctx context.Context, shopperID string) (*domain.Wishlist, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	return loadWishlist(ctx, s.repo, shopperID)
}

// Add saves item. Adding a product that is already saved changes nothing.
func (s *WishlistService) Add(ctx context.Context, shopperID string, item domain.WishlistItem) (*domain.Wishlist, error) {
	if item.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	return s.update(ctx, shopperID, func(w *domain.Wishlist) bool { return w.Add(item) })
}

// Remove drops productID from the wishlist.
func (s *WishlistService) Remove(ctx context.Context, shopperID, productID string) (*domain.Wishlist, error) {
	return s.update(ctx, shopperID, func(w *domain.Wishlist) bool { return w.Remove(productID) })
}

func (s *WishlistService) update(ctx context.Context, shopperID string, fn func(*domain.Wishlist) bool) (*domain.Wishlist, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	unlock := s.locks.Lock(shopperID)
	defer unlock()

	w, err := loadWishlist(ctx, s.repo, shopperID)
	if err != nil {
		return nil, err
	}
	if !fn(w) {
		return w, nil
	}
	w.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, w); err != nil {
		return nil, fmt.Errorf("save wishlist: %w", err)
	}
	logger.WithContext(ctx, s.logger).InfoContext(ctx, "wishlist updated",
		slog.String("shopper_id", shopperID),
		slog.Int("items", len(w.Items)),
	)
	return w, nil
}
