package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// AddItemInput holds the parameters for adding a line to the cart.
type AddItemInput struct {
	ProductID         string           `json:"product_id" validate:"notblank"`
	Name              string           `json:"name" validate:"notblank"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	OriginalUnitPrice *decimal.Decimal `json:"original_unit_price,omitempty"`
	Quantity          int              `json:"quantity"`
	ImageURL          string           `json:"image_url"`
}

// CartView is the cart together with its derived figures, priced for
// standard shipping.
type CartView struct {
	Cart      *domain.Cart            `json:"cart"`
	ItemCount int                     `json:"item_count"`
	Pricing   domain.PricingBreakdown `json:"pricing"`
}

// CartService implements the business logic for cart operations.
type CartService struct {
	carts     repository.CartRepository
	wishlists repository.WishlistRepository
	products  catalog.Lookup
	discounts *domain.DiscountCatalog
	engine    *domain.PricingEngine
	producer  *event.Producer
	notifier  notify.Sink
	locks     *ShopperLocks
	logger    *slog.Logger
	maxLines  int
	now       func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(
	carts repository.CartRepository,
	wishlists repository.WishlistRepository,
	products catalog.Lookup,
	discounts *domain.DiscountCatalog,
	engine *domain.PricingEngine,
	producer *event.Producer,
	notifier notify.Sink,
	locks *ShopperLocks,
	logger *slog.Logger,
	maxLines int,
) *CartService {
	return &CartService{
		carts:     carts,
		wishlists: wishlists,
		products:  products,
		discounts: discounts,
		engine:    engine,
		producer:  producer,
		notifier:  notifier,
		locks:     locks,
		logger:    logger,
		maxLines:  maxLines,
		now:       time.Now,
	}
}

// GetCart returns the shopper's cart. A shopper without a stored cart gets an
// empty one.
func (s *CartService) GetCart(ctx context.Context, shopperID string) (*CartView, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	cart, err := s.load(ctx, shopperID)
	if err != nil {
		return nil, err
	}
	return s.view(cart), nil
}

// AddItem merges the line into the cart. A zero quantity means one.
func (s *CartService) AddItem(ctx context.Context, shopperID string, input AddItemInput) (*CartView, error) {
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	item := domain.CartItem{
		ProductID:         input.ProductID,
		Name:              input.Name,
		UnitPrice:         input.UnitPrice,
		OriginalUnitPrice: input.OriginalUnitPrice,
		Quantity:          input.Quantity,
		ImageURL:          input.ImageURL,
	}
	view, err := s.mutate(ctx, shopperID, "add_item", func(c *domain.Cart) error {
		return c.AddItem(item, s.maxLines)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, shopperID, notify.KindSuccess, fmt.Sprintf("%s added to your cart", item.Name))
	return view, nil
}

// AddProduct resolves productID through the catalog and adds one unit of it.
func (s *CartService) AddProduct(ctx context.Context, shopperID, productID string) (*CartView, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		s.notify(ctx, shopperID, notify.KindError, "the product could not be added to your cart")
		return nil, fmt.Errorf("lookup product %s: %w", productID, err)
	}
	return s.AddItem(ctx, shopperID, AddItemInput{
		ProductID:         product.ID,
		Name:              product.Name,
		UnitPrice:         product.Price,
		OriginalUnitPrice: product.OriginalPrice,
		Quantity:          1,
		ImageURL:          product.ImageURL,
	})
}

// SetQuantity replaces the quantity of a line.
func (s *CartService) SetQuantity(ctx context.Context, shopperID, productID string, quantity int) (*CartView, error) {
	return s.mutate(ctx, shopperID, "set_quantity", func(c *domain.Cart) error {
		return c.SetQuantity(productID, quantity)
	})
}

// IncreaseQuantity adds one unit to a line.
func (s *CartService) IncreaseQuantity(ctx context.Context, shopperID, productID string) (*CartView, error) {
	return s.mutate(ctx, shopperID, "increase", func(c *domain.Cart) error {
		return c.Increase(productID)
	})
}

// DecreaseQuantity removes one unit from a line.
func (s *CartService) DecreaseQuantity(ctx context.Context, shopperID, productID string) (*CartView, error) {
	return s.mutate(ctx, shopperID, "decrease", func(c *domain.Cart) error {
		return c.Decrease(productID)
	})
}

// RemoveItem deletes a line. Removing an absent product leaves the cart as is.
func (s *CartService) RemoveItem(ctx context.Context, shopperID, productID string) (*CartView, error) {
	var removed domain.CartItem
	var ok bool
	view, err := s.mutate(ctx, shopperID, "remove_item", func(c *domain.Cart) error {
		removed, ok = c.RemoveItem(productID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ok {
		s.notify(ctx, shopperID, notify.KindInfo, fmt.Sprintf("%s removed from your cart", removed.Name))
	}
	return view, nil
}

// ClearCart empties the cart and drops its discount.
func (s *CartService) ClearCart(ctx context.Context, shopperID string) (*CartView, error) {
	view, err := s.mutate(ctx, shopperID, "clear", func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.producer.PublishCartCleared(ctx, shopperID); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish cart cleared event", slog.String("error", err.Error()))
	}
	return view, nil
}

// ApplyDiscount resolves code and attaches it to the cart.
func (s *CartService) ApplyDiscount(ctx context.Context, shopperID, code string) (*CartView, error) {
	dc, err := s.discounts.Resolve(code)
	if err != nil {
		discountsApplied.WithLabelValues(unknownCodeLabel, "invalid").Inc()
		s.notify(ctx, shopperID, notify.KindError, "invalid discount code")
		return nil, err
	}

	view, err := s.mutate(ctx, shopperID, "apply_discount", func(c *domain.Cart) error {
		return c.Apply(dc)
	})
	discountsApplied.WithLabelValues(dc.Code, outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	if err := s.producer.PublishDiscountApplied(ctx, shopperID, dc.Code); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish discount applied event", slog.String("error", err.Error()))
	}
	s.notify(ctx, shopperID, notify.KindSuccess, dc.Message)
	return view, nil
}

// RemoveDiscount detaches the applied discount.
func (s *CartService) RemoveDiscount(ctx context.Context, shopperID string) (*CartView, error) {
	return s.mutate(ctx, shopperID, "remove_discount", func(c *domain.Cart) error {
		c.RemoveDiscount()
		return nil
	})
}

// MoveToWishlist saves the line to the wishlist, unless it is already there,
// and removes it from the cart.
func (s *CartService) MoveToWishlist(ctx context.Context, shopperID, productID string) (*CartView, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	unlock := s.locks.Lock(shopperID)
	defer unlock()

	cart, err := s.load(ctx, shopperID)
	if err != nil {
		return nil, err
	}
	idx := cart.FindItemIndex(productID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item", productID)
	}

	wishlist, err := loadWishlist(ctx, s.wishlists, shopperID)
	if err != nil {
		return nil, err
	}
	if wishlist.Add(domain.WishlistItemFromCart(cart.Items[idx])) {
		wishlist.UpdatedAt = s.now().UTC()
		if err := s.wishlists.Save(ctx, wishlist); err != nil {
			return nil, fmt.Errorf("save wishlist: %w", err)
		}
	}

	removed, _ := cart.RemoveItem(productID)
	if err := s.save(ctx, cart, "move_to_wishlist"); err != nil {
		return nil, err
	}
	s.notify(ctx, shopperID, notify.KindSuccess, fmt.Sprintf("%s moved to your wishlist", removed.Name))
	return s.view(cart), nil
}

// mutate loads the cart under the shopper lock, applies fn and saves the
// result. Nothing is saved when fn fails.
func (s *CartService) mutate(ctx context.Context, shopperID, op string, fn func(*domain.Cart) error) (*CartView, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	unlock := s.locks.Lock(shopperID)
	defer unlock()

	cart, err := s.load(ctx, shopperID)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		cartOperations.WithLabelValues(op, "rejected").Inc()
		return nil, err
	}
	if err := s.save(ctx, cart, op); err != nil {
		return nil, err
	}
	return s.view(cart), nil
}

func (s *CartService) load(ctx context.Context, shopperID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, shopperID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(shopperID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart, op string) error {
	cart.Version++
	cart.UpdatedAt = s.now().UTC()
	if err := s.carts.Save(ctx, cart); err != nil {
		cartOperations.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("save cart: %w", err)
	}
	cartOperations.WithLabelValues(op, "ok").Inc()

	s.log(ctx).InfoContext(ctx, "cart updated",
		slog.String("operation", op),
		slog.String("shopper_id", cart.ShopperID),
		slog.Int("item_count", cart.ItemCount()),
		slog.Int("version", cart.Version),
	)

	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish cart updated event",
			slog.String("shopper_id", cart.ShopperID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (s *CartService) view(cart *domain.Cart) *CartView {
	return &CartView{
		Cart:      cart,
		ItemCount: cart.ItemCount(),
		Pricing:   s.engine.ComputeCart(cart, domain.ShippingStandard).Rounded(),
	}
}

func (s *CartService) notify(ctx context.Context, shopperID string, kind notify.Kind, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, shopperID, kind, message); err != nil {
		s.log(ctx).WarnContext(ctx, "notification not delivered", slog.String("error", err.Error()))
	}
}

func (s *CartService) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, s.logger)
}

func loadWishlist(ctx context.Context, repo repository.WishlistRepository, shopperID string) (*domain.Wishlist, error) {
	w, err := repo.Get(ctx, shopperID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewWishlist(shopperID), nil
		}
		return nil, fmt.Errorf("get wishlist: %w", err)
	}
	return w, nil
}
