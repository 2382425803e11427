package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/command"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

const serviceName = "storefront"

// Services bundles the application services the router exposes.
type Services struct {
	Cart       *service.CartService
	Checkout   *service.CheckoutService
	Orders     *service.OrderService
	Wishlist   *service.WishlistService
	Dispatcher *command.Dispatcher
}

// Options configures the cross-cutting HTTP policies.
type Options struct {
	CORS      middleware.CORSConfig
	RateLimit middleware.RateLimitConfig
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	svc Services,
	healthHandler *health.Handler,
	opts Options,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.CORS(opts.CORS))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	cartHandler := NewCartHandler(svc.Cart, logger)
	checkoutHandler := NewCheckoutHandler(svc.Checkout, svc.Orders, logger)
	orderHandler := NewOrderHandler(svc.Orders, logger)
	wishlistHandler := NewWishlistHandler(svc.Wishlist, logger)
	commandHandler := NewCommandHandler(svc.Dispatcher, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.AllowContentType("application/json"))
		r.Use(middleware.Shopper())
		r.Use(middleware.ShopperRateLimit(opts.RateLimit, logger))
		r.Use(middleware.RequestLogger(logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Post("/products/{productId}", cartHandler.AddProduct)
			r.Put("/items/{productId}", cartHandler.UpdateItemQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
			r.Post("/items/{productId}/increase", cartHandler.IncreaseItem)
			r.Post("/items/{productId}/decrease", cartHandler.DecreaseItem)
			r.Post("/items/{productId}/wishlist", cartHandler.MoveToWishlist)
			r.Post("/discount", cartHandler.ApplyDiscount)
			r.Delete("/discount", cartHandler.RemoveDiscount)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.Start)
			r.Get("/", checkoutHandler.Get)
			r.Put("/customer", checkoutHandler.UpdateCustomer)
			r.Put("/shipping-address", checkoutHandler.UpdateShippingAddress)
			r.Put("/shipping-method", checkoutHandler.SetShippingMethod)
			r.Put("/payment-method", checkoutHandler.SetPaymentMethod)
			r.Put("/card", checkoutHandler.SetCard)
			r.Put("/terms", checkoutHandler.AcceptTerms)
			r.Post("/step", checkoutHandler.GoToStep)
			r.Post("/place-order", checkoutHandler.PlaceOrder)
		})

		r.Get("/orders", orderHandler.ListOrders)
		r.Get("/orders/{orderId}", orderHandler.GetOrder)

		r.Get("/wishlist", wishlistHandler.Get)
		r.Post("/wishlist", wishlistHandler.Add)
		r.Delete("/wishlist/{productId}", wishlistHandler.Remove)

		r.Get("/commands", commandHandler.Intents)
		r.Post("/commands", commandHandler.Dispatch)
	})

	return r
}
