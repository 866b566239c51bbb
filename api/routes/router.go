package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/marketplace-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/webhooks"
	"github.com/angelmondragon/marketplace-backend/api/middleware"
	"github.com/angelmondragon/marketplace-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	stripewebhook "github.com/angelmondragon/marketplace-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/redis"
)

const checkoutSessionPolicy = "checkout_session"

// RedisStore is the slice of the redis client the HTTP surface needs.
type RedisStore interface {
	redis.Pinger
	redis.IdempotencyStore
	redis.RateLimiter
}

type signingSecretSource interface {
	SigningSecret() string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	metricsHandler http.Handler,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	stripeClient signingSecretSource,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Checkout.ClientURL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisStore,
		}))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	sessionPolicy := middleware.RateLimitPolicy{
		Name:   checkoutSessionPolicy,
		Window: cfg.Checkout.SessionRateWindow,
		Limit:  cfg.Checkout.SessionRateLimit,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Post("/", cartcontrollers.CartAddItem(cartService, logg))
			r.Put("/{productId}", cartcontrollers.CartSetQuantity(cartService, logg))
			r.Delete("/{productId}", cartcontrollers.CartRemoveItem(cartService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.With(middleware.UserRateLimit(sessionPolicy, redisStore, logg)).
				Post("/create-session", controllers.CheckoutCreateSession(checkoutService, logg))
			r.Post("/fulfill", controllers.CheckoutFulfill(checkoutService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.ListMine(ordersService, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleProvider)).
				Get("/provider", ordercontrollers.ProviderItems(ordersService, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleProvider, enums.UserRoleAdmin)).
				Patch("/items/{itemId}", ordercontrollers.UpdateItemStatus(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
		})
	})

	return r
}
