package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-room-booking/internal/config"
	"github.com/iliyamo/hotel-room-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/hotel-room-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterPublicBooking registers the unauthenticated half of the booking
// pipeline: starting and extending a checkout, the payment gateway webhook
// and the read-only availability query.  Guests can book without an
// account, so these routes use the optional JWT middleware that attaches a
// user when a valid token is present but never rejects the request.  The
// availability route additionally sits behind the Redis response cache,
// and the whole group is rate limited.
func RegisterPublicBooking(e *echo.Echo, b *handler.BookingHandler, av *handler.AvailabilityHandler, jwtSecret string, rdb *redis.Client) {
	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	g := e.Group("/v1/bookings", rl)
	// Start a checkout: price the stay, place a hold and return a payment link.
	g.POST("/temp", b.CreateTempBooking, middleware.OptionalJWTAuth(jwtSecret))
	// Reset a hold's expiry window for users still mid-checkout.
	g.POST("/temp/:key/extend", b.ExtendHold)
	// Payment gateway callback.  Authentication is the HMAC signature on
	// the payload itself, not a JWT.
	g.POST("/payment/webhook", b.PaymentWebhook)

	// Availability is the hottest read path, so cache its responses.
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	e.GET("/v1/rooms/:id/availability", av.RoomAvailability, rl, cache)
}

// RegisterBooking registers the authenticated booking routes and applies
// the necessary middleware.  Customer-facing endpoints accept both roles;
// front-desk operations are restricted to administrators.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	// Create a group for routes that require a valid access token.  All
	// handlers registered on this group will execute the JWTAuth middleware
	// before being invoked.
	auth := e.Group("/v1/bookings")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN", "CUSTOMER"))
	// List the current user's bookings, newest first.
	auth.GET("/my-bookings", b.MyBookings)
	// Look up one booking by its shareable code.  Ownership is enforced in
	// the handler so administrators can read any booking.
	auth.GET("/code/:code", b.GetByCode)
	// Cancel a booking.  The refund follows the cancellation policy.
	auth.POST("/:id/cancel", b.Cancel)

	// Front-desk operations require the ADMIN role on top of a valid token.
	admin := e.Group("/v1/bookings")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/:id/check-in", b.CheckIn)
	admin.POST("/:id/check-out", b.CheckOut)
	// Manually finalize an order whose webhook was lost.  The handler
	// queries the gateway and only accepts a PAID order.
	admin.POST("/orders/:orderCode/confirm-manual", b.ConfirmManual)
}
