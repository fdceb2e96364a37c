package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/metrics"
	"github.com/iliyamo/studio-booking/internal/middleware"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	AdminAuth *handler.AdminAuthHandler
	Bookings  *handler.BookingHandler
	Sessions  *handler.SessionHandler
	Products  *handler.ProductHandler
	Orders    *handler.OrderHandler
	Payments  *handler.PaymentHandler
	Slots     *handler.SlotHandler
	Enquiries *handler.EnquiryHandler
	Events    *handler.EventHandler
	Blogs     *handler.BlogHandler
	Users     *handler.AdminUserHandler
}

// Options carries what the guards need: the signing secret, the principal
// lookup and the Redis-backed limiter and cache settings.  Redis may be
// nil; the limiter then runs in-process and caching is off.
type Options struct {
	JWTSecret      string
	Resolver       middleware.PrincipalResolver
	Redis          *redis.Client
	RateLimit      config.RateLimitConfig
	Cache          config.CacheConfig
	MetricsEnabled bool
}

// Register mounts the whole API on e.
func Register(e *echo.Echo, h Handlers, opt Options) {
	e.GET("/health", h.Health.Health)
	e.GET("/healthz", h.Health.Health)
	if opt.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	limit := middleware.NewTokenBucket(opt.RateLimit, opt.Redis)
	cached := middleware.NewRedisCache(opt.Cache, opt.Redis)
	purge := middleware.InvalidateCache(opt.Cache, opt.Redis)
	userOnly := middleware.RequireUser(opt.JWTSecret, opt.Resolver)
	adminOnly := middleware.RequireAdmin(opt.JWTSecret, opt.Resolver)

	api := e.Group("/api")

	registerAuth(api, h, limit, userOnly)
	registerPublic(api, h, limit, cached)
	registerCustomer(api.Group("", userOnly...), h, purge)

	// Administrator credential flows sit outside the admin guard.
	api.POST("/admin/register", h.AdminAuth.Register, limit)
	api.POST("/admin/login", h.AdminAuth.Login, limit)
	registerAdmin(api.Group("/admin", append(adminOnly, purge)...), h)
}

func registerAuth(api *echo.Group, h Handlers, limit echo.MiddlewareFunc, userOnly []echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", h.Auth.Register, limit)
	g.POST("/login", h.Auth.Login, limit)
	g.POST("/login-otp", h.Auth.LoginOTP, limit)
	g.POST("/verify-login-otp", h.Auth.VerifyLoginOTP, limit)
	g.GET("/verify-email", h.Auth.VerifyEmail, limit)
	g.POST("/resend-verification", h.Auth.ResendVerification, limit)
	g.POST("/logout", h.Auth.Logout)

	g.GET("/me", h.Auth.Me, userOnly...)
	g.PUT("/profile", h.Auth.UpdateProfile, userOnly...)
}

// registerPublic mounts the anonymous catalog.  Reads go through the
// response cache.
func registerPublic(api *echo.Group, h Handlers, limit, cached echo.MiddlewareFunc) {
	api.GET("/sessions", h.Sessions.List, cached)
	api.GET("/sessions/:id", h.Sessions.Get, cached)
	api.GET("/products", h.Products.List, cached)
	api.GET("/products/:id", h.Products.Get, cached)
	api.GET("/slots", h.Slots.List, cached)
	api.GET("/events", h.Events.List, cached)
	api.GET("/events/:id", h.Events.Get, cached)
	api.GET("/blogs", h.Blogs.List, cached)
	api.GET("/blogs/:slug", h.Blogs.GetBySlug, cached)

	api.POST("/enquiries", h.Enquiries.Create, limit)
}

// registerCustomer mounts the signed-in user's API.  Booking writes move
// booked_seats, which the cached session catalog shows, so they purge.
func registerCustomer(g *echo.Group, h Handlers, purge echo.MiddlewareFunc) {
	g.POST("/bookings", h.Bookings.Create, purge)
	g.GET("/bookings", h.Bookings.ListMine)
	g.POST("/bookings/:id/cancel", h.Bookings.CancelMine, purge)

	g.POST("/orders", h.Orders.Create)
	g.POST("/orders/instant", h.Orders.CreateInstant)
	g.GET("/orders", h.Orders.ListMine)

	g.POST("/payment/create-checkout", h.Payments.CreateCheckout)
	g.POST("/payment/verify-checkout", h.Payments.VerifyCheckout)
}

// registerAdmin mounts the administrator API.  Successful writes purge
// the public response cache.
func registerAdmin(g *echo.Group, h Handlers) {
	g.GET("/bookings", h.Bookings.AdminList)
	g.GET("/bookings/export", h.Bookings.AdminExport)
	g.PATCH("/bookings/:id/status", h.Bookings.AdminUpdateStatus)

	g.GET("/sessions", h.Sessions.List)
	g.POST("/sessions", h.Sessions.Create)
	g.PATCH("/sessions/:id", h.Sessions.Update)
	g.PUT("/sessions/:id", h.Sessions.Update)
	g.DELETE("/sessions/:id", h.Sessions.Delete)

	g.GET("/products", h.Products.List)
	g.POST("/products", h.Products.Create)
	g.PATCH("/products/:id", h.Products.Update)
	g.DELETE("/products/:id", h.Products.Delete)

	g.GET("/orders", h.Orders.AdminList)
	g.PATCH("/orders/:id/status", h.Orders.AdminUpdateStatus)

	g.GET("/slots", h.Slots.List)
	g.POST("/slots", h.Slots.Create)
	g.PATCH("/slots/:id", h.Slots.Update)
	g.DELETE("/slots/:id", h.Slots.Delete)

	g.GET("/enquiries", h.Enquiries.AdminList)
	g.PATCH("/enquiries/:id/status", h.Enquiries.AdminUpdateStatus)

	g.GET("/events", h.Events.List)
	g.POST("/events", h.Events.Create)
	g.PATCH("/events/:id", h.Events.Update)
	g.DELETE("/events/:id", h.Events.Delete)

	g.GET("/blogs", h.Blogs.AdminList)
	g.POST("/blogs", h.Blogs.Create)
	g.PATCH("/blogs/:id", h.Blogs.Update)
	g.DELETE("/blogs/:id", h.Blogs.Delete)

	g.GET("/users", h.Users.List)
	g.POST("/users", h.Users.Create)
	g.PATCH("/users/:id", h.Users.Update)
	g.DELETE("/users/:id", h.Users.Delete)
}
