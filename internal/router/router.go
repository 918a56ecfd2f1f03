// Package router mounts the HTTP surface onto an Echo instance.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/resource-booking/internal/config"
	"github.com/iliyamo/resource-booking/internal/handler"
	"github.com/iliyamo/resource-booking/internal/middleware"
	"github.com/iliyamo/resource-booking/internal/model"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Booking   *handler.BookingHandler
	Resource  *handler.ResourceHandler
	Category  *handler.CategoryHandler
	AdminUser *handler.AdminUserHandler
	Analytics *handler.AnalyticsHandler
}

// Register mounts all routes.  Public reads go through the Redis response
// cache; every route shares the token-bucket rate limiter; booking and
// admin groups layer JWT auth and role checks on top.
func Register(e *echo.Echo, cfg config.Config, db *sql.DB, rdb *redis.Client, h Handlers) {
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORS())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	e.GET("/healthz", handler.Health(db))

	v1 := e.Group("/v1")

	// Public catalog reads, served through the response cache.
	cached := v1.Group("", middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	cached.GET("/resources", h.Resource.List)
	cached.GET("/resources/:id", h.Resource.Get)
	cached.GET("/categories", h.Category.List)

	auth := v1.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Authenticated surface for any signed-in account.
	user := v1.Group("", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	user.GET("/auth/me", h.Auth.Me)
	user.PUT("/auth/me", h.Auth.UpdateDetails)
	user.PUT("/auth/password", h.Auth.ChangePassword)

	user.POST("/bookings", h.Booking.Create)
	user.GET("/bookings", h.Booking.List)
	user.GET("/bookings/:id", h.Booking.Get)
	user.PUT("/bookings/:id", h.Booking.Update)
	user.DELETE("/bookings/:id", h.Booking.Cancel)
	user.PUT("/bookings/:id/rsvp", h.Booking.RSVP)
	user.POST("/bookings/:id/attachment", h.Booking.UploadAttachment)

	user.GET("/users", h.AdminUser.List) // attendee picker
	user.GET("/analytics/me", h.Analytics.UserStats)

	// Admin surface.
	admin := v1.Group("/admin", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(model.RoleAdmin))
	admin.GET("/bookings", h.Booking.ListAll)
	admin.GET("/resources", h.Resource.ListAll)
	admin.POST("/resources", h.Resource.Create)
	admin.PUT("/resources/:id", h.Resource.Update)
	admin.DELETE("/resources/:id", h.Resource.Delete)
	admin.POST("/categories", h.Category.Create)
	admin.PUT("/categories/:id", h.Category.Update)
	admin.DELETE("/categories/:id", h.Category.Delete)
	admin.POST("/users", h.AdminUser.Create)
	admin.PUT("/users/:id", h.AdminUser.Update)
	admin.GET("/analytics/stats", h.Analytics.AdminStats)
}
