package router // package router wires handlers and middleware onto Echo

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/config"
	"github.com/iliyamo/equipment-rental/internal/handler"
	"github.com/iliyamo/equipment-rental/internal/middleware"
	"github.com/iliyamo/equipment-rental/internal/model"
)

// Deps bundles everything the route table needs.  Redis may be nil, in
// which case rate limiting runs in-process and caching is off.
type Deps struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Equipment *handler.EquipmentHandler
	Orders    *handler.OrderHandler

	Authenticator middleware.Authenticator
	Redis         *redis.Client
	RateLimit     config.RateLimitConfig
	Cache         config.CacheConfig

	MediaRoot   string // directory served as static files
	MediaPrefix string // URL prefix it is served under
	Log         *zap.Logger
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.MediaRoot != "" && d.MediaPrefix != "" {
		e.Static(d.MediaPrefix, d.MediaRoot)
	}
}

// RegisterAuth mounts the session endpoints.  Everything that hands out or
// checks a one-time code sits behind the rate limiter.
func RegisterAuth(e *echo.Echo, d Deps) {
	rl := middleware.RateLimit(d.RateLimit, d.Redis)
	e.POST("/register", d.Auth.Register, rl)
	e.POST("/login", d.Auth.Login, rl)
	e.POST("/verify", d.Auth.Verify, rl)
	e.POST("/forgot-password", d.Auth.ForgotPassword, rl)
	e.POST("/forgot-verify-otp", d.Auth.ForgotVerifyOTP, rl)
	e.POST("/reset-password", d.Auth.ResetPassword, rl)

	e.POST("/logout", d.Auth.Logout, middleware.TokenAuth(d.Authenticator, d.Log))
}

// RegisterProtected mounts the bearer-token API: profile, equipment,
// orders and the admin user endpoints.
func RegisterProtected(e *echo.Echo, d Deps) {
	auth := middleware.TokenAuth(d.Authenticator, d.Log)

	e.GET("/user/profile", d.Users.Profile, auth)
	e.Match([]string{"POST", "PUT", "PATCH"}, "/user/profile", d.Users.UpdateProfile, auth)
	// Deleting an account nulls equipment.user_id, so cached listings go stale.
	purge := middleware.PurgeOnWrite(d.Cache, d.Redis)
	e.DELETE("/user/profile", d.Users.DeleteProfile, auth, purge)

	// The cache runs after TokenAuth so anonymous requests never see a hit.
	eq := e.Group("/equipment", auth)
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	eq.GET("", d.Equipment.List, cache)
	eq.GET("/:id", d.Equipment.Show, cache)
	eq.POST("", d.Equipment.Create, purge)
	eq.PUT("/:id", d.Equipment.Update, purge)
	eq.PATCH("/:id", d.Equipment.Update, purge)
	eq.DELETE("/:id", d.Equipment.Destroy, purge)

	e.GET("/my-orders", d.Orders.ListMine, auth)
	e.POST("/my-orders", d.Orders.Create, auth)
	e.POST("/orders", d.Orders.Create, auth)

	admin := e.Group("/users", auth, middleware.RequireRole(model.RoleAdmin))
	admin.GET("", d.Users.List)
	admin.GET("/:id", d.Users.Show)
	admin.PUT("/:id", d.Users.Update)
	admin.PATCH("/:id", d.Users.Update)
	admin.DELETE("/:id", d.Users.Destroy, purge)
}

// Register installs the full route table.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterProtected(e, d)
}
