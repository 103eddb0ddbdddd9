package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/config"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/http/handlers"
	"github.com/Leganyst/consulting-platform/internal/http/middleware"
	"github.com/Leganyst/consulting-platform/internal/identity"
)

// Handlers — набор обработчиков для SetupRouter.
type Handlers struct {
	Health       *handlers.HealthHandler
	Users        *handlers.UserHandler
	Providers    *handlers.ProviderHandler
	Availability *handlers.AvailabilityHandler
	Bookings     *handlers.BookingHandler
	Projects     *handlers.ProjectHandler
	Payments     *handlers.PaymentHandler
	Resources    *handlers.ResourceHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens *identity.TokenManager, logger *zap.Logger) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))

	r.GET("/health", h.Health.Health)
	r.GET("/readyz", h.Health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitPeriod))

	// Публичные маршруты
	api.GET("/tiers", h.Projects.Tiers)
	api.GET("/providers", h.Providers.List)
	api.GET("/providers/:id", middleware.UUIDValidator("id"), h.Providers.Get)
	api.GET("/providers/:id/stats", middleware.UUIDValidator("id"), h.Providers.Stats)
	api.GET("/providers/:id/ratings", middleware.UUIDValidator("id"), h.Providers.Ratings)
	api.GET("/providers/:id/windows", middleware.UUIDValidator("id"), h.Availability.List)
	api.GET("/providers/:id/slots", middleware.UUIDValidator("id"), h.Bookings.FreeSlots)
	api.GET("/providers/:id/can-book", middleware.UUIDValidator("id"), h.Bookings.CanBook)
	api.GET("/resource-categories", h.Resources.Categories)
	api.GET("/resources/:id/stats", middleware.UUIDValidator("id"), h.Resources.Stats)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))
	{
		protected.GET("/me", h.Users.Me)

		protected.POST("/providers", h.Providers.Register)
		protected.PUT("/providers/:id", middleware.UUIDValidator("id"), h.Providers.Update)
		protected.PUT("/providers/:id/availability", middleware.UUIDValidator("id"), h.Providers.SetAvailability)
		protected.POST("/providers/:id/ratings", middleware.UUIDValidator("id"), h.Providers.Rate)
		protected.POST("/providers/:id/windows", middleware.UUIDValidator("id"), h.Availability.Add)
		protected.PUT("/windows/:id", middleware.UUIDValidator("id"), h.Availability.Update)
		protected.DELETE("/windows/:id", middleware.UUIDValidator("id"), h.Availability.Delete)

		protected.POST("/bookings", h.Bookings.Create)
		protected.GET("/bookings", h.Bookings.List)
		protected.GET("/bookings/upcoming", h.Bookings.Upcoming)
		protected.GET("/bookings/:id", middleware.UUIDValidator("id"), h.Bookings.Get)
		protected.POST("/bookings/:id/start", middleware.UUIDValidator("id"), h.Bookings.Start)
		protected.POST("/bookings/:id/complete", middleware.UUIDValidator("id"), h.Bookings.Complete)
		protected.POST("/bookings/:id/cancel", middleware.UUIDValidator("id"), h.Bookings.Cancel)

		protected.POST("/projects", h.Projects.Purchase)
		protected.GET("/projects", h.Projects.List)
		protected.GET("/projects/:id", middleware.UUIDValidator("id"), h.Projects.Get)
		protected.POST("/projects/:id/progress", middleware.UUIDValidator("id"), h.Projects.RecordProgress)
		protected.POST("/projects/:id/start", middleware.UUIDValidator("id"), h.Projects.Start)
		protected.POST("/projects/:id/complete", middleware.UUIDValidator("id"), h.Projects.Complete)
		protected.POST("/projects/:id/cancel", middleware.UUIDValidator("id"), h.Projects.Cancel)

		protected.GET("/payments", h.Payments.List)
		protected.POST("/payments/:id/refund", middleware.UUIDValidator("id"), h.Payments.Refund)

		protected.GET("/resources", h.Resources.List)
		protected.GET("/resources/recommended", h.Resources.Recommended)
		protected.GET("/resources/:id", middleware.UUIDValidator("id"), h.Resources.Get)
		protected.POST("/resources/:id/ratings", middleware.UUIDValidator("id"), h.Resources.Rate)
	}

	admin := protected.Group("")
	admin.Use(middleware.RequireRole(domain.RoleAdmin))
	{
		admin.POST("/users", h.Users.Register)
		admin.PUT("/users/:id/role", middleware.UUIDValidator("id"), h.Users.SetRole)
		admin.POST("/payments/settlement", h.Payments.Settlement)
		admin.POST("/resources", h.Resources.Create)
		admin.POST("/resource-categories", h.Resources.CreateCategory)
	}

	return r
}
