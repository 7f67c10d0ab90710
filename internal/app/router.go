package app

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"delivery/internal/domain"
	"delivery/internal/handler"
	"delivery/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	OrderHandler   *handler.OrderHandler
	JobHandler     *handler.JobHandler
	DriverHandler  *handler.DriverHandler
	PaymentHandler *handler.PaymentHandler
	RedisClient    redis.Cmdable
	NewRelicApp    *newrelic.Application
	Metrics        http.Handler
	JWTSecret      []byte
	Logger         *slog.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	v1 := router.Group("/v1")

	// Gateway callbacks are authenticated by signature, not bearer token.
	v1.POST("/webhooks/paystack", deps.PaymentHandler.PaystackWebhook)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(deps.JWTSecret))
	authed.Use(middleware.NewRelicActorMiddleware())
	if deps.RedisClient != nil {
		authed.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))
	}
	{
		// Customer routes.
		orders := authed.Group("/orders", middleware.RequireRole(domain.RoleCustomer))
		{
			orders.POST("/estimate", deps.OrderHandler.Estimate)
			orders.POST("", deps.OrderHandler.Create)
			orders.GET("/:id", deps.OrderHandler.Get)
			orders.GET("/:id/track", deps.OrderHandler.Track)
			orders.POST("/:id/cancel", deps.OrderHandler.Cancel)
			orders.POST("/:id/reassign", deps.OrderHandler.Reassign)
		}

		// Driver routes.
		jobs := authed.Group("/jobs", middleware.RequireRole(domain.RoleDriver))
		{
			jobs.POST("/:id/accept", deps.JobHandler.Accept)
			jobs.POST("/:id/reject", deps.JobHandler.Reject)
			jobs.POST("/:id/en-route", deps.JobHandler.EnRoute)
			jobs.POST("/:id/complete", deps.JobHandler.Complete)
		}

		drivers := authed.Group("/drivers", middleware.RequireRole(domain.RoleDriver))
		{
			drivers.POST("/online", deps.DriverHandler.Online)
			drivers.POST("/offline", deps.DriverHandler.Offline)
			drivers.POST("/location", deps.DriverHandler.UpdateLocation)
		}

		authed.POST("/withdrawals", middleware.RequireRole(domain.RoleDriver), deps.PaymentHandler.RequestWithdrawal)

		// Admin routes.
		admin := authed.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
		{
			admin.POST("/withdrawals/:id/confirm", deps.PaymentHandler.ConfirmWithdrawal)
			admin.POST("/withdrawals/:id/reject", deps.PaymentHandler.RejectWithdrawal)
		}
	}

	return router
}

// NewServerHandler wraps the router with OpenTelemetry HTTP instrumentation
// when tracing is enabled.
func NewServerHandler(router *gin.Engine, serviceName string, traced bool) http.Handler {
	if !traced {
		return router
	}
	return otelhttp.NewHandler(router, serviceName)
}
