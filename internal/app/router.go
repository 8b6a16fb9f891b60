package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridehail/internal/handler"
	"ridehail/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	PaymentHandler *handler.PaymentHandler
	DriverHandler  *handler.DriverHandler
	UserHandler    *handler.UserHandler
	AdminHandler   *handler.AdminHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// User routes.
		users := v1.Group("/users")
		{
			users.POST("", deps.UserHandler.Register)
			users.GET("", deps.UserHandler.GetUsers)
			users.GET("/:id", deps.UserHandler.GetUser)
		}

		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.RequestRide)
			rides.GET("", deps.RideHandler.GetRides)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/:id/interest", deps.RideHandler.ShowInterest)
			rides.POST("/:id/accept", deps.RideHandler.AcceptDriver)
			rides.PATCH("/:id/status", deps.RideHandler.UpdateStatus)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
			rides.POST("/:id/payment", deps.PaymentHandler.InitiatePayment)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.Register)
			drivers.GET("", deps.DriverHandler.GetDrivers)
			drivers.GET("/:id", deps.DriverHandler.GetDriver)
			drivers.POST("/:id/availability", deps.DriverHandler.SetAvailability)
			drivers.POST("/:id/location", deps.DriverHandler.UpdateLocation)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("/webhook", deps.PaymentHandler.Webhook)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
			payments.POST("/:id/hold", deps.PaymentHandler.Hold)
			payments.POST("/:id/release", deps.PaymentHandler.Release)
		}

		// Operator routes.
		admin := v1.Group("/admin")
		{
			admin.PATCH("/rides/:id/status", deps.AdminHandler.OverrideStatus)
			admin.POST("/rides/:id/assign", deps.AdminHandler.AssignDriver)
			admin.POST("/rides/:id/notes", deps.AdminHandler.AddNote)
			admin.DELETE("/rides/:id", deps.AdminHandler.ForceDelete)
			admin.GET("/rides/active", deps.AdminHandler.GetActiveRides)
			admin.GET("/issues", deps.AdminHandler.GetIssues)
			admin.GET("/overview", deps.AdminHandler.GetOverview)
			admin.POST("/drivers/:id/approve", deps.AdminHandler.ApproveDriver)
			admin.POST("/drivers/:id/reject", deps.AdminHandler.RejectDriver)
		}
	}

	return router
}
