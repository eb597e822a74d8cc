package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"rideshare/internal/handler"
	"rideshare/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	PaymentHandler *handler.PaymentHandler
	RatingHandler  *handler.RatingHandler
	ResponseStore  middleware.ResponseStore // optional; nil disables idempotency keys
	RequestLocks   middleware.RequestLocker // optional
	NewRelicApp    *newrelic.Application
	JWTSecret      string
	Logger         *zap.Logger
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

	router.Use(middleware.ActorMiddleware(deps.JWTSecret))
	router.Use(middleware.NewRelicAttributes())
	if deps.ResponseStore != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.ResponseStore, deps.RequestLocks, deps.Logger))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("", deps.RideHandler.GetAll)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/:id/join", deps.RideHandler.JoinRide)
			rides.POST("/:id/status", deps.RideHandler.UpdateStatus)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
			rides.GET("/:id/split", deps.RideHandler.SplitFare)
			rides.POST("/:id/passengers/:pid/status", deps.RideHandler.UpdatePassengerStatus)
			rides.POST("/:id/passengers/:pid/payment", deps.PaymentHandler.ProcessPayment)
			rides.POST("/:id/ratings", deps.RatingHandler.RateRide)
		}

		// Rating reads.
		v1.GET("/users/:id/rating", deps.RatingHandler.GetUserRating)
		v1.GET("/vehicles/:id/rating", deps.RatingHandler.GetVehicleRating)
	}

	return router
}
