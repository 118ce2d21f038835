package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/campusres/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	Auth       *AuthHandler
	Resources  *ResourceHandler
	Bookings   *BookingHandler
	AirQuality *AirQualityHandler
	Live       *LiveHandler  // optional
	Queue      *QueueHandler // optional
}

type RouterConfig struct {
	RequestTimeout time.Duration
	RateLimiter    *middleware.RateLimiter
	Version        string
}

func InitRoutes(h *Handlers, tokens middleware.TokenParser, cfg RouterConfig) *gin.Engine {
	if err := RegisterValidators(); err != nil {
		logrus.WithError(err).Error("Failed to register request validators")
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SecurityHeaders())
	if cfg.RateLimiter != nil {
		router.Use(cfg.RateLimiter.Limit())
	}
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"version":   cfg.Version,
			"timestamp": time.Now().UTC(),
		})
	})

	api := router.Group("/api/v1")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/signin", h.Auth.SignIn)
			auth.POST("/signup", h.Auth.SignUp)
			auth.POST("/oauth", h.Auth.SignInWithProvider)
			auth.GET("/me", middleware.Authenticate(tokens), h.Auth.Me)
		}

		api.GET("/air-quality", h.AirQuality.GetAirQuality)
		api.GET("/air-quality/places", h.AirQuality.GetPlaces)

		// Authenticated routes
		user := api.Group("", middleware.Authenticate(tokens))
		{
			resources := user.Group("/resources")
			{
				resources.GET("", h.Resources.ListResources)
				resources.GET("/:id", h.Resources.GetResource)
				resources.GET("/:id/slots", h.Bookings.GetSlots)
			}

			bookings := user.Group("/bookings")
			{
				bookings.POST("", h.Bookings.CreateBooking)
				bookings.GET("/me", h.Bookings.GetMyBookings)
				bookings.GET("/:id/pass", h.Bookings.GetPass)
			}

			if h.Live != nil {
				user.GET("/live", h.Live.Subscribe)
			}
		}

		// Admin routes
		admin := api.Group("/admin", middleware.Authenticate(tokens), middleware.RequireAdmin())
		{
			admin.GET("/resources", h.Resources.GetResourcesWithBookings)
			admin.POST("/resources", h.Resources.CreateResource)
			admin.PATCH("/resources/:id", h.Resources.UpdateResource)
			admin.DELETE("/resources/:id", h.Resources.DeleteResource)
			admin.POST("/resources/:id/image", h.Resources.UploadImage)

			admin.GET("/bookings", h.Bookings.ListBookings)
			admin.GET("/bookings/:id", h.Bookings.GetBooking)
			admin.PATCH("/bookings/:id/status", h.Bookings.UpdateBookingStatus)
			admin.GET("/stats", h.Bookings.GetStats)
			admin.POST("/passes/check", h.Bookings.CheckPass)

			if h.Queue != nil {
				admin.GET("/queue", h.Queue.GetStats)
				admin.GET("/queue/dlq", h.Queue.GetFailedTasks)
				admin.POST("/queue/dlq/:id/requeue", h.Queue.Requeue)
			}
		}
	}

	return router
}
