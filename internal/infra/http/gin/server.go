package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"datecraft/internal/infra/config"
	"datecraft/internal/infra/obs"
)

type Handlers struct {
	Booking        BookingHTTP
	Calendar       CalendarHTTP
	Chat           ChatHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(obs.MetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	router.GET("/metrics", obs.MetricsHandler())

	api := router.Group("/api/v1")
	if h.Calendar != nil {
		api.POST("/offers", h.Calendar.CreateOffer)
		api.GET("/offers/:id", h.Calendar.GetOffer)
		api.POST("/offers/:id/slots", h.Calendar.CreateSlot)
		api.GET("/offers/:id/slots", h.Calendar.ListSlots)

		hostGroup := api.Group("/host/blocked-dates")
		hostGroup.GET("", h.Calendar.ListBlockedDates)
		hostGroup.POST("", h.Calendar.BlockDate)
		hostGroup.DELETE("/:id", h.Calendar.UnblockDate)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/confirm-payment", h.Booking.ConfirmPayment)
		api.PATCH("/bookings/:id", h.Booking.Edit)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)

		meGroup := api.Group("/me")
		meGroup.GET("/bookings", h.Booking.ListMine)
		meGroup.GET("/hosting", h.Booking.ListHosting)
	}
	if h.Chat != nil {
		chatGroup := api.Group("/channels/:id")
		chatGroup.GET("/messages", h.Chat.ListMessages)
		chatGroup.POST("/messages", h.Chat.SendMessage)
		chatGroup.POST("/read", h.Chat.MarkRead)
		chatGroup.POST("/typing", h.Chat.SetTyping)
		chatGroup.GET("/typing", h.Chat.ListTypists)
		chatGroup.GET("/unread-count", h.Chat.UnreadCount)
		chatGroup.GET("/events", h.Chat.Stream)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
