package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"social-hub/domain/repository"
	httpHandler "social-hub/interfaces/http"
	"social-hub/interfaces/middleware"
)

var allowedOrigins = []string{
	"https://app.social-hub.io",
	"https://admin.social-hub.io",
	"http://localhost:3000",
	"https://localhost:3000",
}

func InitiateRouter(
	connectionHandler httpHandler.IConnectionHandler,
	userRepository repository.IUser,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Platform redirect targets. Unauthenticated: the browser arrives here
	// from the platform's consent screen; the state token is the only proof
	// of origin.
	router.GET("/auth/:platform/callback", connectionHandler.Callback)

	api := router.Group("api")
	api.Use(middleware.Auth(userRepository))

	connections := api.Group("/connections")
	{
		connections.GET("", connectionHandler.List)
		connections.GET("/:platform/initiate", connectionHandler.Initiate)
		connections.DELETE("/:id", connectionHandler.Disconnect)
		connections.POST("/:id/refresh", connectionHandler.Refresh)
	}

	return router
}
