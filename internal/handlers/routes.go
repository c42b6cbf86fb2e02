package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/medtalks/medtalks-api/internal/middleware"
	"github.com/medtalks/medtalks-api/internal/models"
	"github.com/medtalks/medtalks-api/internal/response"
)

type RouterOptions struct {
	CORSOrigins     []string
	Redis           *redis.Client // nil disables rate limiting
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// NewRouter builds the gin engine with the /api/auth routes.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(h.Logger))

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"}, "", nil)
	})

	limit := middleware.RateLimit(opts.Redis, opts.RateLimitMax, opts.RateLimitWindow, middleware.KeyByIPAndPath())
	authed := middleware.Auth(h.Auth, h.Cookie.Name)

	auth := r.Group("/api/auth")
	{
		auth.POST("/request-register", limit, h.RequestRegister)
		auth.POST("/register", limit, h.Register)
		auth.POST("/login", limit, h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/reset-password", limit, h.ResetPassword)

		auth.GET("/verify-session", authed, h.VerifySession)
		auth.GET("/verify-token", authed, h.VerifyToken)
		auth.GET("/me", authed, h.Me)
	}

	admin := auth.Group("")
	admin.Use(authed, middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/requests", h.ListRequests)
		admin.PUT("/requests/:id/approve", h.ApproveRequest)
		admin.PUT("/requests/:id/reject", h.RejectRequest)

		admin.GET("/users", h.ListUsers)
		admin.POST("/users", h.CreateUser)
		admin.GET("/users/:id", h.GetUser)
		admin.PUT("/users/:id", h.UpdateUser)
	}

	return r
}
