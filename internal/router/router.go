package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-scores/internal/config"
	"github.com/stemsi/exstem-scores/internal/handler"
	"github.com/stemsi/exstem-scores/internal/middleware"
	"github.com/stemsi/exstem-scores/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Score      *handler.ScoreHandler
	Statistics *handler.StatisticsHandler
	Dashboard  *handler.DashboardHandler
	Activity   *handler.ActivityHandler
	System     *handler.SystemHandler
}

// Authenticator validates tokens, checks them against the logout list and
// reloads the account behind them. *service.AuthService implements it.
type Authenticator interface {
	middleware.TokenValidator
	middleware.RevocationChecker
	middleware.AccountLoader
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// authLimiter may be nil, in which case a limiter from cfg is created.
func SetupRouter(
	auth Authenticator,
	handlers *Handlers,
	cfg *config.Config,
	authLimiter *middleware.RateLimiter,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	}

	requireUser := []gin.HandlerFunc{
		middleware.RequireUserJWT(auth),
		middleware.RejectRevokedTokens(auth),
		middleware.RequireActiveUser(auth),
	}
	requireAdmin := []gin.HandlerFunc{
		middleware.RequireUserJWT(auth),
		middleware.RejectRevokedTokens(auth),
		middleware.RequireActiveUser(auth),
		middleware.RequireAdmin(),
	}

	// ─── 1. Auth Group (Rate Limited) ──────────────────────────────────
	authAPI := router.Group("/api/v1/auth")
	authAPI.Use(middleware.NoStore())
	{
		authAPI.POST("/register", authLimiter.Middleware(), handlers.Auth.Register)
		authAPI.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)

		authAPI.POST("/logout", append(requireUser, handlers.Auth.Logout)...)
		authAPI.GET("/me", append(requireUser, handlers.Auth.Me)...)
		authAPI.GET("/verify", append(requireUser, handlers.Auth.Verify)...)
	}

	// ─── 2. Scores Group (User JWT) ────────────────────────────────────
	router.GET("/api/v1/scores/ping", handlers.Score.Ping)

	scoresAPI := router.Group("/api/v1/scores")
	scoresAPI.Use(requireUser...)
	scoresAPI.Use(middleware.NoStore())
	{
		scoresAPI.GET("/user", handlers.Score.ListMyScores)
		scoresAPI.GET("/user/:score_id", handlers.Score.GetMyScore)
		scoresAPI.POST("", handlers.Score.CreateScore)
		scoresAPI.PUT("/:exercise_id", handlers.Score.UpdateScore)
		scoresAPI.GET("/statistics", handlers.Statistics.GetMyStatistics)
		scoresAPI.GET("/progress/:user_id",
			middleware.RequireSelfOrAdmin("user_id"),
			handlers.Statistics.GetProgress,
		)
	}

	// ─── 3. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(auth),
		middleware.RejectRevokedTokens(auth),
		middleware.RequireActiveUser(auth),
		middleware.RequireAdmin(),
	)
	{
		ws.GET("/admin/activity", handlers.Activity.ActivityFeed)
	}

	// ─── 4. Admin Group (Admin JWT) ────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(requireAdmin...)
	{
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboard)

		// User management
		adminAPI.GET("/users", handlers.User.ListUsers)
		adminAPI.GET("/users/stats", handlers.User.GetUserStats)
		adminAPI.GET("/users/:id", handlers.User.GetUser)
		adminAPI.GET("/users/:id/statistics", handlers.Statistics.GetUserStatistics)
		adminAPI.POST("/users", handlers.User.CreateUser)
		adminAPI.PUT("/users/:id", handlers.User.UpdateUser)
		adminAPI.DELETE("/users/:id", handlers.User.DeleteUser)

		// Scores
		adminAPI.GET("/scores", handlers.Score.ListScores)
		adminAPI.DELETE("/scores/:id", handlers.Score.DeleteScore)
	}

	return router
}
