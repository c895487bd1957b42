package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/gymchallenge/config"
	"github.com/cppla/gymchallenge/controllers"
	"github.com/cppla/gymchallenge/metrics"
	"github.com/cppla/gymchallenge/middleware"
	"github.com/cppla/gymchallenge/services"
	"github.com/cppla/gymchallenge/utils"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Config    config.AppConfig
	CheckIns  *services.CheckInService
	Stats     *services.StatsService
	Users     *services.UserService
	Tokens    *utils.TokenManager
	Blacklist *utils.TokenBlacklist
	Logger    *zap.Logger
	// AccessLog receives gin access logs; when nil one is opened at Config.GinPath.
	AccessLog *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl := d.AccessLog
	if gl == nil && cfg.GinPath != "" {
		if l, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			gl = l
		}
	}
	if gl != nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if cfg.MetricsEnabled {
		r.Use(metrics.GinMiddleware())
		r.GET("/metrics", metrics.Handler())
	}

	if strings.HasPrefix(cfg.UploadBaseURL, "/") && cfg.UploadDir != "" {
		r.Static(cfg.UploadBaseURL, cfg.UploadDir)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	auth := middleware.NewAuth(d.Tokens, d.Blacklist)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	authController := controllers.NewAuthController(d.Users, d.Tokens, d.Blacklist, d.Logger)
	checkInController := controllers.NewCheckInController(d.CheckIns, cfg.UploadMaxBytes(), d.Logger)
	statsController := controllers.NewStatsController(d.Stats, d.Logger)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", limiter.Middleware(), authController.Register)
	authGroup.POST("/login", limiter.Middleware(), authController.Login)
	authGroup.POST("/logout", auth.Required(), authController.Logout)
	authGroup.GET("/me", auth.Required(), authController.Me)
	authGroup.PATCH("/profile", auth.Required(), authController.UpdateProfile)

	// Public ranking and day view
	api.GET("/stats/all", statsController.All)
	api.GET("/stats/day", auth.Optional(), statsController.Day)

	protected := api.Group("")
	protected.Use(auth.Required())
	protected.POST("/checkins", limiter.Middleware(), checkInController.Create)
	protected.GET("/checkins/today", checkInController.Today)
	protected.GET("/stats/week", statsController.Week)
	protected.GET("/users/search", authController.Search)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
