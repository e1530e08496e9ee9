package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumeha/presence/config"
	"github.com/lumeha/presence/controllers"
	"github.com/lumeha/presence/middleware"
	"github.com/lumeha/presence/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	attendanceController := controllers.NewAttendanceController(db)
	enrollmentController := controllers.NewEnrollmentController(db)
	tickerController := controllers.NewTickerController(db)
	siteController := controllers.NewSiteController(db)
	sessionTypeController := controllers.NewSessionTypeController(db)
	configController := controllers.NewConfigController()

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware(), middleware.APIAuditRecorder(db))

	attendance := protected.Group("/attendance")
	attendance.POST("/check-in", attendanceController.CheckIn)
	attendance.POST("/check-out", attendanceController.CheckOut)
	attendance.GET("/active", attendanceController.Active)
	attendance.GET("/records", attendanceController.Records)
	attendance.GET("/summary", attendanceController.Summary)
	attendance.GET("/ticker", tickerController.Stream)

	face := protected.Group("/face/enroll")
	face.POST("/start", enrollmentController.Start)
	face.POST("/capture", enrollmentController.Capture)
	face.POST("/reset", enrollmentController.Reset)
	face.POST("/finalize", enrollmentController.Finalize)

	// reference data is readable by everyone signed in, writable by admins
	protected.GET("/sites", siteController.List)
	protected.GET("/session-types", sessionTypeController.List)
	protected.GET("/config/engine", configController.Engine)

	admin := protected.Group("")
	admin.Use(middleware.AdminRequired())
	admin.POST("/sites", siteController.Create)
	admin.PUT("/sites/:id", siteController.Update)
	admin.DELETE("/sites/:id", siteController.Delete)
	admin.POST("/session-types", sessionTypeController.Create)
	admin.PUT("/session-types/:id", sessionTypeController.Update)
	admin.DELETE("/session-types/:id", sessionTypeController.Delete)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
