package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mcqhub/mcqhub-backend/internal/config"
	"github.com/mcqhub/mcqhub-backend/internal/handler"
	"github.com/mcqhub/mcqhub-backend/internal/middleware"
	"github.com/mcqhub/mcqhub-backend/internal/model"
	"github.com/mcqhub/mcqhub-backend/internal/response"
	"github.com/mcqhub/mcqhub-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Test       *handler.TestHandler
	Submission *handler.SubmissionHandler
	Monitor    *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Catalog Group (Any Authenticated Role) ─────────────────────
	catalog := router.Group("/api/v1/tests")
	catalog.Use(middleware.RequireAuth(authService))
	{
		catalog.GET("", handlers.Test.ListTests)
	}

	// ─── 3. Teacher Group (JWT + Teacher Role) ─────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(
		middleware.RequireAuth(authService),
		middleware.RequireRole(model.RoleTeacher),
	)
	{
		teacherAPI.POST("/tests", handlers.Test.CreateTest)
		teacherAPI.GET("/tests/:test_id/submissions", handlers.Submission.ListSubmissions)
		teacherAPI.GET("/tests/:test_id/stats", handlers.Submission.GetTestStats)
	}

	// ─── 4. Student Group (JWT + Student Role) ─────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireAuth(authService),
		middleware.RequireRole(model.RoleStudent),
	)
	{
		studentAPI.GET("/tests/:test_id", handlers.Test.GetTestPayload)
		studentAPI.POST("/submissions", handlers.Submission.SubmitExam)
	}

	// ─── 5. WebSocket Group (Teacher Monitor) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireAuth(authService),
		middleware.RequireRole(model.RoleTeacher),
	)
	{
		ws.GET("/teacher/tests/:test_id/monitor", handlers.Monitor.MonitorSubmissions)
	}

	return router
}
