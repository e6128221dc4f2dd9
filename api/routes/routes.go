package routes

import (
	"github.com/ArowuTest/healthclaims-backend/internal/access"
	"github.com/ArowuTest/healthclaims-backend/internal/config"
	"github.com/ArowuTest/healthclaims-backend/internal/handlers"
	"github.com/ArowuTest/healthclaims-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandlerDependencies holds the handlers and the authenticator the router mounts
type HandlerDependencies struct {
	AuthHandler     *handlers.AuthHandler
	ClaimHandler    *handlers.ClaimHandler
	DocumentHandler *handlers.DocumentHandler
	HealthHandler   *handlers.HealthHandler
	Authenticator   middleware.Authenticator
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies, logger *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.RegisterValidators()

	router := gin.New()
	router.MaxMultipartMemory = cfg.FileHost.MaxFileSize

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	public := router.Group("/api")
	{
		public.GET("/health", deps.HealthHandler.Check)

		auth := public.Group("/auth")
		{
			auth.POST("/register", deps.AuthHandler.Register)
			auth.POST("/login", deps.AuthHandler.Login)
		}
	}

	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware(deps.Authenticator, logger))
	{
		auth := protected.Group("/auth")
		{
			auth.POST("/logout", deps.AuthHandler.Logout)
			auth.GET("/me", deps.AuthHandler.Me)
		}

		claims := protected.Group("/claims")
		{
			claims.GET("", middleware.RequireOperation(access.ListAllClaims), deps.ClaimHandler.ListAll)
			claims.GET("/stats", middleware.RequireOperation(access.ViewStats), deps.ClaimHandler.Stats)
			claims.GET("/detail/:claimId", middleware.RequireOperation(access.ViewClaim), deps.ClaimHandler.Get)
			claims.GET("/:patientId", middleware.RequireOperation(access.ListOwnClaims), deps.ClaimHandler.ListByPatient)
			claims.POST("", middleware.RequireOperation(access.SubmitClaim), deps.ClaimHandler.Submit)
			claims.PUT("/:claimId", middleware.RequireOperation(access.ReviewClaim), deps.ClaimHandler.Review)
		}

		documents := protected.Group("/documents")
		documents.Use(middleware.RequireOperation(access.UploadDocuments))
		{
			documents.POST("", deps.DocumentHandler.Upload)
			documents.POST("/presign", deps.DocumentHandler.Presign)
		}
	}

	return router
}
