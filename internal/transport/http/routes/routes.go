package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/accounts-service/internal/infra/config"
	"github.com/arklim/accounts-service/internal/infra/security"
	"github.com/arklim/accounts-service/internal/transport/http/handlers"
	"github.com/arklim/accounts-service/internal/transport/http/middleware"
	"github.com/arklim/accounts-service/internal/usecase"
)

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Identity *usecase.IdentityService
	Issuer   *security.TokenIssuer
	Metrics  *middleware.HTTPMetrics
	Database DatabaseChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if len(deps.Config.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 1)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Identity)
		authHandler.RegisterRoutes(authGroup)

		accountGroup := api.Group("/account")
		registrationHandler := handlers.NewRegistrationHandler(deps.Identity)
		registrationHandler.RegisterRoutes(accountGroup)

		if deps.Issuer != nil {
			authMiddleware := middleware.RequireAuth(deps.Issuer)

			passwordHandler := handlers.NewPasswordHandler(deps.Identity)
			accountGroup.POST("/password/change", authMiddleware, passwordHandler.ChangePassword)

			userHandler := handlers.NewUserHandler(deps.Identity)
			userGroup := api.Group("/users")
			userGroup.Use(authMiddleware)
			userGroup.GET("/me", userHandler.Me)
			userGroup.GET("/exists", userHandler.Exists)
		}
	}

	return r
}
