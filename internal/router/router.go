package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/mealplanner/backend/internal/api"
	"github.com/pageza/mealplanner/backend/internal/logger"
	"github.com/pageza/mealplanner/backend/internal/middleware"
	"github.com/pageza/mealplanner/backend/internal/service"
)

// Dependencies are what the routes are built from. DB and Redis may be nil.
type Dependencies struct {
	Service            service.IRecommendationService
	DB                 *gorm.DB
	Redis              *redis.Client
	CORSOrigins        []string
	RateLimitPerMinute int
	Version            string
	Logger             *logger.Logger
}

// SetupRouter configures the application routes
func SetupRouter(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.Recovery(log),
		middleware.CORS(deps.CORSOrigins),
	)

	health := api.NewHealthHandler(deps.DB, deps.Redis, deps.Version)
	router.GET("/health", health.HealthCheck)
	router.GET("/api/health", health.HealthCheck)

	var limit gin.HandlerFunc
	if deps.Redis != nil && deps.RateLimitPerMinute > 0 {
		limit = middleware.NewSolveRateLimiter(deps.Redis, deps.RateLimitPerMinute, log).Middleware()
	}

	v1 := router.Group("/api/v1")
	api.NewRecommendationHandler(deps.Service, log).RegisterRoutes(v1, limit)

	return router
}
