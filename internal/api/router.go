package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/assetverse/asset-system/internal/api/handler"
	"github.com/assetverse/asset-system/internal/api/middleware"
	"github.com/assetverse/asset-system/internal/core/domain"
	"github.com/assetverse/asset-system/internal/core/service"
	mongorepo "github.com/assetverse/asset-system/internal/infrastructure/db/mongo"
	rediscache "github.com/assetverse/asset-system/internal/infrastructure/db/redis"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// rdb and notifier may be nil; the affected features degrade gracefully.
func NewRouter(db *mongo.Database, rdb *redis.Client, notifier service.DecisionNotifier, jwtSecret string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("assetverse"))

	// --- Repositories ---
	userRepo := mongorepo.NewUserRepository(db)
	assetRepo := mongorepo.NewAssetRepository(db)
	requestRepo := mongorepo.NewRequestRepository(db)

	// --- Services ---
	var cache service.CatalogCache
	if rdb != nil {
		cache = rediscache.NewCatalogCache(rdb, log)
	}

	authService := service.NewAuthService(userRepo, jwtSecret, 24*time.Hour)
	assetService := service.NewAssetService(assetRepo, cache, log)
	affiliationService := service.NewAffiliationService(userRepo, log)
	requestService := service.NewRequestService(requestRepo, assetRepo, userRepo, affiliationService, cache, notifier, log)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService)
	assetHandler := handler.NewAssetHandler(assetService)
	requestHandler := handler.NewRequestHandler(requestService)
	teamHandler := handler.NewTeamHandler(requestService, affiliationService)

	auth := middleware.Auth(jwtSecret)
	hrOnly := middleware.RBAC(domain.RoleHR)
	employeeOnly := middleware.RBAC(domain.RoleEmployee)
	anyRole := middleware.RBAC(domain.RoleHR, domain.RoleEmployee)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/users/role/:email", authHandler.Role)

	// --- Asset routes ---
	assets := e.Group("/v1/assets", auth)
	assets.GET("/available", assetHandler.ListAvailable, anyRole)
	assets.GET("", assetHandler.ListOwned, hrOnly)
	assets.POST("", assetHandler.Create, hrOnly)
	assets.PUT("/:id", assetHandler.Update, hrOnly)
	assets.DELETE("/:id", assetHandler.Delete, hrOnly)

	// --- Request routes ---
	requests := e.Group("/v1/requests", auth)
	requests.POST("", requestHandler.Create, employeeOnly)
	requests.GET("", requestHandler.List, anyRole)
	requests.PATCH("/:id/decision", requestHandler.Decide, hrOnly)
	requests.PATCH("/:id/return", requestHandler.Return, employeeOnly)

	// --- Team routes ---
	team := e.Group("/v1/team", auth, hrOnly)
	team.POST("/direct-assign", teamHandler.DirectAssign)
	team.POST("/bulk-affiliate", teamHandler.BulkAffiliate)
	team.DELETE("/members/:id", teamHandler.RemoveMember)
	team.GET("/unaffiliated", teamHandler.ListUnaffiliated)

	// --- Observability (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
