package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/smartrecipehub/recipe-hub/internal/api/handler"
	"github.com/smartrecipehub/recipe-hub/internal/api/middleware"
	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

// Options carries the HTTP-level settings of the router.
type Options struct {
	Development  bool
	CORSOrigins  []string
	BodyLimit    int64
	UploadDir    string
	Started      time.Time
	HealthChecks map[string]handler.PingFunc
	// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For. Empty
	// means the peer address is the client IP and forwarding headers are ignored.
	TrustedProxies []*net.IPNet
	// Metrics receives the HTTP collectors and backs /metrics. Nil means the
	// prometheus default registry.
	Metrics *prometheus.Registry
}

// Services are the core ports the handlers call.
type Services struct {
	Auth      ports.AuthService
	Recipes   ports.RecipeService
	Users     ports.UserService
	MealPlans ports.MealPlanService
	Images    handler.ImageStore
	// AuthLimiter throttles the unauthenticated auth endpoints. Nil disables it.
	AuthLimiter middleware.RateLimitFunc
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(svc Services, opts Options, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log, opts.Development)
	e.IPExtractor = ipExtractor(opts.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))
	promCfg := echoprometheus.MiddlewareConfig{Subsystem: "recipehub", DoNotUseRequestPathFor404: true}
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if opts.Metrics != nil {
		promCfg.Registerer = opts.Metrics
		gatherer = opts.Metrics
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(promCfg))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if opts.BodyLimit > 0 {
		e.Use(echomiddleware.BodyLimitWithConfig(echomiddleware.BodyLimitConfig{Limit: bodyLimitString(opts.BodyLimit)}))
	}

	// --- Probes, metrics, docs, media ---
	health := handler.NewHealthHandler(opts.Started, opts.HealthChecks)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	if opts.UploadDir != "" {
		e.Static("/uploads", opts.UploadDir)
	}

	requireAuth := middleware.Auth(svc.Auth)
	optionalAuth := middleware.OptionalAuth(svc.Auth)

	api := e.Group("/api")

	// --- Auth ---
	authHandler := handler.NewAuthHandler(svc.Auth)
	auth := api.Group("/auth")
	public := auth.Group("")
	if svc.AuthLimiter != nil {
		public.Use(middleware.RateLimit(svc.AuthLimiter, log))
	}
	public.POST("/register", authHandler.Register)
	public.POST("/login", authHandler.Login)
	public.POST("/forgot-password", authHandler.ForgotPassword)
	public.POST("/reset-password", authHandler.ResetPassword)
	auth.GET("/profile", authHandler.Profile, requireAuth)
	auth.PUT("/profile", authHandler.UpdateProfile, requireAuth)

	// --- Recipes ---
	recipeHandler := handler.NewRecipeHandler(svc.Recipes, svc.Images, log)
	recipes := api.Group("/recipes")
	recipes.GET("", recipeHandler.List)
	recipes.GET("/popular", recipeHandler.Popular)
	recipes.GET("/by-ingredient", recipeHandler.ByIngredient)
	recipes.GET("/:id", recipeHandler.Get, optionalAuth)
	recipes.POST("", recipeHandler.Create, requireAuth)
	recipes.PUT("/:id", recipeHandler.Update, requireAuth)
	recipes.DELETE("/:id", recipeHandler.Delete, requireAuth)
	recipes.POST("/:id/rate", recipeHandler.Rate, requireAuth)
	recipes.POST("/:id/like", recipeHandler.Like, requireAuth)

	// --- Users ---
	userHandler := handler.NewUserHandler(svc.Users)
	users := api.Group("/users")
	users.POST("/save-recipe/:id", userHandler.ToggleSave, requireAuth)
	users.GET("/saved-recipes", userHandler.Saved, requireAuth)
	users.GET("/:id", userHandler.Profile)
	users.POST("/:id/follow", userHandler.ToggleFollow, requireAuth)

	// --- Meal plans ---
	mealPlanHandler := handler.NewMealPlanHandler(svc.MealPlans)
	plans := api.Group("/meal-plans", requireAuth)
	plans.GET("", mealPlanHandler.Get)
	plans.GET("/shopping-list", mealPlanHandler.ShoppingList)
	plans.PUT("/slots", mealPlanHandler.SetSlot)
	plans.DELETE("/slots", mealPlanHandler.ClearSlot)

	// --- Admin ---
	adminHandler := handler.NewAdminHandler(svc.Recipes, svc.Auth, log)
	admin := api.Group("/admin", requireAuth, middleware.RBAC(domain.RoleAdmin))
	admin.PATCH("/recipes/:id/approval", adminHandler.SetApproval)
	admin.PATCH("/users/:id/status", adminHandler.SetUserStatus)

	return e
}

// ipExtractor decides what c.RealIP reports, which keys the auth rate limiter.
func ipExtractor(proxies []*net.IPNet) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}
	trust := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range proxies {
		trust = append(trust, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(trust...)
}

// bodyLimitString renders a byte count in the unit syntax BodyLimit expects.
func bodyLimitString(n int64) string {
	return strconv.FormatInt(n, 10) + "B"
}
