package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/vmarkevych/storefront/internal/cache"
	"github.com/vmarkevych/storefront/internal/config"
	"github.com/vmarkevych/storefront/internal/domain/product"
	"github.com/vmarkevych/storefront/internal/domain/user"
	"github.com/vmarkevych/storefront/internal/http/handlers"
	"github.com/vmarkevych/storefront/internal/http/middlewares"
	"github.com/vmarkevych/storefront/internal/observability"
)

const serviceName = "storefront-api"

// Sessions is the Session Authority as seen by the HTTP layer.
type Sessions interface {
	handlers.TokenIssuer
	middlewares.SessionAuthority
}

type Catalog interface {
	handlers.ProductCatalog
	handlers.MediaCatalog
}

// Deps are the wired cores and stores. Publisher, Prom and Gatherer are
// optional.
type Deps struct {
	Accounts  handlers.Accounts
	Sessions  Sessions
	Catalog   Catalog
	Cart      handlers.CartEngine
	Publisher handlers.OrderPublisher
	Prom      *observability.Prom
	Gatherer  prometheus.Gatherer
	Checks    map[string]handlers.Pinger
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	secure := cfg.IsProd()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(secure))
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))

	// ops
	health := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// handlers
	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.Sessions, secure)
	productsHandler := handlers.NewProductsHandler(deps.Catalog, cache.New[handlers.ProductsPage](cfg.ProductsCacheTTL))
	mediaHandler := handlers.NewMediaHandler(deps.Catalog, handlers.MediaConfig{
		Dir:      cfg.MediaDir,
		OnChange: productsHandler.Invalidate,
	}, deps.Prom, log)
	cartHandler := handlers.NewCartHandler(deps.Cart, deps.Publisher, deps.Prom, log)

	authMW := middlewares.NewAuthMiddleware(deps.Sessions, secure, log)
	anyRole := middlewares.RequireRole(user.RoleCustomer, user.RoleAdmin)
	adminOnly := middlewares.RequireRole(user.RoleAdmin)
	maxBody := middlewares.MaxBodyBytes(cfg.MaxBodyBytes)

	// brute force protection on credential endpoints
	authLimiter := middlewares.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	limitByIP := authLimiter.RateLimiterMiddleware(middlewares.KeyByIP)
	checkoutLimiter := middlewares.NewRateLimiter(cfg.CheckoutRateLimit, time.Minute)

	api := r.Group("/api", maxBody, middlewares.RequireJSON())
	{
		api.POST("/register", limitByIP, authHandler.Register)
		api.POST("/login", limitByIP, authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)
		api.POST("/auth/logout", authHandler.Logout)

		authed := api.Group("", authMW.RequireAuth())
		authed.GET("/me", authHandler.Me)
		authed.GET("/products", anyRole, productsHandler.ListProducts)
		authed.GET("/products/:id", anyRole, productsHandler.GetProductByID)

		shopper := authed.Group("", middlewares.RequireRole(user.RoleCustomer))
		shopper.GET("/cart", cartHandler.GetCart)
		shopper.PUT("/cart/:idProduct", cartHandler.AddItem)
		shopper.DELETE("/cart/:idProduct", cartHandler.RemoveItem)
		shopper.POST("/cart/checkout", checkoutLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP), cartHandler.Checkout)
		shopper.GET("/orders", cartHandler.ListOrders)
	}

	catalog := r.Group("/product", authMW.RequireAuth())
	{
		catalog.POST("", adminOnly, maxBody, middlewares.RequireJSON(), productsHandler.CreateProduct)

		uploadBody := middlewares.MaxBodyBytes(cfg.MaxUploadBytes)
		catalog.POST("/:productId/image/upload", adminOnly, uploadBody, mediaHandler.Upload(product.MediaImage))
		catalog.POST("/:productId/video/upload", adminOnly, uploadBody, mediaHandler.Upload(product.MediaVideo))

		catalog.GET("/image/:fileName", anyRole, mediaHandler.Download(product.MediaImage))
		catalog.GET("/video/:fileName", anyRole, mediaHandler.Download(product.MediaVideo))
	}

	return r
}
