package router

import (
	"time"

	"pickupshop/internal/config"
	"pickupshop/internal/handler"
	"pickupshop/internal/infra"
	"pickupshop/internal/middleware"
	"pickupshop/internal/repository"
	"pickupshop/internal/service"
	"pickupshop/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the long-lived objects built by the composition root.
type Deps struct {
	DB          *gorm.DB
	Redis       *redis.Client
	SMTPBreaker *infra.Breaker
	Dispatcher  *worker.Dispatcher
	DeadLetters *worker.DeadLetters
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(deps.DB)
	discountRepo := repository.NewDiscountRepository(deps.DB)
	orderRepo := repository.NewOrderRepository(deps.DB)
	scheduleRepo := repository.NewScheduleRepository(deps.DB)
	customerRepo := repository.NewCustomerRepository(deps.DB)
	movementRepo := repository.NewStockMovementRepository(deps.DB)
	catalogCache := repository.NewCatalogCache(deps.Redis, cfg.CatalogCacheTTL)

	// ── Services ─────────────────────────────────────────────────────────────
	inventorySvc := service.NewInventoryService(productRepo, movementRepo)
	productSvc := service.NewProductService(productRepo, discountRepo, orderRepo, catalogCache)
	discountSvc := service.NewDiscountService(productRepo, discountRepo, catalogCache)

	var notifier service.OrderNotifier
	if deps.Dispatcher != nil {
		notifier = deps.Dispatcher
	}
	orderSvc := service.NewOrderService(orderRepo, productRepo, discountRepo, scheduleRepo, customerRepo, inventorySvc, notifier)

	// ── Handlers ─────────────────────────────────────────────────────────────
	productsH := handler.NewProductsHandler(productSvc, inventorySvc)
	discountsH := handler.NewDiscountsHandler(discountSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	ordersH := handler.NewOrdersHandler(orderSvc, cfg.ShopName)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.Redis, deps.SMTPBreaker, deps.DeadLetters))

	catalog := r.Group("/v1/products")
	{
		catalog.GET("", productsH.List)
		catalog.GET("/:id", productsH.Get)
		catalog.GET("/:id/discounts", discountsH.List)
		catalog.GET("/:id/quote", productsH.Quote)
	}

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		staff := middleware.RequireRole(middleware.RoleStaff)
		anyone := middleware.RequireRole(middleware.RoleStaff, middleware.RoleCustomer)

		prods := v1.Group("/products", staff)
		{
			prods.POST("", productsH.Create)
			prods.PUT("/:id", productsH.Update)
			prods.DELETE("/:id", productsH.Delete)
			prods.PATCH("/:id/stock", productsH.AdjustStock)
			prods.PUT("/:id/discounts", discountsH.Replace)
			prods.DELETE("/:id/discounts", discountsH.DeleteAll)
		}

		v1.GET("/inventory/movements", staff, inventoryH.ListMovements)

		// Ownership of a single order is checked by the service.
		orders := v1.Group("/orders", anyone)
		{
			orders.POST("", ordersH.Create)
			orders.GET("", ordersH.List)
			orders.GET("/:id", ordersH.Get)
			orders.GET("/:id/slip", ordersH.Slip)
			orders.DELETE("/:id", ordersH.Delete)
			orders.POST("/:id/lines", ordersH.AddLine)
			orders.PUT("/:id/lines/:line_id", ordersH.UpdateLine)
			orders.DELETE("/:id/lines/:line_id", ordersH.DeleteLine)
			orders.PATCH("/:id/schedule", ordersH.UpdateSchedule)

			orders.PATCH("/:id/lines/:line_id/finish", staff, ordersH.FinishLine)
			orders.PATCH("/:id/status", staff, ordersH.UpdateStatus)
			orders.PATCH("/:id/payment", staff, ordersH.UpdatePayment)
		}
	}

	// Swagger UI is only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
