package router

import (
	"database/sql"

	"resto_order_backend/internal/handlers"
	"resto_order_backend/internal/middleware"
	"resto_order_backend/internal/notification"
	"resto_order_backend/internal/repositories"
	"resto_order_backend/internal/services"
	"resto_order_backend/internal/session"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB, sessions *session.Store, publisher notification.ReceiptPublisher) {
	// Initialize Repositories
	catalogRepo := repositories.NewCatalogRepository(db)
	memberRepo := repositories.NewMemberRepository(db)
	tableRepo := repositories.NewTableRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	voucherRepo := repositories.NewVoucherRepository(db)

	// Initialize Services
	allocator := services.NewTableAllocator(tableRepo)
	cartService := services.NewCartService(catalogRepo, voucherRepo, db)
	orderService := services.NewOrderService(orderRepo, catalogRepo, voucherRepo, tableRepo, allocator, db)
	paymentService := services.NewPaymentService(orderRepo, memberRepo, allocator, publisher, db)
	voucherService := services.NewVoucherService(voucherRepo, memberRepo, db)

	// Initialize Handlers
	cartHandler := handlers.NewCartHandler(cartService, sessions)
	orderHandler := handlers.NewOrderHandler(orderService, sessions)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	voucherHandler := handlers.NewVoucherHandler(voucherService)
	sessionHandler := handlers.NewSessionHandler(sessions)

	apiV1 := engine.Group("/api/v1")

	// Customer-facing routes: a session cookie is always present, member
	// authentication is optional (guests order too).
	customer := apiV1.Group("")
	customer.Use(middleware.SessionMiddleware(), middleware.OptionalAuthMiddleware())
	{
		SetupSessionRoutes(customer, sessionHandler)
		SetupCartRoutes(customer, cartHandler)
		SetupOrderRoutes(customer, orderHandler, paymentHandler)
		SetupVoucherRoutes(customer, voucherHandler)
	}

	// Admin routes require a valid token with the right role.
	admin := apiV1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleAuthMiddleware("Admin"))
	{
		SetupAdminOrderRoutes(admin, orderHandler)
		SetupAdminVoucherRoutes(admin, voucherHandler)
	}
}
