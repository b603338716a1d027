package router

import (
	"resto_order_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupSessionRoutes sets up the dining selection routes.
func SetupSessionRoutes(customerGroup *gin.RouterGroup, sessionHandler *handlers.SessionHandler) {
	sessionRoutes := customerGroup.Group("/session")
	{
		sessionRoutes.GET("/dining", sessionHandler.GetDining)
		sessionRoutes.POST("/dining", sessionHandler.SetDining)
	}
}

// SetupCartRoutes sets up the session cart routes.
func SetupCartRoutes(customerGroup *gin.RouterGroup, cartHandler *handlers.CartHandler) {
	cartRoutes := customerGroup.Group("/cart")
	{
		cartRoutes.GET("", cartHandler.GetCart)
		cartRoutes.POST("/items", cartHandler.AddItem)
		cartRoutes.PATCH("/items/quantity", cartHandler.UpdateQuantity)
		cartRoutes.DELETE("/items", cartHandler.RemoveItem)
		cartRoutes.POST("/voucher", cartHandler.ApplyVoucher)
		cartRoutes.POST("/voucher/add", cartHandler.AddVoucher)
		cartRoutes.DELETE("/voucher", cartHandler.RemoveVoucher)
	}
}

// SetupOrderRoutes sets up the customer order routes.
func SetupOrderRoutes(customerGroup *gin.RouterGroup, orderHandler *handlers.OrderHandler, paymentHandler *handlers.PaymentHandler) {
	orderRoutes := customerGroup.Group("/orders")
	{
		orderRoutes.POST("/checkout", orderHandler.Checkout)
		orderRoutes.GET("/current", orderHandler.CurrentOrder)
		orderRoutes.GET("/pending", orderHandler.HasPendingOrder)
		orderRoutes.GET("/history", orderHandler.History)
		orderRoutes.POST("/:id/pay", paymentHandler.Pay)
	}
}

// SetupVoucherRoutes sets up the customer voucher routes.
func SetupVoucherRoutes(customerGroup *gin.RouterGroup, voucherHandler *handlers.VoucherHandler) {
	voucherRoutes := customerGroup.Group("/vouchers")
	{
		voucherRoutes.GET("", voucherHandler.ListRedeemable)
		voucherRoutes.POST("/:id/redeem", voucherHandler.Redeem)
		voucherRoutes.GET("/mine", voucherHandler.MyVouchers)
		voucherRoutes.GET("/for-product/:productId", voucherHandler.VouchersForProduct)
	}
	customerGroup.GET("/member-vouchers/:id/used", voucherHandler.IsUsed)
}

// SetupAdminOrderRoutes sets up the admin order management routes.
func SetupAdminOrderRoutes(adminGroup *gin.RouterGroup, orderHandler *handlers.OrderHandler) {
	orderRoutes := adminGroup.Group("/orders")
	{
		orderRoutes.GET("", orderHandler.GetOrders)
		orderRoutes.GET("/:id", orderHandler.GetOrderByID)
		orderRoutes.PUT("/:id", orderHandler.UpdateOrder)
		orderRoutes.DELETE("/:id", orderHandler.DeleteOrder)
	}
}

// SetupAdminVoucherRoutes sets up the admin voucher management routes.
func SetupAdminVoucherRoutes(adminGroup *gin.RouterGroup, voucherHandler *handlers.VoucherHandler) {
	voucherRoutes := adminGroup.Group("/vouchers")
	{
		voucherRoutes.DELETE("/:id", voucherHandler.DeleteVoucher)
	}
}
