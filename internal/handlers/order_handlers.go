package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"resto_order_backend/internal/models"
	"resto_order_backend/internal/services"
	"resto_order_backend/internal/session"
	"resto_order_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler holds the order service and the session store checkout
// consumes the cart from.
type OrderHandler struct {
	orderService services.OrderService
	sessions     *session.Store
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService, sessions *session.Store) *OrderHandler {
	return &OrderHandler{orderService: os, sessions: sessions}
}

// Checkout folds the session cart into the caller's pending order. The cart
// is cleared only after the order transaction committed.
func (h *OrderHandler) Checkout(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	identity, err := resolveIdentity(c, h.sessions, sid, true)
	if err != nil {
		utils.LogError(err, "Checkout: Failed to resolve identity")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to resolve identity.", "Internal error"))
		return
	}

	mode, capacity, err := h.sessions.Dining(c.Request.Context(), sid)
	if err != nil {
		utils.LogError(err, "Checkout: Failed to read dining selection")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to read dining selection.", "Internal error"))
		return
	}
	cart, err := h.sessions.Cart(c.Request.Context(), sid)
	if err != nil {
		utils.LogError(err, "Checkout: Failed to read session cart")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to read cart.", "Internal error"))
		return
	}

	order, err := h.orderService.Checkout(services.CheckoutInput{
		Identity: identity,
		Mode:     mode,
		Capacity: capacity,
		Cart:     cart,
	})
	if err != nil {
		utils.LogError(err, "Checkout: Error from orderService.Checkout")
		if errors.Is(err, services.ErrCartEmpty) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Cart is empty.", err.Error()))
		} else if errors.Is(err, services.ErrNoTableAvailable) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "No table available for the requested party size.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid checkout request.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Checkout failed.", "Internal error"))
		}
		return
	}

	if err := h.sessions.ClearCart(c.Request.Context(), sid); err != nil {
		// The order is committed, so a cart left behind is only a cosmetic
		// leftover. Report success but log it.
		utils.LogError(err, "Checkout: Failed to clear cart after successful checkout")
	}
	c.JSON(http.StatusOK, order)
}

// CurrentOrder handles fetching the caller's pending order for the
// session's dining mode.
func (h *OrderHandler) CurrentOrder(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	identity, err := resolveIdentity(c, h.sessions, sid, false)
	if err != nil {
		utils.LogError(err, "CurrentOrder: Failed to resolve identity")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to resolve identity.", "Internal error"))
		return
	}
	if !identity.Valid() {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "No pending order.", "No order identity for this session"))
		return
	}

	mode, _, err := h.sessions.Dining(c.Request.Context(), sid)
	if err != nil {
		utils.LogError(err, "CurrentOrder: Failed to read dining selection")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to read dining selection.", "Internal error"))
		return
	}

	order, err := h.orderService.CurrentOrder(identity, mode)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "No pending order.", err.Error()))
			return
		}
		utils.LogError(err, "CurrentOrder: Error from orderService.CurrentOrder")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch pending order.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, order)
}

// HasPendingOrder reports whether the caller has an unpaid order for the
// session's dining mode.
func (h *OrderHandler) HasPendingOrder(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	identity, err := resolveIdentity(c, h.sessions, sid, false)
	if err != nil {
		utils.LogError(err, "HasPendingOrder: Failed to resolve identity")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to resolve identity.", "Internal error"))
		return
	}
	if !identity.Valid() {
		c.JSON(http.StatusOK, gin.H{"pending": false})
		return
	}

	mode, _, err := h.sessions.Dining(c.Request.Context(), sid)
	if err != nil {
		utils.LogError(err, "HasPendingOrder: Failed to read dining selection")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to read dining selection.", "Internal error"))
		return
	}

	pending, err := h.orderService.HasPendingOrder(identity, mode)
	if err != nil {
		utils.LogError(err, "HasPendingOrder: Error from orderService.HasPendingOrder")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to check pending order.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

// History handles fetching the authenticated member's past orders.
func (h *OrderHandler) History(c *gin.Context) {
	memberID, ok := requireMemberID(c)
	if !ok {
		return
	}
	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page format.", "page must be a positive integer"))
			return
		}
		page = parsed
	}
	pageSize := 10
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		parsed, err := strconv.Atoi(pageSizeStr)
		if err != nil || parsed < 1 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page_size format.", "page_size must be a positive integer"))
			return
		}
		pageSize = parsed
	}

	orders, totalCount, err := h.orderService.History(memberID, page, pageSize)
	if err != nil {
		utils.LogError(err, "History: Error from orderService.History")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch order history.", "Internal error"))
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      orders,
		"total":     totalCount,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetOrders handles fetching all orders with filters (admin).
func (h *OrderHandler) GetOrders(c *gin.Context) {
	var filters models.OrderFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid query parameters: "+err.Error(), err.Error()))
		return
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 10
	}

	orders, totalCount, err := h.orderService.GetOrders(filters)
	if err != nil {
		utils.LogError(err, "GetOrders: Error from orderService.GetOrders")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch orders.", "Internal error"))
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      orders,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetOrderByID handles fetching a single order by ID with its items (admin).
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	idStr := c.Param("id")
	orderID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order ID format.", err.Error()))
		return
	}

	order, err := h.orderService.GetOrderByID(orderID)
	if err != nil {
		utils.LogError(err, "GetOrderByID: Error from orderService.GetOrderByID for ID "+idStr)
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrder handles the admin edit of an unpaid order's lines.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	idStr := c.Param("id")
	orderID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order ID format.", err.Error()))
		return
	}

	var req services.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	updatedOrder, err := h.orderService.UpdateOrder(orderID, req)
	if err != nil {
		utils.LogError(err, "UpdateOrder: Error from orderService.UpdateOrder for ID "+idStr)
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found to update.", err.Error()))
		} else if errors.Is(err, services.ErrOrderAlreadyPaid) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Order is already paid.", err.Error()))
		} else if errors.Is(err, services.ErrProductNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "One or more products not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, updatedOrder)
}

// DeleteOrder handles deleting an order (admin).
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	idStr := c.Param("id")
	orderID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order ID format.", err.Error()))
		return
	}

	err = h.orderService.DeleteOrder(orderID)
	if err != nil {
		utils.LogError(err, "DeleteOrder: Error from orderService.DeleteOrder for ID "+idStr)
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found to delete.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order and its items deleted successfully"})
}
