package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"resto_order_backend/internal/services"
	"resto_order_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// PaymentHandler holds the payment service.
type PaymentHandler struct {
	paymentService services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ps services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

// Pay handles settling a pending order. Re-paying an already settled order
// returns the order unchanged.
func (h *PaymentHandler) Pay(c *gin.Context) {
	idStr := c.Param("id")
	orderID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order ID format.", err.Error()))
		return
	}

	order, err := h.paymentService.Pay(c.Request.Context(), orderID)
	if err != nil {
		utils.LogError(err, "Pay: Error from paymentService.Pay for ID "+idStr)
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to pay order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}
