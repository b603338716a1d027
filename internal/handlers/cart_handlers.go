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

// CartHandler holds the cart service and the session store the carts live in.
type CartHandler struct {
	cartService services.CartService
	sessions    *session.Store
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(cs services.CartService, sessions *session.Store) *CartHandler {
	return &CartHandler{cartService: cs, sessions: sessions}
}

// --- Request payloads ---

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

type updateCartQuantityRequest struct {
	ProductID       int64  `json:"product_id" binding:"required"`
	MemberVoucherID *int64 `json:"member_voucher_id"`
	Quantity        int    `json:"quantity" binding:"required"`
}

type applyVoucherRequest struct {
	ProductID       int64 `json:"product_id" binding:"required"`
	MemberVoucherID int64 `json:"member_voucher_id" binding:"required"`
}

type addVoucherRequest struct {
	MemberVoucherID int64 `json:"member_voucher_id" binding:"required"`
}

func cartResponse(c *gin.Context, cart []models.CartItem) {
	c.JSON(http.StatusOK, gin.H{
		"items": cart,
		"total": models.CartTotal(cart),
	})
}

// respondCartError maps cart service errors onto the API error taxonomy.
func respondCartError(c *gin.Context, err error, operation string) {
	utils.LogError(err, operation+": Error from cartService")
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Product not found or not available.", err.Error()))
	case errors.Is(err, services.ErrCartItemNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found in cart.", err.Error()))
	case errors.Is(err, services.ErrVoucherNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Member voucher not found.", err.Error()))
	case errors.Is(err, services.ErrVoucherQuantityFixed):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Voucher line quantity cannot be changed.", err.Error()))
	case errors.Is(err, services.ErrVoucherWrongProduct):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Voucher does not apply to this product.", err.Error()))
	case errors.Is(err, services.ErrVoucherNotUsable):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Voucher is already used or expired.", err.Error()))
	case errors.Is(err, services.ErrVoucherAlreadyInCart):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Voucher is already in the cart.", err.Error()))
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid cart operation.", err.Error()))
	default:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Cart operation failed.", "Internal error"))
	}
}

// loadCart fetches the session cart, responding with an error on failure.
func (h *CartHandler) loadCart(c *gin.Context, sid string) ([]models.CartItem, bool) {
	cart, err := h.sessions.Cart(c.Request.Context(), sid)
	if err != nil {
		utils.LogError(err, "loadCart: Failed to read session cart")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to read cart.", "Internal error"))
		return nil, false
	}
	return cart, true
}

// saveCart persists the updated cart, responding with an error on failure.
func (h *CartHandler) saveCart(c *gin.Context, sid string, cart []models.CartItem) bool {
	if err := h.sessions.SaveCart(c.Request.Context(), sid, cart); err != nil {
		utils.LogError(err, "saveCart: Failed to persist session cart")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to save cart.", "Internal error"))
		return false
	}
	return true
}

// GetCart handles fetching the session cart.
func (h *CartHandler) GetCart(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	cart, ok := h.loadCart(c, sid)
	if !ok {
		return
	}
	cartResponse(c, cart)
}

// AddItem handles adding a catalog product to the cart.
func (h *CartHandler) AddItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	cart, ok := h.loadCart(c, sid)
	if !ok {
		return
	}
	cart, err := h.cartService.AddItem(cart, req.ProductID, req.Quantity)
	if err != nil {
		respondCartError(c, err, "AddItem")
		return
	}
	if !h.saveCart(c, sid, cart) {
		return
	}
	cartResponse(c, cart)
}

// UpdateQuantity handles changing the quantity of a cart line.
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req updateCartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	cart, ok := h.loadCart(c, sid)
	if !ok {
		return
	}
	cart, err := h.cartService.UpdateQuantity(cart, req.ProductID, req.MemberVoucherID, req.Quantity)
	if err != nil {
		respondCartError(c, err, "UpdateQuantity")
		return
	}
	if !h.saveCart(c, sid, cart) {
		return
	}
	cartResponse(c, cart)
}

// RemoveItem handles removing a plain product line from the cart.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(c.Query("product_id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid product_id format.", err.Error()))
		return
	}

	cart, ok := h.loadCart(c, sid)
	if !ok {
		return
	}
	cart, err = h.cartService.RemoveItem(cart, productID)
	if err != nil {
		respondCartError(c, err, "RemoveItem")
		return
	}
	if !h.saveCart(c, sid, cart) {
		return
	}
	cartResponse(c, cart)
}

// ApplyVoucher handles swapping one unit of a product line for a voucher line.
func (h *CartHandler) ApplyVoucher(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	memberID, ok := requireMemberID(c)
	if !ok {
		return
	}
	var req applyVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	cart, ok := h.loadCart(c, sid)
	if !ok {
		return
	}
	cart, err := h.cartService.ApplyVoucher(cart, memberID, req.ProductID, req.MemberVoucherID)
	if err != nil {
		respondCartError(c, err, "ApplyVoucher")
		return
	}
	if !h.saveCart(c, sid, cart) {
		return
	}
	cartResponse(c, cart)
}

// AddVoucher handles adding a standalone voucher line to the cart.
func (h *CartHandler) AddVoucher(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	memberID, ok := requireMemberID(c)
	if !ok {
		return
	}
	var req addVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	cart, ok := h.loadCart(c, sid)
	if !ok {
		return
	}
	cart, err := h.cartService.AddVoucherToCart(cart, memberID, req.MemberVoucherID)
	if err != nil {
		respondCartError(c, err, "AddVoucher")
		return
	}
	if !h.saveCart(c, sid, cart) {
		return
	}
	cartResponse(c, cart)
}

// RemoveVoucher handles removing a voucher line from the cart.
func (h *CartHandler) RemoveVoucher(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	memberVoucherID, err := strconv.ParseInt(c.Query("member_voucher_id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid member_voucher_id format.", err.Error()))
		return
	}

	cart, ok := h.loadCart(c, sid)
	if !ok {
		return
	}
	cart, err = h.cartService.RemoveVoucher(cart, memberVoucherID)
	if err != nil {
		respondCartError(c, err, "RemoveVoucher")
		return
	}
	if !h.saveCart(c, sid, cart) {
		return
	}
	cartResponse(c, cart)
}
