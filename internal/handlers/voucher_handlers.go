package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"resto_order_backend/internal/models"
	"resto_order_backend/internal/services"
	"resto_order_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// VoucherHandler holds the voucher service.
type VoucherHandler struct {
	voucherService services.VoucherService
}

// NewVoucherHandler creates a new VoucherHandler.
func NewVoucherHandler(vs services.VoucherService) *VoucherHandler {
	return &VoucherHandler{voucherService: vs}
}

// ListRedeemable handles fetching voucher definitions still under their
// redemption limit.
func (h *VoucherHandler) ListRedeemable(c *gin.Context) {
	vouchers, err := h.voucherService.ListRedeemable()
	if err != nil {
		utils.LogError(err, "ListRedeemable: Error from voucherService.ListRedeemable")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch vouchers.", "Internal error"))
		return
	}
	if vouchers == nil {
		vouchers = []models.Voucher{}
	}
	c.JSON(http.StatusOK, vouchers)
}

// Redeem handles exchanging the authenticated member's points for a voucher.
func (h *VoucherHandler) Redeem(c *gin.Context) {
	memberID, ok := requireMemberID(c)
	if !ok {
		return
	}
	idStr := c.Param("id")
	voucherID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid voucher ID format.", err.Error()))
		return
	}

	memberVoucher, err := h.voucherService.Redeem(memberID, voucherID)
	if err != nil {
		utils.LogError(err, "Redeem: Error from voucherService.Redeem for ID "+idStr)
		if errors.Is(err, services.ErrVoucherDefNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Voucher not found.", err.Error()))
		} else if errors.Is(err, services.ErrMemberNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Member not found.", err.Error()))
		} else if errors.Is(err, services.ErrVoucherLimitReached) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Voucher redemption limit reached.", err.Error()))
		} else if errors.Is(err, services.ErrInsufficientPoints) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Not enough points to redeem this voucher.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to redeem voucher.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, memberVoucher)
}

// MyVouchers handles listing the authenticated member's usable vouchers.
func (h *VoucherHandler) MyVouchers(c *gin.Context) {
	memberID, ok := requireMemberID(c)
	if !ok {
		return
	}
	vouchers, err := h.voucherService.MyVouchers(memberID)
	if err != nil {
		utils.LogError(err, "MyVouchers: Error from voucherService.MyVouchers")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch member vouchers.", "Internal error"))
		return
	}
	if vouchers == nil {
		vouchers = []models.MemberVoucher{}
	}
	c.JSON(http.StatusOK, vouchers)
}

// VouchersForProduct handles listing the member's usable vouchers linked to
// a specific product.
func (h *VoucherHandler) VouchersForProduct(c *gin.Context) {
	memberID, ok := requireMemberID(c)
	if !ok {
		return
	}
	productIDStr := c.Param("productId")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid product ID format.", err.Error()))
		return
	}

	vouchers, err := h.voucherService.VouchersForProduct(memberID, productID)
	if err != nil {
		utils.LogError(err, "VouchersForProduct: Error from voucherService.VouchersForProduct for product "+productIDStr)
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch member vouchers.", "Internal error"))
		return
	}
	if vouchers == nil {
		vouchers = []models.MemberVoucher{}
	}
	c.JSON(http.StatusOK, vouchers)
}

// IsUsed handles checking whether a member voucher has been consumed.
func (h *VoucherHandler) IsUsed(c *gin.Context) {
	idStr := c.Param("id")
	memberVoucherID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid member voucher ID format.", err.Error()))
		return
	}

	used, err := h.voucherService.IsUsed(memberVoucherID)
	if err != nil {
		utils.LogError(err, "IsUsed: Error from voucherService.IsUsed for ID "+idStr)
		if errors.Is(err, services.ErrVoucherNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Member voucher not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to check member voucher.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"used": used})
}

// DeleteVoucher handles removing a voucher definition and its redeemed
// instances (admin).
func (h *VoucherHandler) DeleteVoucher(c *gin.Context) {
	idStr := c.Param("id")
	voucherID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid voucher ID format.", err.Error()))
		return
	}

	err = h.voucherService.DeleteVoucher(voucherID)
	if err != nil {
		utils.LogError(err, "DeleteVoucher: Error from voucherService.DeleteVoucher for ID "+idStr)
		if errors.Is(err, services.ErrVoucherDefNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Voucher not found to delete.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete voucher.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Voucher and its redeemed instances deleted successfully"})
}
