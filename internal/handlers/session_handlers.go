package handlers

import (
	"net/http"

	"resto_order_backend/internal/models"
	"resto_order_backend/internal/session"
	"resto_order_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the session's dining selection.
type SessionHandler struct {
	sessions *session.Store
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *session.Store) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type setDiningRequest struct {
	DiningMode string `json:"dining_mode" binding:"required"`
	Capacity   int    `json:"capacity"`
}

// GetDining handles fetching the session's dining mode and party size.
func (h *SessionHandler) GetDining(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	mode, capacity, err := h.sessions.Dining(c.Request.Context(), sid)
	if err != nil {
		utils.LogError(err, "GetDining: Failed to read dining selection")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to read dining selection.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dining_mode": mode,
		"capacity":    capacity,
	})
}

// SetDining handles storing the session's dining mode and party size.
func (h *SessionHandler) SetDining(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req setDiningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}
	if !models.IsValidDiningMode(req.DiningMode) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid dining mode.", "dining_mode must be TakeAway or DineIn"))
		return
	}

	if err := h.sessions.SetDining(c.Request.Context(), sid, models.DiningMode(req.DiningMode), req.Capacity); err != nil {
		utils.LogError(err, "SetDining: Failed to save dining selection")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to save dining selection.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dining_mode": req.DiningMode,
		"capacity":    req.Capacity,
	})
}
