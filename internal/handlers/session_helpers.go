package handlers

import (
	"net/http"

	"resto_order_backend/internal/middleware"
	"resto_order_backend/internal/models"
	"resto_order_backend/internal/session"
	"resto_order_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// sessionID returns the request's session ID set by SessionMiddleware.
// Responds with an error and returns false when the middleware is missing.
func sessionID(c *gin.Context) (string, bool) {
	value, exists := c.Get(middleware.CtxSessionID)
	if !exists {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Session not initialized.", "Ensure SessionMiddleware runs first"))
		return "", false
	}
	sid, ok := value.(string)
	if !ok || sid == "" {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Session not initialized.", "Invalid session ID in context"))
		return "", false
	}
	return sid, true
}

// memberIDFrom returns the authenticated member ID, if any.
func memberIDFrom(c *gin.Context) (int64, bool) {
	value, exists := c.Get(middleware.CtxMemberID)
	if !exists {
		return 0, false
	}
	memberID, ok := value.(int64)
	return memberID, ok && memberID > 0
}

// requireMemberID responds with 401 when the request is not authenticated.
func requireMemberID(c *gin.Context) (int64, bool) {
	memberID, ok := memberIDFrom(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", "Missing member identity"))
		return 0, false
	}
	return memberID, true
}

// resolveIdentity builds the caller's order identity: the member ID when
// authenticated, otherwise the session's guest ID. With createGuest set, a
// guest ID is minted and persisted the first time it is needed.
func resolveIdentity(c *gin.Context, sessions *session.Store, sid string, createGuest bool) (models.Identity, error) {
	if memberID, ok := memberIDFrom(c); ok {
		return models.MemberIdentity(memberID), nil
	}

	guestID, err := sessions.GuestID(c.Request.Context(), sid)
	if err != nil {
		return models.Identity{}, err
	}
	if guestID == "" && createGuest {
		guestID = uuid.NewString()
		if err := sessions.SetGuestID(c.Request.Context(), sid, guestID); err != nil {
			return models.Identity{}, err
		}
	}
	if guestID == "" {
		return models.Identity{}, nil
	}
	return models.GuestIdentity(guestID), nil
}
