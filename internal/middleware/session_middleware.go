package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxSessionID is the context key holding the request's session ID.
const CtxSessionID = "sessionID"

const sessionCookieName = "session_id"

// Cookie lifetime in seconds. The server-side session in Redis expires on
// its own idle TTL, so a stale cookie just starts a fresh session.
const sessionCookieMaxAge = 7 * 24 * 60 * 60

// SessionMiddleware guarantees every request carries a session ID, minting
// one in a cookie when the client has none yet.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(sessionCookieName)
		if err != nil || sessionID == "" {
			sessionID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookieName, sessionID, sessionCookieMaxAge, "/", "", false, true)
		}
		c.Set(CtxSessionID, sessionID)
		c.Next()
	}
}
