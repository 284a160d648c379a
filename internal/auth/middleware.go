package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dashboard/internal/session"
)

// CookieName carries the session token for browser requests.
const CookieName = "dashboard_session"

const sessionKey = "session"

// SessionAuth accepts a bearer token or the session cookie, loads the
// session it names and stores it on the context. onGone, when set, is called
// with the id of a validly signed token whose session no longer exists.
func SessionAuth(signingKey, issuer string, store session.Store, onGone func(sessionID string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearer(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		sess, err := store.Get(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				if onGone != nil {
					onGone(claims.Subject)
				}
			} else {
				log.Printf("session lookup failed: %v", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// Current returns the session placed by SessionAuth.
func Current(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := v.(session.Session)
	return sess, ok
}

func bearer(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if authz != "" && strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}
