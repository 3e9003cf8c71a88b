package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/util"
)

// SessionName is the cookie shared with the service that issues sessions
const SessionName = "biolink-session"

const sessionUserKey = "user_id"

// SessionConfig configures the signed cookie store
type SessionConfig struct {
	Secret string
	Secure bool
	MaxAge int
}

// Sessions installs the cookie-backed session store
func Sessions(cfg SessionConfig) gin.HandlerFunc {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 86400 * 30
	}

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(SessionName, store)
}

// LoadSession copies the session's user id into the gin context.
// Requests without a session pass through anonymously.
func LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if userID, ok := session.Get(sessionUserKey).(string); ok && userID != "" {
			c.Set(util.ContextUserIDKey, userID)
		}
		c.Next()
	}
}

// RequireAuth rejects requests that carry no session user
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := util.GetUserIDFromContext(c); !ok {
			return
		}
		c.Next()
	}
}

// SetSessionUser stores userID in the session cookie
func SetSessionUser(c *gin.Context, userID string) error {
	session := sessions.Default(c)
	session.Set(sessionUserKey, userID)
	return session.Save()
}

// ClearSession drops the session, e.g. after account deletion
func ClearSession(c *gin.Context) {
	c.Set(util.ContextUserIDKey, "")
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return
	}
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		logger.WarnWithFields("Failed to clear session", err)
	}
}
