package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware starts the session for every request and writes it back
// once the handler chain finished. Expired sessions bounce to the
// login entry point with the expired indicator.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.Start(c)
		if err != nil {
			if errors.Is(err, ErrExpired) {
				c.Redirect(http.StatusFound, "/login?expired=1")
				c.Abort()
				return
			}
			// Store trouble degrades to an anonymous request instead
			// of failing it.
			sess = &Session{p: payload{Values: map[string]string{}}, destroyed: true}
		}

		c.Set(contextKey, sess)
		c.Next()

		if err := m.Save(c.Request.Context(), sess); err != nil {
			// Nothing actionable for the client at this point.
			_ = err
		}
	}
}

// RequireAuth redirects anonymous page requests to the login route.
func (m *Manager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := FromContext(c)
		if sess == nil || !sess.IsAuthenticated() {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAuthJSON is the AJAX variant: a JSON envelope instead of a
// redirect.
func (m *Manager) RequireAuthJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := FromContext(c)
		if sess == nil || !sess.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Not authorized",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin gates admin routes behind the live role check.
func (m *Manager) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := FromContext(c)
		if sess == nil || !sess.IsAuthenticated() {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		if !m.IsAdmin(sess) {
			sess.SetFlash("error", "Access denied. You do not have permission for this page.")
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
			return
		}
		c.Next()
	}
}
