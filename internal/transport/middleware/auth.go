package middleware

import (
	"net/http"
	"strings"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/gin-gonic/gin"
)

const SessionKey = "session"

// TokenParser turns a bearer token into a session.
type TokenParser interface {
	ParseToken(token string) (*entity.Session, error)
}

// Authenticate requires a valid session token, taken from the Authorization
// header or, for websocket clients that cannot set headers, the token query
// parameter.
func Authenticate(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "authorization token is required")
			return
		}

		session, err := parser.ParseToken(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, err.Error())
			return
		}

		c.Set(SessionKey, session)
		c.Next()
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, entity.ErrUnauthorized.Error())
			return
		}
		if !session.IsAdmin() {
			abort(c, http.StatusForbidden, "administrator role required")
			return
		}
		c.Next()
	}
}

func SessionFrom(c *gin.Context) (*entity.Session, bool) {
	value, exists := c.Get(SessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*entity.Session)
	return session, ok && session != nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}
