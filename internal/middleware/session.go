package middleware

import (
	"net/http"
	"strings"

	"golang-ordering-backend/internal/models"
	"golang-ordering-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionKey = "session"

// GuestSessionHeader carries the anonymous session id; it is minted on the
// first request and echoed back so the client can persist it.
const GuestSessionHeader = "X-Session-ID"

type SessionMiddleware struct {
	jwtManager *auth.JWTManager
}

func NewSessionMiddleware(jwtManager *auth.JWTManager) *SessionMiddleware {
	return &SessionMiddleware{jwtManager: jwtManager}
}

// Resolve derives the session mode for the request: a valid bearer token
// makes it authenticated, anything else runs as an anonymous guest session.
// The mode decides which cart backend the services use.
func (m *SessionMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
				c.Abort()
				return
			}

			claims, err := m.jwtManager.ValidateToken(tokenParts[1])
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				c.Abort()
				return
			}

			c.Set(sessionKey, &models.Session{
				ID:     claims.UserID,
				Mode:   models.ModeAuthenticated,
				UserID: claims.UserID,
				Token:  tokenParts[1],
			})
			c.Next()
			return
		}

		guestID := c.GetHeader(GuestSessionHeader)
		if guestID == "" {
			guestID = uuid.NewString()
		}
		c.Header(GuestSessionHeader, guestID)

		c.Set(sessionKey, &models.Session{
			ID:   guestID,
			Mode: models.ModeAnonymous,
		})
		c.Next()
	}
}

// AuthRequired rejects anonymous sessions; used for operations that only
// exist after login, like the guest cart migration.
func (m *SessionMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil || !sess.Authenticated() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetSession extracts the resolved session from the request context.
func GetSession(c *gin.Context) *models.Session {
	if value, exists := c.Get(sessionKey); exists {
		if sess, ok := value.(*models.Session); ok {
			return sess
		}
	}
	return nil
}
