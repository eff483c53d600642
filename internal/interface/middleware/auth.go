package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kakomonhub/api/pkg/helpers"
	"github.com/kakomonhub/api/pkg/response"
)

const CtxUserIDKey = "userID"

// RequireSession guards API endpoints: it reads the provider access token
// from the session cookie, validates it, and injects the user id and email
// into the Gin context. API routes answer 401 JSON instead of redirecting.
func RequireSession(parser *helpers.SessionParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.AccessCookie)
		if err != nil || token == "" {
			response.AbortError(c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		claims, err := parser.Parse(token)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "invalid or expired session", nil)
			return
		}
		c.Set(CtxUserIDKey, claims.UserID())
		c.Set("userEmail", claims.Email)
		c.Next()
	}
}
