package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/inboxpilot/folderengine/internal/auth"
	"github.com/inboxpilot/folderengine/pkg/errors"
	"github.com/inboxpilot/folderengine/pkg/response"
)

const (
	CtxClaimsKey  = "authClaims"
	CtxServiceKey = "callingService"
)

// Auth enforces service-token authentication using the supplied token service.
func Auth(tokens *iauth.ServiceTokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := tokens.Validate(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxServiceKey, claims.Service)

		c.Next()
	}
}
