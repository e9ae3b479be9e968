package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heygw44/snapstock/internal/auth"
	"github.com/heygw44/snapstock/internal/models"
	"github.com/heygw44/snapstock/pkg/response"
)

// PrincipalKey is the gin context key holding the auth.Principal.
const PrincipalKey = "principal"

// RequestAuthenticator is the minimal interface the middleware depends on
type RequestAuthenticator interface {
	Authenticate(ctx context.Context, authorization string) (auth.Principal, bool)
}

// Authenticate resolves the caller from the Authorization header and attaches
// the principal to the request context. It never rejects; use RequireAuth or
// RequireRole on routes that need a caller.
func Authenticate(a RequestAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := a.Authenticate(c.Request.Context(), c.GetHeader("Authorization")); ok {
			c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
			c.Set(PrincipalKey, p)
		}
		c.Next()
	}
}

// Principal returns the caller attached by Authenticate.
func Principal(c *gin.Context) (auth.Principal, bool) {
	return auth.PrincipalFrom(c.Request.Context())
}

// RequireAuth rejects requests without a principal with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Principal(c); !ok {
			response.Fail(c, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole rejects requests without a principal with 401 and callers
// holding another role with 403.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := Principal(c)
		if !ok {
			response.Fail(c, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required")
			return
		}
		if p.Authority() != role.Authority() {
			response.Fail(c, http.StatusForbidden, response.CodeForbidden, "access denied")
			return
		}
		c.Next()
	}
}
