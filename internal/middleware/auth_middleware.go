// auth_middleware.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"order-pipeline/internal/errs"
	"order-pipeline/internal/service"
)

const (
	ctxUserID      = "userID"
	ctxPermissions = "userPermissions"
	ctxAuthUser    = "authUser"
)

// AuthMiddleware validates the bearer token and stores the caller in the gin
// context. A nil service disables authentication.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, errs.New(errs.CodeUnauthorized, "missing authorization header"))
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		user, err := authService.ValidateToken(token)
		if err != nil {
			abortWithError(c, errs.Wrap(errs.CodeUnauthorized, err, "invalid or expired token"))
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxPermissions, user.Permissions)
		c.Set(ctxAuthUser, user)
		c.Next()
	}
}

// RequireUser fails with Forbidden when an authenticated caller acts on
// another user's data. Unauthenticated contexts are let through.
func RequireUser(c *gin.Context, userID string) error {
	caller, ok := c.Get(ctxUserID)
	if !ok {
		return nil
	}
	if caller != userID {
		return errs.New(errs.CodeForbidden, "you cannot act on another user's cart or orders")
	}
	return nil
}

// SameUser applies RequireUser to a path parameter.
func SameUser(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := RequireUser(c, c.Param(param)); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}
