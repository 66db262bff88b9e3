// admin_only.go
package middleware

import (
	"github.com/gin-gonic/gin"

	"order-pipeline/internal/errs"
	"order-pipeline/internal/service"
)

// AdminOnly requires the admin permission on the caller AuthMiddleware stored.
// A nil service means authentication is off and the route stays open.
func AdminOnly(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			c.Next()
			return
		}
		user, ok := c.Get(ctxAuthUser)
		if !ok {
			abortWithError(c, errs.New(errs.CodeUnauthorized, "authentication required"))
			return
		}
		if !authService.IsAdmin(user.(*service.AuthUser)) {
			abortWithError(c, errs.New(errs.CodeForbidden, "admin privileges required"))
			return
		}
		c.Next()
	}
}
