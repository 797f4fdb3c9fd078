package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

// Self grants access when the route's :id parameter is the caller's own user id.
const Self = "SELF"

// RBAC enforces role-based access control for routes. Pass Self to let students reach
// their own resources.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := lo.Contains(allowed, Self)
	roles := lo.SliceToMap(lo.Without(allowed, Self), func(a string) (models.UserRole, struct{}) {
		return models.UserRole(a), struct{}{}
	})

	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := roles[claims.Role]; ok {
			c.Next()
			return
		}
		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return RBAC(lo.Map(roles, func(r models.UserRole, _ int) string { return string(r) })...)
}
