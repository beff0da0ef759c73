package middleware

import (
	"net/http"

	"campus-notes-platform/models"

	"github.com/gin-gonic/gin"
)

type RoleMiddleware struct{}

func NewRoleMiddleware() *RoleMiddleware {
	return &RoleMiddleware{}
}

func (r *RoleMiddleware) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error_code": "unauthorized",
				"message":    "User role not found",
			})
			c.Abort()
			return
		}

		hasRole := false
		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				hasRole = true
				break
			}
		}

		if !hasRole {
			c.JSON(http.StatusForbidden, gin.H{
				"error_code": "forbidden",
				"message":    "Insufficient permissions",
				"details": gin.H{
					"required_roles": allowedRoles,
					"user_role":      role,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	})
}

// AdminGuard restricts ingestion, update and delete of study material.
func (r *RoleMiddleware) AdminGuard() gin.HandlerFunc {
	return r.RequireRole(models.RoleAdmin)
}

// StudentGuard allows any authenticated campus user.
func (r *RoleMiddleware) StudentGuard() gin.HandlerFunc {
	return r.RequireRole(models.RoleStudent, models.RoleAdmin)
}

// Helper function to check if user is admin
func IsAdmin(c *gin.Context) bool {
	return GetRole(c) == models.RoleAdmin
}
