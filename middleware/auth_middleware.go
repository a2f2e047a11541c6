package middleware

import (
	"net/http"
	"strings"

	"github.com/jennifer7519/fansafe/admin_system/controllers"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 校验 Authorization Bearer JWT，并将管理员用户名写入上下文。
func AuthMiddleware(auth *controllers.AuthController) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Missing authorization token"})
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Malformed authorization header"})
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
			return
		}

		c.Set("adminUsername", claims.Username)
		c.Next()
	}
}
