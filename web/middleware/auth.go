package middleware

import (
	"net/http"
	"strings"

	"hitechstore/utils"
	"hitechstore/web/db"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// RequireAuth validates the Bearer token, loads the user and stores it in the
// context under "user".
func RequireAuth(conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == "" || tokenString == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Accès non autorisé. Token manquant",
			})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(utils.JWTSecret()), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Accès non autorisé. Token invalide",
			})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Accès non autorisé. Token invalide",
			})
			return
		}

		sub, ok := claims["sub"].(float64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Accès non autorisé. Token invalide",
			})
			return
		}

		var user db.User
		if err := conn.First(&user, uint(sub)).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Accès non autorisé. Utilisateur non trouvé",
			})
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// RequireAdmin gates a route to the admin role. Must run after RequireAuth.
func RequireAdmin(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok || user.(db.User).Role != db.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Accès refusé. Privilèges administrateur requis",
		})
		return
	}
	c.Next()
}
