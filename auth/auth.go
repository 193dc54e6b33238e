// Package auth guards the relay's operational endpoints. It has no notion
// of end users: the relay does not authenticate identities, only operators.
package auth

import (
	"fmt"
	"os"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const adminTokenLifetime = 24 * time.Hour

// JwtMiddleware requires a valid HS256 bearer token signed with
// NT_JWT_SECRET.
func JwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		jwtSecret := os.Getenv("NT_JWT_SECRET")
		if jwtSecret == "" {
			c.JSON(503, gin.H{"error": "Admin access not configured"})
			c.Abort()
			return
		}

		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.JSON(401, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(401, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			c.Set("subject", claims["sub"])
		}

		c.Next()
	}
}

func GenerateJWT(subject string, lifetime time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(lifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	jwtSecret := os.Getenv("NT_JWT_SECRET")
	if jwtSecret == "" {
		return "", fmt.Errorf("NT_JWT_SECRET is not set")
	}
	return token.SignedString([]byte(jwtSecret))
}

// HandleAdminLogin exchanges the operator key for a bearer token. The key
// is never stored; only its bcrypt hash lives in NT_ADMIN_KEY_HASH.
func HandleAdminLogin(c *gin.Context) {
	var json struct {
		Key string `json:"key"`
	}
	if err := c.BindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request data"})
		return
	}

	keyHash := os.Getenv("NT_ADMIN_KEY_HASH")
	if keyHash == "" || os.Getenv("NT_JWT_SECRET") == "" {
		c.JSON(503, gin.H{"error": "Admin access not configured"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(json.Key)); err != nil {
		c.JSON(401, gin.H{"error": "Incorrect admin key"})
		return
	}

	token, err := GenerateJWT("admin", adminTokenLifetime)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(200, gin.H{"auth_token": token})
}
