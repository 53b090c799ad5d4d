package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"hpmsklad/server/internal/models"
	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

const userContextKey = "user"

// RequestLogger логирует все запросы
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Printf("🌐 %s %s - Status: %d - Latency: %v", method, path, c.Writer.Status(), time.Since(start))
	}
}

// CORS для фронтенда
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// bearerToken берет токен из заголовка Authorization или параметра token (WebSocket)
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}

// AuthRequired проверяет токен и кладет пользователя в контекст
func AuthRequired(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Vyžadováno přihlášení",
			})
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(statusFor(err), gin.H{
				"error":   "Neplatný token",
				"details": err.Error(),
			})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequirePermission пропускает пользователя со всеми перечисленными правами
func RequirePermission(perms ...models.Opravneni) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Vyžadováno přihlášení",
			})
			return
		}
		if !user.HasPermission(perms...) {
			names := make([]string, len(perms))
			for i, p := range perms {
				names[i] = string(p)
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Nedostatečná oprávnění",
				"details": strings.Join(names, ", "),
			})
			return
		}
		c.Next()
	}
}

// currentUser пользователь из контекста (nil без AuthRequired)
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func currentActor(c *gin.Context) services.Actor {
	return services.ActorFromUser(currentUser(c))
}
