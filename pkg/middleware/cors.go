package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS answers preflight requests and sets CORS headers for allowed origins only.
// A "*" entry allows any origin but is never combined with credentials.
func CORS(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()
		if origin != "" && (allowed[origin] || allowed["*"]) {
			h.Add("Vary", "Origin")
			if allowed[origin] {
				h.Set("Access-Control-Allow-Origin", origin)
				if allowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			} else {
				h.Set("Access-Control-Allow-Origin", "*")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			h.Set("Access-Control-Expose-Headers", "Content-Length")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
