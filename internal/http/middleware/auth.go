// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the API-key gate in front of the admin endpoints. The
// report exposes purchaser emails and supports bulk email sends, so every
// route behind the gate requires the shared admin key.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderAPIKey is the request header carrying the admin API key.
const HeaderAPIKey = "X-API-Key"

// APIKeyAuth returns a middleware requiring the configured admin key on
// every request. With an empty configured key the gate is disabled, which is
// only acceptable for local development.
//
// On success the client identity "admin" is stored under "clientID" for the
// rate limiter and the idempotency scope. Comparison is constant-time.
func APIKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Set("clientID", "admin")
			c.Next()
			return
		}

		got := c.GetHeader(HeaderAPIKey)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "missing or invalid API key",
			})
			return
		}

		c.Set("clientID", "admin")
		c.Next()
	}
}
