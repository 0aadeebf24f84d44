package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore forbids intermediaries and browsers from keeping exam responses,
// which carry question sets and graded answer keys.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
