// Package middleware provides gin middleware for the API server.
package middleware

import "github.com/wb-go/wbf/ginext"

// SecureHeaders sets conservative security headers on every response.
func SecureHeaders() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'self'")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")

		c.Next()
	}
}
