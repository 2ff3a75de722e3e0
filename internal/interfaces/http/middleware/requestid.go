package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the request identifier.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key under which the request ID is stored.
const requestIDKey = "request_id"

// RequestID returns middleware that ensures every request carries an
// identifier.  An inbound X-Request-ID is trusted and propagated; otherwise
// a fresh UUID is generated.  The ID is echoed on the response so clients
// can correlate logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFromContext returns the request ID set by RequestID, or "".
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

//Personal.AI order the ending
