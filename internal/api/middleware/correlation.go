package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the request correlation id end to end;
	// clients may supply their own, otherwise one is minted here
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key the id is stored under
	CorrelationIDKey = "correlation_id"
)

// CorrelationID tags every request with an id that ties API logs to
// settlement journal rows and worker logs
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(CorrelationIDKey, id)
		c.Header(CorrelationIDHeader, id)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation id, or "" when the
// middleware did not run
func GetCorrelationID(c *gin.Context) string {
	v, ok := c.Get(CorrelationIDKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}
