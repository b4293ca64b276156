package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/spryntr/waitlist/internal/services"
)

// requestContext returns the request context, falling back to Background for
// handlers driven directly by tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// requestMeta extracts the client address and user agent recorded with a signup.
func requestMeta(c *gin.Context) services.RequestMeta {
	if c == nil || c.Request == nil {
		return services.RequestMeta{}
	}
	return services.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
