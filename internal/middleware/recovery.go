package middleware

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spryntr/waitlist/pkg/errors"
	"github.com/spryntr/waitlist/pkg/logger"
	"github.com/spryntr/waitlist/pkg/response"
)

// Recovery answers a panicking handler with the generic 500 envelope. The
// panic value is logged, never returned.
func Recovery() gin.HandlerFunc {
	log := logger.WithModule("http")
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		log.Error("handler panic",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Any("panic", recovered),
			zap.Stack("stack"),
		)
		response.Error(c, errors.ErrInternalServer)
		c.Abort()
	})
}

// NotFoundHandler answers unknown routes with the JSON 404 envelope.
func NotFoundHandler(c *gin.Context) {
	msg := fmt.Sprintf("route %s not found", c.Request.URL.Path)
	response.Error(c, errors.New(errors.ErrNotFound.Code, msg, errors.ErrNotFound.StatusCode))
}
