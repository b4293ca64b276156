package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spryntr/waitlist/pkg/errors"
	"github.com/spryntr/waitlist/pkg/response"
)

// AdminKeyHeader carries the operator access key.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards operator routes with a static access key, accepted from
// the X-Admin-Key header or a bearer token. With no key configured the
// routes answer 404 as if they did not exist.
func AdminKey(accessKey string) gin.HandlerFunc {
	accessKey = strings.TrimSpace(accessKey)

	return func(c *gin.Context) {
		if accessKey == "" {
			response.Error(c, errors.ErrNotFound)
			c.Abort()
			return
		}

		presented := strings.TrimSpace(c.GetHeader(AdminKeyHeader))
		if presented == "" {
			authz := c.GetHeader("Authorization")
			if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
				presented = strings.TrimSpace(authz[7:])
			}
		}

		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(accessKey)) != 1 {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
