// util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/skyward-amo/portal-shell/logging"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

// SubjectFromContext returns the tenant and subject IDs the auth middleware
// stored on the request context. Empty strings mean no authenticated subject.
func SubjectFromContext(c *gin.Context) (tenantID, subjectID string) {
	if v, ok := c.Get("tenantID"); ok {
		tenantID, _ = v.(string)
	}
	if v, ok := c.Get("subjectID"); ok {
		subjectID, _ = v.(string)
	}
	return tenantID, subjectID
}
