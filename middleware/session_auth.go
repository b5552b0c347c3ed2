package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	shell_errors "github.com/skyward-amo/portal-shell/errors"
	"github.com/skyward-amo/portal-shell/util"
)

// SessionAuth requires the authenticated tenant and subject headers set by
// the portal's auth front end. Token issuance and validation happen there;
// the shell service only consumes the resolved identity.
func SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		subjectID := c.GetHeader("X-Subject-ID")
		if tenantID == "" || subjectID == "" {
			util.RespondWithError(c, http.StatusUnauthorized, "Missing session identity", shell_errors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Set("tenantID", tenantID)
		c.Set("subjectID", subjectID)
		c.Next()
	}
}
