// File: internal/common/response.go
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggerContextKey is where middleware stores the request-scoped logger.
const LoggerContextKey = "logger"

// RespondWithError sends a JSON error response.
func RespondWithError(c *gin.Context, err error) {
	apiErr, ok := IsAPIError(err)
	if !ok {
		if l, exists := c.Get(LoggerContextKey); exists {
			if logger, ok := l.(*zap.Logger); ok {
				logger.Error("Unhandled internal error being wrapped", zap.Error(err))
			}
		}
		apiErr = ErrInternalServer.WithDetails(err.Error())
	}

	if apiErr.StatusCode == http.StatusNotModified {
		c.AbortWithStatus(http.StatusNotModified)
		return
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
}

// RespondJSON writes body with status 200.
func RespondJSON(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

// RespondCached writes body with a public Cache-Control max-age and, when etag is set,
// a quoted ETag header.
func RespondCached(c *gin.Context, maxAgeSeconds int, etag string, body interface{}) {
	SetCacheHeaders(c, maxAgeSeconds, etag)
	c.JSON(http.StatusOK, body)
}

// RespondNoContent sends a 204 No Content response.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
