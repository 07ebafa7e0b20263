// File: internal/common/pagination.go
package common

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// PageQuery holds limit/offset pagination parameters from a request.
type PageQuery struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// GetPageParams extracts limit and offset from the query string.
// Unlike page-number pagination, out of range values are errors and not clamped.
func GetPageParams(c *gin.Context) (PageQuery, error) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil {
		return PageQuery{}, ErrBadRequest.WithMessage("Invalid limit or offset parameter")
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		return PageQuery{}, ErrBadRequest.WithMessage("Invalid limit or offset parameter")
	}
	if limit < 1 || limit > MaxLimit {
		return PageQuery{}, ErrBadRequest.WithMessage("Limit must be between 1 and %d", MaxLimit)
	}
	if offset < 0 {
		return PageQuery{}, ErrBadRequest.WithMessage("Offset must be non-negative")
	}
	return PageQuery{Limit: limit, Offset: offset}, nil
}

// SetCacheHeaders sets Cache-Control and a quoted ETag.
func SetCacheHeaders(c *gin.Context, maxAgeSeconds int, etag string) {
	c.Header("Cache-Control", "public, max-age="+strconv.Itoa(maxAgeSeconds))
	if etag != "" {
		c.Header("ETag", `"`+etag+`"`)
	}
}

// IfNoneMatch reports whether the request's If-None-Match header names etag.
func IfNoneMatch(c *gin.Context, etag string) bool {
	if etag == "" {
		return false
	}
	header := c.GetHeader("If-None-Match")
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if strings.Trim(candidate, `"`) == etag || candidate == "*" {
			return true
		}
	}
	return false
}
