package httpx

import (
	"github.com/gin-gonic/gin"
)

// Parse binds path, query and (when present) JSON body into req
// Missing uri/form tags are not errors; a malformed body is.
func Parse(c *gin.Context, req any) error {
	if len(c.Params) > 0 {
		_ = c.ShouldBindUri(req)
	}
	if err := c.ShouldBindQuery(req); err != nil {
		return err
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			return err
		}
	}
	return nil
}
