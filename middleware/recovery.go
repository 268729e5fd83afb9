package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KOMKZ/tickerdesk/httpx"
	"github.com/KOMKZ/tickerdesk/logger"
)

// Recovery replaces gin.Recovery(): logs the panic with its stack and
// answers with the httpx 500 envelope, never the panic value
func Recovery() gin.HandlerFunc {
	log := logger.GetLogger("server")
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.ErrorCtx(c.Request.Context(), "panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("client_ip", c.ClientIP()),
					zap.String("stack", string(debug.Stack())),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, httpx.Response{
					Code: http.StatusInternalServerError,
					Msg:  "internal error",
				})
			}
		}()

		c.Next()
	}
}
