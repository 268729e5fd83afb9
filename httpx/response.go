// Package httpx provides unified handling of HTTP requests/responses
package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KOMKZ/tickerdesk/errcode"
)

// Unified response format
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

// OkJson successful response
func OkJson(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code: 0,
		Msg:  "success",
		Data: data,
	})
}

// BadRequestJson 400 error response
func BadRequestJson(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Code: http.StatusBadRequest,
		Msg:  err.Error(),
	})
}

// NoRouteHandler for engine.NoRoute()
func NoRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Response{
			Code: http.StatusNotFound,
			Msg:  "route not found: " + c.Request.Method + " " + c.Request.URL.Path,
		})
	}
}

// NoMethodHandler for engine.NoMethod()
func NoMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, Response{
			Code: http.StatusMethodNotAllowed,
			Msg:  "method not allowed: " + c.Request.Method + " " + c.Request.URL.Path,
		})
	}
}

// HandleError writes err as a JSON response
// LayeredError: its HTTP status, code, message and data; internal-class
// errors keep their code but hide the message. Anything else is a 500.
// Logging is controlled by ErrorLoggingMiddleware.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	ctx := c.Request.Context()
	policy := policyFrom(c)

	var layeredErr *errcode.LayeredError
	if errors.As(err, &layeredErr) {
		if level, ok := policy.levelFor(layeredErr); ok {
			fields := []zap.Field{
				zap.String("route", c.FullPath()),
				zap.Int("error_code", layeredErr.Code()),
				zap.String("error_msg", layeredErr.Message()),
				zap.String("error_class", string(layeredErr.Class())),
			}
			if policy.chain {
				fields = append(fields,
					zap.String("error_chain", layeredErr.String()),
					zap.Error(err),
				)
			}
			logAt(ctx, level, "request failed", fields...)
		}

		resp := Response{
			Code: layeredErr.Code(),
			Msg:  layeredErr.Message(),
		}
		if layeredErr.Class() == errcode.ClassInternal {
			resp.Msg = "internal error"
		} else if data := layeredErr.Data(); len(data) > 0 {
			resp.Data = data
		}
		c.JSON(layeredErr.HTTPStatus(), resp)
		return
	}

	if policy.enabled {
		logAt(ctx, zapcore.ErrorLevel, "unexpected error", zap.String("route", c.FullPath()), zap.Error(err))
	}
	c.JSON(http.StatusInternalServerError, Response{
		Code: http.StatusInternalServerError,
		Msg:  "internal error",
	})
}
