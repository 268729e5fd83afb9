package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig CORS configuration
type CORSConfig struct {
	// AllowOrigins default ["*"]
	AllowOrigins []string `mapstructure:"allow_origins"`

	// AllowMethods default GET, HEAD, OPTIONS
	AllowMethods []string `mapstructure:"allow_methods"`

	// AllowHeaders default Origin, Content-Type, Accept
	AllowHeaders []string `mapstructure:"allow_headers"`

	ExposeHeaders []string `mapstructure:"expose_headers"`

	// AllowCredentials cannot be combined with "*" origins
	AllowCredentials bool `mapstructure:"allow_credentials"`

	// MaxAge preflight cache in seconds (default 43200)
	MaxAge int `mapstructure:"max_age"`
}

// DefaultCORSConfig read-only API open to every origin
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{TraceIDHeaderDefault},
		MaxAge:        43200,
	}
}

// CORS with the default configuration
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig answers preflight requests with 204 and sets CORS headers
// Requests from origins outside AllowOrigins pass through without headers.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	d := DefaultCORSConfig()
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = d.AllowOrigins
	}
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = d.AllowMethods
	}
	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = d.AllowHeaders
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = d.MaxAge
	}

	wildcard := len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*"
	allowed := make(map[string]bool, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		allowed[o] = true
	}
	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowOrigin := ""
		switch {
		case wildcard:
			allowOrigin = "*"
		case origin != "" && allowed[origin]:
			allowOrigin = origin
		}
		if allowOrigin == "" && origin != "" {
			c.Next()
			return
		}

		h := c.Writer.Header()
		if allowOrigin != "" {
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			if allowOrigin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		if exposeHeaders != "" {
			h.Set("Access-Control-Expose-Headers", exposeHeaders)
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
