package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/namanjh/socket-huddlegames/common/log"
)

// CorsMiddleware 跨域中间件
// origins 包含 "*" 时允许任意来源
func CorsMiddleware(origins []string, methods []string) MiddlewareFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost}
	}
	allowMethods := strings.Join(methods, ", ")

	return func(c *Context) error {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if allowAll {
				c.SetHeader("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok {
				c.SetHeader("Access-Control-Allow-Origin", origin)
				c.SetHeader("Vary", "Origin")
			}
			c.SetHeader("Access-Control-Allow-Methods", allowMethods)
			c.SetHeader("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
		}

		// 处理预检请求
		if c.Method() == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
		}
		return nil
	}
}

// LoggerMiddleware 日志中间件，记录方法、路径、状态码和耗时
func LoggerMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		start := time.Now()
		c.Next()
		log.Debug("HTTP %s %s from %s -> %d in %v", c.Method(), c.Path(), c.ClientIP(), c.Status(), time.Since(start))
		return nil
	}
}
