package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"grafik/internal/core/metrics"
	"grafik/internal/transport/http/ez"
)

// Metrics 按路由模板计数；未匹配的路径统一记为 unmatched，避免标签爆炸
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if route == "/metrics" {
			return
		}
		role := "anon"
		if u := ez.CurrentUser(c); u != nil {
			role = string(u.Status)
		}
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), role).Inc()
		metrics.HTTPLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// reject 中间件层面的拒绝：记指标，按请求类型返回 JSON 或 flash 跳转
func reject(c *gin.Context, code int, reason string) {
	metrics.HTTPRejected.WithLabelValues(reason).Inc()
	ez.Abort(c, ez.FromError(&ez.AErr{Code: code}), "")
}
