package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"grafik/internal/transport/http/ez"
)

// 这些 key 出现在 query 里时打码（重置链接、登录回跳等）
var sensitiveKeys = map[string]struct{}{
	"password": {}, "confirm_password": {}, "old_password": {}, "new_password": {},
	"token": {}, "authorization": {}, "secret": {},
}

// 探活与抓取请求量大且无信息量
var quietPaths = map[string]struct{}{"/health": {}, "/metrics": {}}

func maskQuery(kv map[string][]string) map[string][]string {
	out := make(map[string][]string, len(kv))
	for k, v := range kv {
		if _, ok := sensitiveKeys[strings.ToLower(k)]; ok {
			out[k] = []string{"****"}
			continue
		}
		out[k] = v
	}
	return out
}

// AccessLog 每个请求一行；5xx 记 error，4xx 记 warn
func AccessLog(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := quietPaths[route]; ok {
			return
		}
		status := c.Writer.Status()
		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		}
		ce := l.Check(level, "HTTP")
		if ce == nil {
			return
		}

		fields := []zap.Field{
			zap.String("rid", RID(c)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.Int("size", c.Writer.Size()),
		}
		if u := ez.CurrentUser(c); u != nil {
			fields = append(fields, zap.Uint("uid", u.ID), zap.String("role", string(u.Status)))
		}
		if q := c.Request.URL.Query(); len(q) > 0 {
			fields = append(fields, zap.Any("query", maskQuery(q)))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		ce.Write(fields...)
	}
}
