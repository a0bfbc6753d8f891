package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grafik/internal/transport/http/ez"
)

// SimpleRecovery 记录带 rid 的 panic；表单请求同样跳回并提示
func SimpleRecovery(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic recovered",
					zap.String("rid", RID(c)),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))
				if !c.Writer.Written() {
					ez.Abort(c, ez.FromError(&ez.AErr{Code: http.StatusInternalServerError}), "")
				} else {
					c.Abort()
				}
			}
		}()
		c.Next()
	}
}
