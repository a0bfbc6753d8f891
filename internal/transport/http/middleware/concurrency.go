package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimit 同时处理的请求上限；sqlite 下写事务串行，排队过长不如直接 503
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			if err := sem.Acquire(c.Request.Context(), 1); err != nil {
				reject(c, http.StatusServiceUnavailable, "concurrency")
				return
			}
		}
		defer sem.Release(1)
		c.Next()
	}
}
