package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"grafik/internal/transport/http/ez"
)

const KeyRequestID = ez.KeyRequestID

// validRID 只接受上游传来的短 token，防止把换行之类写进日志
func validRID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(KeyRequestID)
		if !validRID(rid) {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Next()
	}
}

// RID 当前请求 id
func RID(c *gin.Context) string { return c.GetString(KeyRequestID) }
