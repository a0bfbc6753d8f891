package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grafik/internal/domain"
	"grafik/internal/transport/http/ez"
)

// TokenCookie 会话 token 的 cookie 名
const TokenCookie = "token"

// Authenticator 由 service.UserService 实现
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

func tokenFrom(c *gin.Context) string {
	if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	if v, err := c.Cookie(TokenCookie); err == nil {
		return v
	}
	return ""
}

// LoadUser 有 token 就解析并加载用户；无 token 或 token 失效时按匿名继续
func LoadUser(a Authenticator, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := tokenFrom(c)
		if tok == "" {
			c.Next()
			return
		}
		u, err := a.Authenticate(c.Request.Context(), tok)
		switch {
		case err == nil:
			ez.SetUser(c, u)
		case errors.Is(err, domain.ErrAccountBlocked):
			c.SetCookie(TokenCookie, "", -1, "/", "", false, true)
			ez.Abort(c, ez.FromError(err), ez.LoginPath)
			return
		case !errors.Is(err, domain.ErrUnauthorized):
			l.Error("authenticate", zap.String("rid", RID(c)), zap.Error(err))
		}
		c.Next()
	}
}

// RequireUser 必须登录
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ez.CurrentUser(c) == nil {
			ez.Abort(c, ez.FromError(domain.ErrUnauthorized), ez.LoginPath)
			return
		}
		c.Next()
	}
}

// RequireRoles 角色门禁，放在 RequireUser 之后
func RequireRoles(roles ...domain.UserStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ez.CurrentUser(c)
		if u == nil {
			ez.Abort(c, ez.FromError(domain.ErrUnauthorized), ez.LoginPath)
			return
		}
		for _, r := range roles {
			if u.Status == r {
				c.Next()
				return
			}
		}
		ez.Abort(c, ez.FromError(domain.ErrForbidden), "/")
	}
}
