package ez

import (
	"github.com/gin-gonic/gin"

	"grafik/internal/domain"
)

const KeyUser = "user"

func SetUser(c *gin.Context, u *domain.User) { c.Set(KeyUser, u) }

// CurrentUser 未登录时返回 nil
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(KeyUser)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}
