// Package handler HTTP 模块：每个模块实现 router 里的 Public/API/Admin 挂载接口
package handler

import (
	"github.com/gin-gonic/gin"

	"grafik/internal/domain"
)

var managers = []domain.UserStatus{domain.StatusAdmin, domain.StatusManager}

// parsedForm 解析 urlencoded/multipart 表单后返回 PostForm
func parsedForm(c *gin.Context) map[string][]string {
	if c.Request.PostForm == nil {
		_ = c.Request.ParseMultipartForm(32 << 20)
	}
	return c.Request.PostForm
}

// formValue 字段不存在时返回 nil
func formValue(c *gin.Context, key string) *string {
	vs, ok := parsedForm(c)[key]
	if !ok {
		return nil
	}
	v := ""
	if len(vs) > 0 {
		v = vs[0]
	}
	return &v
}

func formHas(c *gin.Context, key string) bool {
	_, ok := parsedForm(c)[key]
	return ok
}
