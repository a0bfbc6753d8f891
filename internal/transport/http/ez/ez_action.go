package ez

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grafik/internal/domain"
)

// EZ 路由分组的轻封装
type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, log *zap.Logger) EZ { return EZ{g: g, log: log} }

func (e EZ) Group() *gin.RouterGroup { return e.g }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindForm  Binder = "form"  // 按 Content-Type 绑定 form/multipart/JSON
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.PostForm 取
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method string // "GET" | "POST" | "PUT" | "DELETE"
	Path   string // 例："/login"、"/trips/:id/signup"
	Binder Binder
	Auth   bool                // 是否要求登录
	Roles  []domain.UserStatus // 限定角色（可选）
	// Redirect 表单请求成功后的跳转地址，可含 :param；为空时回到 Referer
	Redirect string
	// Back 表单请求失败时的跳转地址；为空时回到 Referer
	Back    string
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth || len(a.Roles) > 0 {
			u := CurrentUser(c)
			if u == nil {
				e.fail(c, a.Back, Unauthorized(""))
				return
			}
			if len(a.Roles) > 0 && !hasRole(u.Status, a.Roles) {
				e.fail(c, a.Back, Forbidden(""))
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		case BindForm:
			bindErr = c.ShouldBind(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			e.fail(c, a.Back, BindError(bindErr))
			return
		}

		// 3) 执行 + 统一错误映射
		out, err := a.Handler(c, &in)
		if err != nil {
			e.fail(c, a.Back, err)
			return
		}
		respond(c, expand(a.Redirect, c), out)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

func (e EZ) fail(c *gin.Context, back string, err error) {
	ae := FromError(err)
	if ae.Code >= http.StatusInternalServerError && e.log != nil {
		e.log.Error("action failed",
			zap.String("rid", c.GetString(KeyRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	Abort(c, ae, expand(back, c))
}

func hasRole(s domain.UserStatus, roles []domain.UserStatus) bool {
	for _, r := range roles {
		if s == r {
			return true
		}
	}
	return false
}

// expand 把 "/trips/:id" 中的占位替换为当前请求的参数
func expand(path string, c *gin.Context) string {
	if path == "" || !strings.Contains(path, ":") {
		return path
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = c.Param(p[1:])
		}
	}
	return strings.Join(parts, "/")
}

// ParamID 路径中的正整数 id，非法时按 404 处理
func ParamID(c *gin.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, NotFound("")
	}
	return uint(n), nil
}
