package ez

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	resp "grafik/internal/transport/http/response"
)

const (
	KeyRequestID = "X-Request-ID"
	FlashCookie  = "flash"
	LoginPath    = "/login"
)

// Result 带提示的返回值；Location 覆盖 Action.Redirect
type Result struct {
	Level    string
	Message  string
	Data     any
	Location string
}

// File 文件下载
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// WantsJSON AJAX / JSON 客户端返回 JSON，其余表单请求走 303 跳转；GET 没有页面，总是 JSON
func WantsJSON(c *gin.Context) bool {
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		return true
	}
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(c.ContentType(), "application/json")
}

func respond(c *gin.Context, location string, out any) {
	switch v := out.(type) {
	case File:
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
			asciiName(v.Name), url.PathEscape(v.Name)))
		c.Data(http.StatusOK, v.ContentType, v.Body)
		return
	case *File:
		respond(c, location, *v)
		return
	case Result:
		if v.Location != "" {
			location = v.Location
		}
		if WantsJSON(c) {
			c.JSON(http.StatusOK, resp.Flash(v.Level, v.Message, v.Data))
			return
		}
		if v.Message != "" {
			SetFlash(c, v.Level, v.Message)
		}
		redirect(c, location)
		return
	}
	if WantsJSON(c) {
		c.JSON(http.StatusOK, resp.OK(out))
		return
	}
	redirect(c, location)
}

// Abort 失败响应：JSON 带真实状态码；表单请求写 flash 并 303 跳回
func Abort(c *gin.Context, ae *AErr, back string) {
	if WantsJSON(c) {
		c.AbortWithStatusJSON(ae.Code, resp.Error(ae.Code, ae.Msg))
		return
	}
	level := ae.Level
	if level == "" {
		level = resp.StatusError
	}
	if ae.Code == http.StatusUnauthorized {
		back = LoginPath
	}
	SetFlash(c, level, ae.Msg)
	redirect(c, back)
	c.Abort()
}

func redirect(c *gin.Context, location string) {
	if location == "" {
		location = sameOriginReferer(c)
	}
	c.Redirect(http.StatusSeeOther, location)
}

// sameOriginReferer 只接受同源 Referer，避免开放重定向
func sameOriginReferer(c *gin.Context) string {
	ref, err := url.Parse(c.GetHeader("Referer"))
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != c.Request.Host) {
		return "/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

func asciiName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FlashMsg 一次性提示，前端读取后清除
type FlashMsg struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func secure(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}

func SetFlash(c *gin.Context, level, msg string) {
	b, _ := json.Marshal(FlashMsg{Level: level, Message: msg})
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, base64.RawURLEncoding.EncodeToString(b), 60, "/", "", secure(c), false)
}

// PopFlash 读取并清除 flash cookie
func PopFlash(c *gin.Context) (FlashMsg, bool) {
	var f FlashMsg
	raw, err := c.Cookie(FlashCookie)
	if err != nil || raw == "" {
		return f, false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, "", -1, "/", "", secure(c), false)
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || json.Unmarshal(b, &f) != nil {
		return FlashMsg{}, false
	}
	return f, true
}
