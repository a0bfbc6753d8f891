package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	Mode           string // gin.DebugMode / gin.ReleaseMode / gin.TestMode
	AllowedOrigins []string
}

// NewRouter gin 引擎 + panic 恢复 + CORS（带 cookie 的表单请求需要 AllowCredentials）
func NewRouter(l *zap.Logger, o Options) *gin.Engine {
	if o.Mode != "" {
		gin.SetMode(o.Mode)
	}
	r := gin.New()
	r.Use(ginzap.RecoveryWithZap(l, true))

	cc := cors.DefaultConfig()
	if len(o.AllowedOrigins) > 0 {
		cc.AllowOrigins = o.AllowedOrigins
		cc.AllowCredentials = true
	} else {
		cc.AllowAllOrigins = true
	}
	cc.AddAllowHeaders("X-Requested-With", "X-Request-ID")
	r.Use(cors.New(cc))
	return r
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20,
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

// ModeFor app.env -> gin mode
func ModeFor(env string) string {
	switch env {
	case "prod", "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
