package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"grafik/internal/core/config"
	"grafik/internal/core/server"
	"grafik/internal/domain"
	"grafik/internal/service"
	"grafik/internal/transport/http/ez"
	"grafik/internal/transport/http/handler"
	mdw "grafik/internal/transport/http/middleware"
)

type Options struct {
	Mode           string
	AllowedOrigins []string
	Limits         config.Limits
	TokenTTL       time.Duration
	CookieSecure   bool
	// Pinger 健康检查用，可为空
	Pinger func() error
}

func withDefaults(l config.Limits) config.Limits {
	if l.RPS <= 0 {
		l.RPS = 200
	}
	if l.Burst <= 0 {
		l.Burst = 400
	}
	if l.PerIPRPS <= 0 {
		l.PerIPRPS = 20
	}
	if l.PerIPBurst <= 0 {
		l.PerIPBurst = 40
	}
	if l.Concurrency <= 0 {
		l.Concurrency = 300
	}
	if l.MaxBodyMB <= 0 {
		l.MaxBodyMB = 16
	}
	if l.TimeoutSec <= 0 {
		l.TimeoutSec = 30
	}
	return l
}

// NewAPIEngine 组装中间件与全部模块
func NewAPIEngine(l *zap.Logger, svc *service.Services, o Options) *gin.Engine {
	if err := ez.RegisterValidators(); err != nil {
		l.Warn("register validators", zap.Error(err))
	}
	lim := withDefaults(o.Limits)

	r := server.NewRouter(l, server.Options{Mode: o.Mode, AllowedOrigins: o.AllowedOrigins})
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.RateLimitPerIP(rate.Limit(lim.PerIPRPS), lim.PerIPBurst),
		mdw.ConcurrencyLimit(lim.Concurrency),
		mdw.MaxBodyBytes(lim.MaxBodyMB<<20),
		mdw.Timeout(time.Duration(lim.TimeoutSec)*time.Second),
		mdw.SimpleRecovery(l),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) {
		if o.Pinger != nil {
			if err := o.Pinger(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": 0})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	reg := &Registry{}
	reg.Register(
		&handler.Auth{Users: svc.Users, Log: l, TokenTTL: o.TokenTTL, CookieSecure: o.CookieSecure},
		&handler.Profile{Users: svc.Users, Log: l},
		&handler.Trips{Trips: svc.Trips, Signups: svc.Signups, Log: l},
		&handler.Admin{Admin: svc.Admin, Sheets: svc.Sheets, Log: l},
	)

	root := r.Group("")
	root.Use(mdw.LoadUser(svc.Users, l))
	reg.MountAllPublic(root)

	authed := root.Group("")
	authed.Use(mdw.RequireUser())
	reg.MountAllAPI(authed)

	admin := authed.Group("/admin")
	admin.Use(mdw.RequireRoles(domain.StatusAdmin, domain.StatusManager))
	reg.MountAllAdmin(admin)

	return r
}
