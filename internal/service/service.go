// Package service 业务核心：报名引擎、金牌员工自动报名、结算批量编辑、归档/清理、导入导出、账户
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"grafik/internal/core/auth"
	"grafik/internal/core/cache"
	"grafik/internal/notify"
	"grafik/internal/repo"
)

const eventsCacheKey = "events"

// Deps 显式注入，不使用全局对象
type Deps struct {
	Store     *repo.Store
	Notifier  notify.Notifier
	Cache     *cache.Cache // 可为 nil
	JWT       *auth.JWTer
	Log       *zap.Logger
	BaseURL   string
	EventsTTL time.Duration
	Now       func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) today() time.Time {
	y, m, dd := d.now().Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

// invalidateEvents 日历缓存失效；失败仅记录，TTL 兜底
func (d *Deps) invalidateEvents(ctx context.Context) {
	if err := d.Cache.Invalidate(ctx, eventsCacheKey); err != nil {
		d.Log.Warn("invalidate events cache", zap.Error(err))
	}
}

// notifyAll 逐条投递，失败只记录，返回失败条数
func (d *Deps) notifyAll(ctx context.Context, msgs []notify.Message) int {
	failed := 0
	for _, m := range msgs {
		if err := d.Notifier.Notify(ctx, m); err != nil {
			failed++
			d.Log.Error("notify failed",
				zap.Strings("to", m.To), zap.String("template", m.Template), zap.Error(err))
		}
	}
	return failed
}

// Services 供 transport 层使用的全部服务
type Services struct {
	Users   *UserService
	Trips   *TripService
	Signups *SignupService
	Admin   *AdminService
	Sheets  *SheetService
}

func New(d *Deps) *Services {
	return &Services{
		Users:   &UserService{d: d},
		Trips:   &TripService{d: d},
		Signups: &SignupService{d: d},
		Admin:   &AdminService{d: d},
		Sheets:  &SheetService{d: d},
	}
}
