package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"go.uber.org/zap"

	"grafik/internal/app"
	"grafik/internal/core/auth"
	"grafik/internal/core/cache"
	"grafik/internal/core/database"
	"grafik/internal/core/server"
	"grafik/internal/notify"
	"grafik/internal/repo"
	"grafik/internal/service"
	"grafik/internal/transport/http/router"
)

func main() {
	cfg, log, cleanup := app.Bootstrap("api")
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 数据库（失败会直接 Fatal）
	db := app.MustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// redis 可选：日历缓存 + redis 队列
	rdb := app.OpenRedis(ctx, cfg, log)
	var c *cache.Cache
	if rdb != nil {
		c = cache.NewWithClient(rdb)
		defer func() { _ = c.Close() }()
	}

	notifier, closeNotifier, err := notify.FromConfig(ctx, cfg, rdb, log)
	if err != nil {
		log.Fatal("notifier", zap.String("mode", cfg.Queue.Mode), zap.Error(err))
	}
	defer closeNotifier()

	jwter := &auth.JWTer{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		TTL:      cfg.AccessTTL(),
		ResetTTL: cfg.ResetTTL(),
	}
	svc := service.New(&service.Deps{
		Store:     repo.NewStore(db),
		Notifier:  notifier,
		Cache:     c,
		JWT:       jwter,
		Log:       log.Named("service"),
		BaseURL:   cfg.App.BaseURL,
		EventsTTL: cfg.EventsTTL(),
	})

	r := router.NewAPIEngine(log, svc, router.Options{
		Mode:         server.ModeFor(cfg.App.Env),
		Limits:       cfg.Limits,
		TokenTTL:     cfg.AccessTTL(),
		CookieSecure: cfg.JWT.CookieSecure,
		Pinger: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)
	log.Info("api starting",
		zap.String("addr", addr),
		zap.String("open", cfg.App.BaseURL),
		zap.String("queue", cfg.Queue.Mode),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api start FAILED", zap.Error(err))
			os.Exit(1)
		}
	}()

	// 优雅关闭
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("api stopped gracefully")
}
