// Package app api 与 worker 共用的启动装配
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"grafik/internal/core/config"
	"grafik/internal/core/database"
	"grafik/internal/core/logger"
)

// Bootstrap 读取 .env + 配置并构造日志；配置错误直接退出。process 为 api / worker
func Bootstrap(process string) (*config.Config, *zap.Logger, func()) {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// worker 每条日志对应一封邮件，不采样
	log, cleanup := logger.Build(logger.Options{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		AddCaller:  true,
		Process:    process,
		NoSampling: process == "worker",
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.File.Enable,
			Filename:   cfg.Log.File.Filename,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	undo := logger.RedirectStdLog(log, zapcore.InfoLevel)
	return cfg, log.With(zap.String("app", cfg.App.Name)), func() { undo(); cleanup() }
}

// MustOpenDB 失败直接 Fatal
func MustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Log:                l.Named("gorm"),
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}

// OpenRedis redis.enable=false 时返回 nil
func OpenRedis(ctx context.Context, cfg *config.Config, l *zap.Logger) *redis.Client {
	if !cfg.Redis.Enable {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		l.Fatal("redis ping", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	return rdb
}
