package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"grafik/internal/core/config"
)

const (
	ModeSync  = "sync"
	ModeRedis = "redis"
	ModeAMQP  = "amqp"
)

func SMTPFromConfig(c config.Mail) SMTPConfig {
	return SMTPConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		Sender:   c.Sender,
		TLS:      c.TLS,
	}
}

// FromConfig 启动时按 queue.mode 选择实现；返回的 closer 释放 broker 连接
func FromConfig(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *zap.Logger) (Notifier, func(), error) {
	noop := func() {}
	switch cfg.Queue.Mode {
	case ModeSync, "":
		r, err := NewRenderer()
		if err != nil {
			return nil, noop, err
		}
		d := &Deliverer{Renderer: r, Mailer: NewSMTPMailer(SMTPFromConfig(cfg.Mail)), Log: log}
		return NewImmediate(d), noop, nil
	case ModeRedis:
		if rdb == nil {
			return nil, noop, fmt.Errorf("queue.mode=redis requires redis.enable")
		}
		return NewRedisQueue(rdb, cfg.Queue.RedisKey, cfg.Queue.MaxAttempts, log.Named("queue")), noop, nil
	case ModeAMQP:
		mq, err := NewRabbitMQ(ctx, cfg.Queue.AMQP.URL, log.Named("amqp"))
		if err != nil {
			return nil, noop, err
		}
		if err := mq.SetupTopology(cfg.Queue.AMQP.Exchange, cfg.Queue.AMQP.Queue); err != nil {
			mq.Close()
			return nil, noop, err
		}
		q := NewAMQPQueue(mq, cfg.Queue.AMQP.Exchange, cfg.Queue.AMQP.Queue, cfg.Queue.MaxAttempts, log.Named("queue"))
		return q, mq.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown queue.mode %q", cfg.Queue.Mode)
	}
}
