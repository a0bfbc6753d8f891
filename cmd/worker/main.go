package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"go.uber.org/zap"

	"grafik/internal/app"
	"grafik/internal/notify"
)

// worker 消费邮件队列（redis 或 amqp）并经 SMTP 发信
func main() {
	cfg, log, cleanup := app.Bootstrap("worker")
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	renderer, err := notify.NewRenderer()
	if err != nil {
		log.Fatal("templates", zap.Error(err))
	}
	w := &notify.Worker{
		D: &notify.Deliverer{
			Renderer: renderer,
			Mailer:   notify.NewSMTPMailer(notify.SMTPFromConfig(cfg.Mail)),
			Log:      log.Named("mail"),
		},
		Log:     log.Named("worker"),
		Timeout: 30 * time.Second,
	}

	log.Info("worker starting", zap.String("mode", cfg.Queue.Mode), zap.Int("concurrency", cfg.Queue.Concurrency))
	switch cfg.Queue.Mode {
	case notify.ModeRedis:
		rdb := app.OpenRedis(ctx, cfg, log)
		if rdb == nil {
			log.Fatal("queue.mode=redis requires redis.enable")
		}
		defer func() { _ = rdb.Close() }()
		q := notify.NewRedisQueue(rdb, cfg.Queue.RedisKey, cfg.Queue.MaxAttempts, log.Named("queue"))
		err = q.Consume(ctx, cfg.Queue.Concurrency, w.Handle)
	case notify.ModeAMQP:
		mq, e := notify.NewRabbitMQ(ctx, cfg.Queue.AMQP.URL, log.Named("amqp"))
		if e != nil {
			log.Fatal("amqp connect", zap.Error(e))
		}
		defer mq.Close()
		if e := mq.SetupTopology(cfg.Queue.AMQP.Exchange, cfg.Queue.AMQP.Queue); e != nil {
			log.Fatal("amqp topology", zap.Error(e))
		}
		q := notify.NewAMQPQueue(mq, cfg.Queue.AMQP.Exchange, cfg.Queue.AMQP.Queue, cfg.Queue.MaxAttempts, log.Named("queue"))
		err = q.Consume(ctx, mq, cfg.Queue.Concurrency, w.Handle)
	default:
		log.Info("queue.mode is sync, nothing to consume")
		return
	}
	if err != nil && ctx.Err() == nil {
		log.Fatal("worker stopped", zap.Error(err))
	}
	log.Info("worker stopped gracefully")
}
