package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"grafik/internal/core/metrics"
)

// Publisher RabbitMQ 满足
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

type AMQPQueue struct {
	pub         Publisher
	exchange    string
	queue       string
	maxAttempts int
	log         *zap.Logger
}

func NewAMQPQueue(pub Publisher, exchange, queue string, maxAttempts int, log *zap.Logger) *AMQPQueue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &AMQPQueue{pub: pub, exchange: exchange, queue: queue, maxAttempts: maxAttempts, log: log}
}

func (q *AMQPQueue) Notify(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := q.publish(ctx, msg); err != nil {
		metrics.Notifications.WithLabelValues("amqp", "enqueue_error").Inc()
		return err
	}
	metrics.Notifications.WithLabelValues("amqp", "enqueued").Inc()
	return nil
}

func (q *AMQPQueue) publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := q.pub.Publish(ctx, q.exchange, q.queue, body); err != nil {
		return fmt.Errorf("publish %s: %w", q.exchange, err)
	}
	return nil
}

// Consume concurrency 个 goroutine 处理投递
func (q *AMQPQueue) Consume(ctx context.Context, mq *RabbitMQ, concurrency int, h Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	deliveries := make(chan amqp.Delivery)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				q.HandleDelivery(ctx, d, h)
			}
		}()
	}
	err := mq.Consume(ctx, q.queue, "grafik-worker", func(d amqp.Delivery) {
		select {
		case deliveries <- d:
		case <-ctx.Done():
			_ = d.Nack(false, true)
		}
	})
	close(deliveries)
	wg.Wait()
	return err
}

// Acknowledger amqp.Delivery 的 Ack/Nack，抽出来便于测试
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (q *AMQPQueue) HandleDelivery(ctx context.Context, d amqp.Delivery, h Handler) {
	q.handle(ctx, d.Body, d, h)
}

// 失败时带 attempt+1 重新发布并 ack 原消息；超过上限丢弃
func (q *AMQPQueue) handle(ctx context.Context, body []byte, ack Acknowledger, h Handler) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		q.log.Error("drop malformed message", zap.Error(err))
		_ = ack.Nack(false, false)
		return
	}
	if err := h(ctx, msg); err != nil {
		msg.Attempt++
		if msg.Attempt >= q.maxAttempts {
			metrics.Notifications.WithLabelValues("amqp", "dropped").Inc()
			q.log.Error("mail delivery failed, dropping",
				zap.Strings("to", msg.To), zap.String("subject", msg.Subject),
				zap.Int("attempt", msg.Attempt), zap.Error(err))
			_ = ack.Ack(false)
			return
		}
		if perr := q.publish(context.WithoutCancel(ctx), msg); perr != nil {
			q.log.Error("republish failed, requeue original", zap.Error(perr))
			_ = ack.Nack(false, true)
			return
		}
		metrics.Notifications.WithLabelValues("amqp", "retry").Inc()
		_ = ack.Ack(false)
		return
	}
	metrics.Notifications.WithLabelValues("amqp", "sent").Inc()
	_ = ack.Ack(false)
}
