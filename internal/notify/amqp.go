package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQ 连接 + 单 channel，启动时带重试
type RabbitMQ struct {
	url    string
	conn   *amqp.Connection
	ch     *amqp.Channel
	log    *zap.Logger
	mu     sync.RWMutex
	closed bool
}

func NewRabbitMQ(ctx context.Context, url string, log *zap.Logger) (*RabbitMQ, error) {
	mq := &RabbitMQ{url: url, log: log}

	const maxRetries = 10
	delay := time.Second
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := mq.connect()
		if err == nil {
			log.Info("rabbitmq connected", zap.Int("attempt", attempt))
			return mq, nil
		}
		log.Warn("rabbitmq connect failed", zap.Int("attempt", attempt), zap.Duration("retry_in", delay), zap.Error(err))
		if attempt == maxRetries {
			return nil, fmt.Errorf("connect rabbitmq after %d attempts: %w", maxRetries, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(time.Duration(float64(delay)*1.5), 30*time.Second)
	}
	return nil, fmt.Errorf("connect rabbitmq: retries exhausted")
}

func (mq *RabbitMQ) connect() error {
	conn, err := amqp.Dial(mq.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set qos: %w", err)
	}
	mq.mu.Lock()
	mq.conn, mq.ch = conn, ch
	mq.mu.Unlock()
	return nil
}

func (mq *RabbitMQ) channel() (*amqp.Channel, error) {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	if mq.ch == nil || mq.closed {
		return nil, fmt.Errorf("rabbitmq channel not available")
	}
	return mq.ch, nil
}

// SetupTopology durable direct exchange + 队列，routing key 与队列同名
func (mq *RabbitMQ) SetupTopology(exchange, queue string) error {
	ch, err := mq.channel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return nil
}

func (mq *RabbitMQ) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	ch, err := mq.channel()
	if err != nil {
		return err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(pctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}

// Consume 手动 ack；handler 自己决定 Ack/Nack
func (mq *RabbitMQ) Consume(ctx context.Context, queue, consumer string, handler func(amqp.Delivery)) error {
	ch, err := mq.channel()
	if err != nil {
		return err
	}
	msgs, err := ch.Consume(queue, consumer, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	mq.log.Info("consumer started", zap.String("queue", queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				mq.log.Info("consumer stopped", zap.String("queue", queue))
				return nil
			}
			handler(d)
		}
	}
}

func (mq *RabbitMQ) Close() {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.closed {
		return
	}
	mq.closed = true
	if mq.ch != nil {
		_ = mq.ch.Close()
	}
	if mq.conn != nil {
		_ = mq.conn.Close()
	}
	mq.log.Info("rabbitmq closed")
}
