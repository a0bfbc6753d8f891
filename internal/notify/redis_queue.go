package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"grafik/internal/core/metrics"
)

// ListClient *redis.Client 满足；测试用假实现
type ListClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// RedisQueue LPUSH 入队，worker BRPOP 出队
type RedisQueue struct {
	rdb         ListClient
	key         string
	log         *zap.Logger
	maxAttempts int
	pollTimeout time.Duration
}

func NewRedisQueue(rdb ListClient, key string, maxAttempts int, log *zap.Logger) *RedisQueue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &RedisQueue{rdb: rdb, key: key, log: log, maxAttempts: maxAttempts, pollTimeout: 5 * time.Second}
}

func (q *RedisQueue) Notify(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := q.push(ctx, msg); err != nil {
		metrics.Notifications.WithLabelValues("redis", "enqueue_error").Inc()
		return err
	}
	metrics.Notifications.WithLabelValues("redis", "enqueued").Inc()
	return nil
}

func (q *RedisQueue) push(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := q.rdb.LPush(pctx, q.key, body).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

// Consume concurrency 个 BRPOP 循环，直到 ctx 取消
func (q *RedisQueue) Consume(ctx context.Context, concurrency int, h Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				q.pollOnce(ctx, h)
			}
		}()
	}
	wg.Wait()
	return nil
}

func (q *RedisQueue) pollOnce(ctx context.Context, h Handler) {
	res, err := q.rdb.BRPop(ctx, q.pollTimeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		q.log.Warn("brpop failed", zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}
	if len(res) < 2 {
		return
	}
	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		q.log.Error("drop malformed message", zap.Error(err))
		return
	}
	q.handle(ctx, msg, h)
}

func (q *RedisQueue) handle(ctx context.Context, msg Message, h Handler) {
	if err := h(ctx, msg); err != nil {
		msg.Attempt++
		if msg.Attempt >= q.maxAttempts {
			metrics.Notifications.WithLabelValues("redis", "dropped").Inc()
			q.log.Error("mail delivery failed, dropping",
				zap.Strings("to", msg.To), zap.String("subject", msg.Subject),
				zap.Int("attempt", msg.Attempt), zap.Error(err))
			return
		}
		metrics.Notifications.WithLabelValues("redis", "retry").Inc()
		q.log.Warn("mail delivery failed, requeue",
			zap.Strings("to", msg.To), zap.Int("attempt", msg.Attempt), zap.Error(err))
		if perr := q.push(context.WithoutCancel(ctx), msg); perr != nil {
			q.log.Error("requeue failed", zap.Error(perr))
		}
		return
	}
	metrics.Notifications.WithLabelValues("redis", "sent").Inc()
}
