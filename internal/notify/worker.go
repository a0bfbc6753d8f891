package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Worker 队列消费端：渲染并经 SMTP 发出
type Worker struct {
	D       *Deliverer
	Log     *zap.Logger
	Timeout time.Duration
}

func (w *Worker) Handle(ctx context.Context, msg Message) error {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := w.D.Deliver(ctx, msg); err != nil {
		return err
	}
	w.Log.Info("mail sent",
		zap.Strings("to", msg.To),
		zap.String("template", msg.Template),
		zap.Int("attempt", msg.Attempt),
		zap.Duration("took", time.Since(start)))
	return nil
}
