package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"grafik/internal/core/metrics"
)

// Deliverer 渲染 + 发送，同步模式与 worker 共用
type Deliverer struct {
	Renderer *Renderer
	Mailer   Mailer
	Log      *zap.Logger
}

func (d *Deliverer) Deliver(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	text, html, err := d.Renderer.Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}
	if err := d.Mailer.Send(ctx, msg.To, msg.Subject, text, html); err != nil {
		return fmt.Errorf("send %q: %w", msg.Subject, err)
	}
	return nil
}

// Immediate 在请求内直接发信（开发/测试用）
type Immediate struct {
	D *Deliverer
}

func NewImmediate(d *Deliverer) *Immediate { return &Immediate{D: d} }

func (n *Immediate) Notify(ctx context.Context, msg Message) error {
	if err := n.D.Deliver(ctx, msg); err != nil {
		metrics.Notifications.WithLabelValues("sync", "error").Inc()
		return err
	}
	metrics.Notifications.WithLabelValues("sync", "sent").Inc()
	return nil
}
