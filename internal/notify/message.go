package notify

import (
	"context"
	"errors"
	"strings"
)

// 模板名
const (
	TemplateNewTrip      = "email/new_trip"
	TemplateParticipants = "email/trip_participants"
	TemplateWelcome      = "email/welcome"
	TemplateResetPwd     = "email/reset_password"
)

var ErrNoRecipients = errors.New("notify: message has no recipients")

// Message 入队的是模板名 + 数据，由发送端渲染
type Message struct {
	To       []string       `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
	Attempt  int            `json:"attempt,omitempty"`
}

func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return ErrNoRecipients
		}
	}
	if m.Template == "" {
		return errors.New("notify: message has no template")
	}
	return nil
}

// Notifier 通知端口：同步直发或入队，调用方不关心是哪种
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Handler worker 侧处理单条消息
type Handler func(ctx context.Context, msg Message) error
