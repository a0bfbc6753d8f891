package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"grafik/internal/domain"
)

func sampleTrip() *domain.Trip {
	return &domain.Trip{
		ID:       5,
		Title:    "Hala <Wschód>",
		TripDate: time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC),
		Notes:    "brama 2\nparking",
		Spots:    domain.IntPtr(3),
	}
}

func TestRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	u := &domain.User{Name: "Anna", Surname: "Nowak", Email: "anna@example.com"}
	text, html, err := r.Render(TemplateNewTrip, map[string]any{
		"trip": TripData(sampleTrip(), "http://grafik.test/"),
		"user": UserData(u),
	})
	require.NoError(t, err)
	assert.Contains(t, text, "Cześć Anna")
	assert.Contains(t, text, "Data: 20.11.2025")
	assert.Contains(t, text, "http://grafik.test/trips/5")
	assert.Contains(t, html, "Hala &lt;Wschód&gt;")
	assert.Contains(t, html, "brama 2<br>\nparking")

	_, _, err = r.Render("email/missing", nil)
	assert.Error(t, err)
}

func TestRenderer_AllTemplatesSurviveQueueRoundTrip(t *testing.T) {
	r := MustRenderer()
	u := &domain.User{Name: "Anna", Surname: "Nowak", Email: "anna@example.com"}
	signups := []domain.Signup{
		{Status: domain.SignupConfirmed, User: u},
		{Status: domain.SignupTentative, User: &domain.User{Name: "Basia", Surname: "Zielona"}},
	}
	msgs := []Message{
		{To: []string{"a@example.com"}, Template: TemplateNewTrip, Data: map[string]any{"trip": TripData(sampleTrip(), ""), "user": UserData(u)}},
		{To: []string{"a@example.com"}, Template: TemplateWelcome, Data: map[string]any{"user": UserData(u), "url": "http://grafik.test/login"}},
		{To: []string{"a@example.com"}, Template: TemplateResetPwd, Data: map[string]any{"user": UserData(u), "url": "http://grafik.test/reset_password/tok"}},
		{To: []string{"a@example.com"}, Template: TemplateParticipants, Data: map[string]any{
			"trip": TripData(sampleTrip(), ""), "participants": ParticipantsData(signups), "sender": UserData(u),
		}},
	}
	for _, m := range msgs {
		body, err := json.Marshal(m)
		require.NoError(t, err)
		var back Message
		require.NoError(t, json.Unmarshal(body, &back))

		text, html, err := r.Render(back.Template, back.Data)
		require.NoError(t, err, m.Template)
		assert.NotContains(t, text, "<no value>", m.Template)
		assert.NotEmpty(t, html, m.Template)
	}

	text, _, err := r.Render(TemplateParticipants, msgs[3].Data)
	require.NoError(t, err)
	assert.Contains(t, text, "1. Anna Nowak (potwierdzony)")
	assert.Contains(t, text, "2. Basia Zielona (wstępnie zapisany)")

	text, _, err = r.Render(TemplateResetPwd, msgs[2].Data)
	require.NoError(t, err)
	assert.Contains(t, text, "http://grafik.test/reset_password/tok")
}

func TestMessageValidate(t *testing.T) {
	assert.ErrorIs(t, Message{Template: TemplateWelcome}.Validate(), ErrNoRecipients)
	assert.ErrorIs(t, Message{To: []string{" "}, Template: TemplateWelcome}.Validate(), ErrNoRecipients)
	assert.Error(t, Message{To: []string{"a@example.com"}}.Validate())
	assert.NoError(t, Message{To: []string{"a@example.com"}, Template: TemplateWelcome}.Validate())
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to []string, subject, text, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, strings.Join(to, ",")+"|"+subject)
	return nil
}

func welcome(to string) Message {
	return Message{
		To:       []string{to},
		Subject:  "Witaj w Grafiku!",
		Template: TemplateWelcome,
		Data:     map[string]any{"user": map[string]any{"name": "Anna"}, "url": "http://grafik.test/login"},
	}
}

func TestImmediate(t *testing.T) {
	m := &fakeMailer{}
	n := NewImmediate(&Deliverer{Renderer: MustRenderer(), Mailer: m, Log: zap.NewNop()})

	require.NoError(t, n.Notify(context.Background(), welcome("anna@example.com")))
	assert.Equal(t, []string{"anna@example.com|Witaj w Grafiku!"}, m.sent)

	assert.ErrorIs(t, n.Notify(context.Background(), Message{Template: TemplateWelcome}), ErrNoRecipients)

	m.err = errors.New("connection refused")
	assert.Error(t, n.Notify(context.Background(), welcome("anna@example.com")))
}

// fakeList 用切片模拟 redis list：LPUSH 头插，BRPOP 尾取
type fakeList struct {
	mu    sync.Mutex
	items []string
}

func (f *fakeList) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		switch b := v.(type) {
		case []byte:
			f.items = append([]string{string(b)}, f.items...)
		case string:
			f.items = append([]string{b}, f.items...)
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.items)))
	return cmd
}

func (f *fakeList) BRPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringSliceCmd(ctx)
	if len(f.items) == 0 {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	last := f.items[len(f.items)-1]
	f.items = f.items[:len(f.items)-1]
	cmd.SetVal([]string{keys[0], last})
	return cmd
}

func (f *fakeList) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func TestRedisQueue_EnqueueAndConsume(t *testing.T) {
	ctx := context.Background()
	list := &fakeList{}
	q := NewRedisQueue(list, "grafik:mail", 3, zap.NewNop())

	require.NoError(t, q.Notify(ctx, welcome("a@example.com")))
	require.NoError(t, q.Notify(ctx, welcome("b@example.com")))
	assert.ErrorIs(t, q.Notify(ctx, Message{Template: TemplateWelcome}), ErrNoRecipients)
	require.Equal(t, 2, list.len())

	var got []string
	h := func(_ context.Context, m Message) error {
		got = append(got, m.To[0])
		return nil
	}
	q.pollOnce(ctx, h)
	q.pollOnce(ctx, h)
	q.pollOnce(ctx, h) // 空队列
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got, "FIFO")
}

func TestRedisQueue_RetryThenDrop(t *testing.T) {
	ctx := context.Background()
	list := &fakeList{}
	q := NewRedisQueue(list, "grafik:mail", 2, zap.NewNop())

	calls := 0
	failing := func(context.Context, Message) error {
		calls++
		return errors.New("smtp down")
	}
	require.NoError(t, q.Notify(ctx, welcome("a@example.com")))

	q.pollOnce(ctx, failing)
	require.Equal(t, 1, list.len(), "requeued after first failure")
	var requeued Message
	require.NoError(t, json.Unmarshal([]byte(list.items[0]), &requeued))
	assert.Equal(t, 1, requeued.Attempt)

	q.pollOnce(ctx, failing)
	assert.Zero(t, list.len(), "dropped after max attempts")
	assert.Equal(t, 2, calls)
}

func TestRedisQueue_DropsMalformed(t *testing.T) {
	list := &fakeList{items: []string{"{not json"}}
	q := NewRedisQueue(list, "grafik:mail", 3, zap.NewNop())
	called := false
	q.pollOnce(context.Background(), func(context.Context, Message) error { called = true; return nil })
	assert.False(t, called)
	assert.Zero(t, list.len())
}

func TestRedisQueue_ConsumeStopsOnCancel(t *testing.T) {
	list := &fakeList{}
	q := NewRedisQueue(list, "grafik:mail", 3, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Notify(ctx, welcome("a@example.com")))

	done := make(chan struct{})
	var mu sync.Mutex
	var got []string
	go func() {
		_ = q.Consume(ctx, 2, func(_ context.Context, m Message) error {
			mu.Lock()
			got = append(got, m.To[0])
			mu.Unlock()
			cancel()
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Equal(t, []string{"a@example.com"}, got)
}

type fakeAck struct {
	acked, nacked, requeue bool
}

func (a *fakeAck) Ack(bool) error { a.acked = true; return nil }

func (a *fakeAck) Nack(_, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

type fakePublisher struct {
	bodies [][]byte
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, _, _ string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}

func TestAMQPQueue_Handle(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	q := NewAMQPQueue(pub, "grafik.mail", "grafik.mail.send", 2, zap.NewNop())

	require.NoError(t, q.Notify(ctx, welcome("a@example.com")))
	require.Len(t, pub.bodies, 1)
	body := pub.bodies[0]

	ok := func(context.Context, Message) error { return nil }
	fail := func(context.Context, Message) error { return errors.New("smtp down") }

	ack := &fakeAck{}
	q.handle(ctx, body, ack, ok)
	assert.True(t, ack.acked)

	// 第一次失败：带 attempt+1 重新发布，原消息 ack
	ack = &fakeAck{}
	q.handle(ctx, body, ack, fail)
	assert.True(t, ack.acked)
	require.Len(t, pub.bodies, 2)
	var again Message
	require.NoError(t, json.Unmarshal(pub.bodies[1], &again))
	assert.Equal(t, 1, again.Attempt)

	// 达到上限：丢弃
	ack = &fakeAck{}
	q.handle(ctx, pub.bodies[1], ack, fail)
	assert.True(t, ack.acked)
	assert.Len(t, pub.bodies, 2)

	// 重新发布失败：nack 并 requeue 原消息
	pub.err = errors.New("channel closed")
	ack = &fakeAck{}
	q.handle(ctx, body, ack, fail)
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)

	ack = &fakeAck{}
	q.handle(ctx, []byte("garbage"), ack, ok)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestWorkerHandle(t *testing.T) {
	m := &fakeMailer{}
	w := &Worker{D: &Deliverer{Renderer: MustRenderer(), Mailer: m, Log: zap.NewNop()}, Log: zap.NewNop()}
	require.NoError(t, w.Handle(context.Background(), welcome("a@example.com")))
	assert.Len(t, m.sent, 1)

	err := (&Deliverer{Renderer: MustRenderer(), Mailer: m}).Deliver(context.Background(), Message{
		To: []string{"a@example.com"}, Template: "email/unknown",
	})
	assert.Error(t, err)
}
