package middleware

import (
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the parts of tele.Context the middleware touches.
type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]interface{}
	sent   []interface{}
}

func newFakeContext(userID int64, msg *tele.Message) *fakeContext {
	if msg != nil {
		msg.Sender = &tele.User{ID: userID}
		msg.Chat = &tele.Chat{ID: userID}
	}
	return &fakeContext{update: tele.Update{ID: 7, Message: msg}, store: map[string]interface{}{}}
}

func (f *fakeContext) Update() tele.Update { return f.update }

func (f *fakeContext) Message() *tele.Message { return f.update.Message }

func (f *fakeContext) Get(key string) interface{} { return f.store[key] }

func (f *fakeContext) Set(key string, v interface{}) { f.store[key] = v }

func (f *fakeContext) Sender() *tele.User {
	if f.update.Message == nil {
		return nil
	}
	return f.update.Message.Sender
}

func (f *fakeContext) Chat() *tele.Chat {
	if f.update.Message == nil {
		return nil
	}
	return f.update.Message.Chat
}

func (f *fakeContext) Text() string {
	if f.update.Message == nil {
		return ""
	}
	return f.update.Message.Text
}

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func TestRateLimitDropsBurstsPerUser(t *testing.T) {
	clock := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		OnLimited: func(tele.Context) error { limited++; return nil },
		now:       func() time.Time { return clock },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(newFakeContext(1, &tele.Message{Text: "hola"}))
	_ = h(newFakeContext(1, &tele.Message{Text: "1"}))
	_ = h(newFakeContext(2, &tele.Message{Text: "hola"}))
	clock = clock.Add(2 * time.Second)
	_ = h(newFakeContext(1, &tele.Message{Text: "1"}))

	if calls != 3 || limited != 1 {
		t.Fatalf("calls=%d limited=%d, want 3 and 1", calls, limited)
	}
}

func TestRateLimitExcludesDocuments(t *testing.T) {
	clock := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Minute,
		Exclude:  map[string]struct{}{"document": {}},
		now:      func() time.Time { return clock },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(newFakeContext(1, &tele.Message{Text: "4"}))
	_ = h(newFakeContext(1, &tele.Message{Document: &tele.Document{FileName: "cv.pdf"}}))
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestAdminOnly(t *testing.T) {
	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{
		AdminID:  99,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(newFakeContext(99, &tele.Message{Text: "/sessions"}))
	_ = h(newFakeContext(5, &tele.Message{Text: "/sessions"}))
	if calls != 1 || rejected != 1 {
		t.Fatalf("calls=%d rejected=%d", calls, rejected)
	}

	open := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { calls++; return nil })
	_ = open(newFakeContext(5, &tele.Message{Text: "/sessions"}))
	if calls != 1 {
		t.Fatal("no admin configured must reject everyone")
	}
}

func TestRecoverConvertsPanic(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newFakeContext(1, &tele.Message{Text: "x"}))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v, want recovered panic", err)
	}
}

func TestMessageMetricsCountsReplies(t *testing.T) {
	c := newFakeContext(1, &tele.Message{Text: "/sessions"})
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		_ = c.Send("one")
		return c.Send("two")
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if n := SentMessages(c); n != 2 {
		t.Fatalf("SentMessages = %d, want 2", n)
	}
}
