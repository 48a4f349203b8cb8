package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fire runs the callback even when the timer was stopped, which models a
// callback that was already scheduled when Stop raced it.
func (t *fakeTimer) fire() {
	t.fired = true
	t.fn()
}

type manualClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) live() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

func (c *manualClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

type sentMessage struct {
	id   string
	text string
	err  error
}

type recordingSender struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn map[string]error
	panics string
}

var errBlocked = errors.New("blocked by transport")

func (r *recordingSender) SendText(_ context.Context, id, text string) error {
	if r.panics != "" && text == r.panics {
		panic("sender exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.failOn[text]
	r.sent = append(r.sent, sentMessage{id: id, text: text, err: err})
	return err
}

// delivered returns texts that were sent successfully to id.
func (r *recordingSender) delivered(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.sent {
		if m.id == id && m.err == nil {
			out = append(out, m.text)
		}
	}
	return out
}

func (r *recordingSender) reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}

type journal struct {
	mu       sync.Mutex
	handoffs []Handoff
	err      error
}

func (j *journal) RecordHandoff(_ context.Context, h Handoff) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.handoffs = append(j.handoffs, h)
	return j.err
}

type harness struct {
	t       *testing.T
	d       *Dispatcher
	sender  *recordingSender
	clock   *manualClock
	journal *journal
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		sender:  &recordingSender{failOn: map[string]error{}},
		clock:   &manualClock{},
		journal: &journal{},
	}
	d, err := NewDispatcher(Options{
		Sender:    h.sender,
		Journal:   h.journal,
		Transport: "test",
		AfterFunc: h.clock.AfterFunc,
		Now:       func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	h.d = d
	return h
}

func (h *harness) say(id, text string) {
	h.t.Helper()
	if err := h.d.Dispatch(context.Background(), Message{ConversationID: id, Content: Text{Body: text}}); err != nil {
		h.t.Fatalf("Dispatch(%q): %v", text, err)
	}
}

func (h *harness) attach(id string, doc Document) {
	h.t.Helper()
	if err := h.d.Dispatch(context.Background(), Message{ConversationID: id, Content: doc}); err != nil {
		h.t.Fatalf("Dispatch(document): %v", err)
	}
}

func (h *harness) stage(id string) Stage {
	h.t.Helper()
	st, ok := h.d.store.Get(id)
	if !ok {
		h.t.Fatalf("conversation %s missing", id)
	}
	return st.Stage
}

func (h *harness) expectReplies(id string, want ...string) {
	h.t.Helper()
	got := h.sender.delivered(id)
	if len(got) != len(want) {
		h.t.Fatalf("replies = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			h.t.Fatalf("reply %d = %q, want %q", i, got[i], want[i])
		}
	}
	h.sender.reset()
}

func (h *harness) expectLiveTimers(n int) {
	h.t.Helper()
	if got := len(h.clock.live()); got != n {
		h.t.Fatalf("live timers = %d, want %d", got, n)
	}
}
