package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/metrics"
)

// DefaultInactivityTimeout is the sliding idle window for non-agent conversations.
const DefaultInactivityTimeout = 5 * time.Minute

// Scheduler arms and disarms the per-conversation inactivity timer. Expiry
// runs under serial, the same lock that serializes message dispatch.
type Scheduler struct {
	store     *Store
	out       outbox
	delay     time.Duration
	after     AfterFunc
	serial    sync.Locker
	transport string
}

// Arm restarts the inactivity timer of id. Conversations at WITH_AGENT are
// left without a timer; absent conversations are ignored.
func (s *Scheduler) Arm(id string) {
	st, ok := s.store.Get(id)
	if !ok {
		return
	}
	if !st.Stage.Expires() {
		s.store.ClearTimer(id, nil)
		return
	}

	h := &Handle{}
	h.timer = s.after(s.delay, func() { s.expire(id, h) })
	s.store.SetTimer(id, h)
}

// Disarm stops the timer of id, leaving its state untouched.
func (s *Scheduler) Disarm(id string) {
	s.store.ClearTimer(id, nil)
}

func (s *Scheduler) expire(id string, h *Handle) {
	s.serial.Lock()
	defer s.serial.Unlock()

	ctx := logger.WithTransport(logger.WithConversation(context.Background(), id), s.transport)
	if !s.store.Current(id, h) {
		logger.Debug(ctx, logger.CompConversation, "timer.stale")
		return
	}
	st, _ := s.store.Get(id)

	if err := s.out.send(ctx, id, MsgExpired); err != nil {
		logger.Warn(ctx, logger.CompConversation, "timer.notice",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	s.store.Delete(id)
	metrics.RecordEnd(EndTimeout)
	metrics.SetActive(s.store.Len())

	logger.Info(ctx, logger.CompConversation, "timer.expired",
		slog.String("stage", string(st.Stage)),
		slog.Duration("idle", s.delay),
	)
}
