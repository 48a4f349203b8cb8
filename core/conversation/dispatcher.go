package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/m3rciful/menubot/core/logger"
	"github.com/m3rciful/menubot/core/metrics"
)

// DefaultSendTimeout bounds a single outbound send.
const DefaultSendTimeout = 10 * time.Second

var (
	// ErrNoSender is returned by NewDispatcher when Options.Sender is nil.
	ErrNoSender = errors.New("conversation: sender is required")
	// ErrNoConversation is returned by Dispatch for messages without a conversation id.
	ErrNoConversation = errors.New("conversation: message has no conversation id")
)

// Options configure a Dispatcher. Zero values select the defaults.
type Options struct {
	Sender            Sender
	Journal           HandoffRecorder
	Transport         string
	InactivityTimeout time.Duration
	SendTimeout       time.Duration
	// JournalTimeout bounds one handoff write. Default: SendTimeout.
	JournalTimeout time.Duration
	// TriggerWords restart a conversation at the terms stage. Default: "hola".
	TriggerWords []string
	// ExitWords tear down an existing conversation. Default: "salir".
	ExitWords []string
	AfterFunc AfterFunc
	Now       func() time.Time
}

// Dispatcher is the entry point for inbound messages. Dispatch calls and
// timer expiries are serialized by one lock.
type Dispatcher struct {
	mu        sync.Mutex
	store     *Store
	sched     *Scheduler
	router    *router
	out       outbox
	transport string
	triggers  map[string]struct{}
	exits     map[string]struct{}
}

// NewDispatcher wires a store, scheduler and router around opts.Sender.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Sender == nil {
		return nil, ErrNoSender
	}
	if opts.Journal == nil {
		opts.Journal = nopRecorder{}
	}
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = DefaultInactivityTimeout
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.JournalTimeout <= 0 {
		opts.JournalTimeout = opts.SendTimeout
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = systemAfterFunc
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	triggers := wordSet(opts.TriggerWords, "hola")
	exits := wordSet(opts.ExitWords, "salir")
	for w := range exits {
		if _, dup := triggers[w]; dup {
			return nil, fmt.Errorf("conversation: %q is both a trigger and an exit word", w)
		}
	}

	d := &Dispatcher{
		store:     NewStore(),
		out:       outbox{sender: opts.Sender, timeout: opts.SendTimeout},
		transport: opts.Transport,
		triggers:  triggers,
		exits:     exits,
	}
	d.store.now = opts.Now
	d.sched = &Scheduler{
		store:     d.store,
		out:       d.out,
		delay:     opts.InactivityTimeout,
		after:     opts.AfterFunc,
		serial:    &d.mu,
		transport: opts.Transport,
	}
	d.router = &router{
		store:     d.store,
		sched:     d.sched,
		out:       d.out,
		journal:   journalWriter{rec: opts.Journal, timeout: opts.JournalTimeout},
		transport: opts.Transport,
		now:       opts.Now,
	}
	return d, nil
}

func wordSet(words []string, fallback string) map[string]struct{} {
	set := make(map[string]struct{}, len(words)+1)
	for _, w := range words {
		if w = normalizeCommand(w); w != "" {
			set[w] = struct{}{}
		}
	}
	if len(set) == 0 {
		set[fallback] = struct{}{}
	}
	return set
}

// Dispatch processes one inbound message. Processing failures and panics are
// logged and answered with a failure notice; they are not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	if msg.FromSelf {
		return nil
	}
	if msg.ConversationID == "" {
		return ErrNoConversation
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id := msg.ConversationID
	ctx = logger.WithConversation(logger.WithTransport(ctx, d.transport), id)
	if msg.RID != "" {
		ctx = logger.WithRID(ctx, msg.RID)
	}
	metrics.RecordInbound()
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, logger.CompConversation, "dispatch.panic",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			d.fail(ctx, id, fmt.Errorf("panic: %v", rec))
		}
		metrics.SetActive(d.store.Len())
	}()

	if err := d.handle(ctx, msg); err != nil {
		d.fail(ctx, id, err)
		return nil
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, logger.CompConversation, "dispatch",
			slog.String("status", "ok"),
			slog.String("kind", msg.Kind()),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, msg Message) error {
	id := msg.ConversationID
	text := normalizeCommand(msg.Text())

	if _, ok := d.triggers[text]; ok {
		if err := d.router.begin(ctx, id); err != nil {
			return err
		}
		d.sched.Arm(id)
		return nil
	}

	st, exists := d.store.Get(id)
	if _, ok := d.exits[text]; ok && exists {
		d.sched.Disarm(id)
		if err := d.out.send(ctx, id, MsgExited); err != nil {
			return err
		}
		d.store.Delete(id)
		metrics.RecordEnd(EndExit)
		logger.Info(ctx, logger.CompConversation, "conversation.end",
			slog.String("from_stage", string(st.Stage)),
			slog.String("reason", EndExit),
		)
		return nil
	}

	if !exists {
		if err := d.router.begin(ctx, id); err != nil {
			return err
		}
		d.sched.Arm(id)
		return nil
	}

	if err := d.router.route(ctx, st, msg); err != nil {
		return err
	}
	d.sched.Arm(id)
	return nil
}

// fail logs err, attempts the failure notice and keeps any surviving state armed.
func (d *Dispatcher) fail(ctx context.Context, id string, err error) {
	logger.Error(ctx, logger.CompConversation, "dispatch.fail", slog.String("err", err.Error()))
	if sendErr := d.out.send(ctx, id, MsgFailure); sendErr != nil {
		logger.Warn(ctx, logger.CompConversation, "failure_notice",
			slog.String("status", "fail"),
			slog.String("err", sendErr.Error()),
		)
	}
	d.sched.Arm(id)
}

// Sessions lists the live conversations ordered by id.
func (d *Dispatcher) Sessions() []State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Snapshot()
}

// Release tears down conversation id and tells the user. Returns false when
// no such conversation exists.
func (d *Dispatcher) Release(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx = logger.WithConversation(logger.WithTransport(ctx, d.transport), id)
	st, ok := d.store.Get(id)
	if !ok {
		return false, nil
	}
	d.store.Delete(id)
	metrics.RecordEnd(EndReleased)
	metrics.SetActive(d.store.Len())
	logger.Info(ctx, logger.CompConversation, "conversation.end",
		slog.String("from_stage", string(st.Stage)),
		slog.String("reason", EndReleased),
	)
	if err := d.out.send(ctx, id, MsgReleased); err != nil {
		return true, fmt.Errorf("release %s: %w", id, err)
	}
	return true, nil
}

// Close stops every pending inactivity timer.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.store.StopTimers()
	logger.Info(logger.Background(), logger.CompConversation, "timers.stopped", slog.Int("count", n))
}
