package conversation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestComplaintNumberScenario(t *testing.T) {
	h := newHarness(t)
	const id = "5491100000000"

	h.say(id, "hola")
	h.expectReplies(id, termsPrompt)
	h.say(id, "1")
	h.expectReplies(id, mainPrompt)
	if got := h.stage(id); got != StageMain {
		t.Fatalf("stage = %s, want main", got)
	}
	h.say(id, "3")
	h.expectReplies(id, complaintsPrompt)
	h.say(id, "2")
	h.expectReplies(id, "Por favor, indique el número de su reclamo.")
	if got := h.stage(id); got != StageAwaitingComplaintNumber {
		t.Fatalf("stage = %s, want awaitingComplaintNumber", got)
	}

	h.say(id, "4521")
	h.expectReplies(id,
		"Gracias. Su reclamo es el #4521.",
		"Un asesor está revisando el estado de su reclamo. Por favor, espere un momento.",
	)
	st, _ := h.d.store.Get(id)
	if st.Stage != StageWithAgent || st.Category != CategoryComplaint {
		t.Fatalf("state = %+v, want WITH_AGENT/complaint", st)
	}
	h.expectLiveTimers(0)

	if len(h.journal.handoffs) != 1 {
		t.Fatalf("handoffs = %d, want 1", len(h.journal.handoffs))
	}
	ho := h.journal.handoffs[0]
	if ho.ConversationID != id || ho.Category != CategoryComplaint || ho.Detail != "4521" || ho.Transport != "test" {
		t.Fatalf("unexpected handoff %+v", ho)
	}
}

func TestInvalidOptionKeepsStage(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	h.say("u", "1")
	h.sender.reset()

	h.say("u", "9")
	h.expectReplies("u", "Opción no válida. Seleccione un número del 1 al 5.")
	if got := h.stage("u"); got != StageMain {
		t.Fatalf("stage = %s, want main", got)
	}
	h.expectLiveTimers(1)
}

func TestMenuOptionIgnoresWhitespace(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	h.say("u", " 1 \n")
	if got := h.stage("u"); got != StageMain {
		t.Fatalf("stage = %s, want main", got)
	}
}

func TestEmptyContentIsInvalidOption(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	h.sender.reset()

	if err := h.d.Dispatch(context.Background(), Message{ConversationID: "u"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	h.expectReplies("u", "Opción no válida. Selecciona 1 para aceptar o 2 para rechazar.")
	if got := h.stage("u"); got != StageTerms {
		t.Fatalf("stage = %s, want terms", got)
	}
}

func TestTriggerWordResetsFromAnyStage(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	h.say("u", "1")
	h.say("u", "1")
	h.say("u", "2")
	st, _ := h.d.store.Get("u")
	if st.Stage != StageWithAgent || st.Category != CategorySupport {
		t.Fatalf("state = %+v, want WITH_AGENT/support", st)
	}
	h.sender.reset()

	h.say("u", "  HOLA ")
	h.expectReplies("u", termsPrompt)
	st, _ = h.d.store.Get("u")
	if st.Stage != StageTerms || st.Category != CategoryNone {
		t.Fatalf("state after trigger = %+v, want terms without category", st)
	}
	h.expectLiveTimers(1)
}

func TestInactivityExpiry(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	h.say("u", "1")
	h.sender.reset()

	live := h.clock.live()
	if len(live) != 1 {
		t.Fatalf("live timers = %d, want 1", len(live))
	}
	if live[0].delay != DefaultInactivityTimeout {
		t.Fatalf("timer delay = %v, want %v", live[0].delay, DefaultInactivityTimeout)
	}
	live[0].fire()

	h.expectReplies("u", MsgExpired)
	if _, ok := h.d.store.Get("u"); ok {
		t.Fatal("conversation must be removed on expiry")
	}

	// a second firing of the same callback is a no-op
	live[0].fire()
	h.expectReplies("u")

	h.say("u", "2")
	h.expectReplies("u", termsPrompt)
	if got := h.stage("u"); got != StageTerms {
		t.Fatalf("stage = %s, want terms", got)
	}
}

func TestStaleTimerAfterRearmIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	first := h.clock.last()
	h.say("u", "1")
	h.sender.reset()

	if !first.stopped {
		t.Fatal("re-arm must stop the previous timer")
	}
	first.fire()
	h.expectReplies("u")
	if got := h.stage("u"); got != StageMain {
		t.Fatalf("stage = %s, want main", got)
	}
	h.expectLiveTimers(1)
}

func TestExpiryDeletesEvenWhenNoticeFails(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	h.sender.failOn[MsgExpired] = errBlocked

	h.clock.last().fire()
	if _, ok := h.d.store.Get("u"); ok {
		t.Fatal("conversation must be removed even if the notice fails")
	}
}

func TestExitWordAtNonAgentStages(t *testing.T) {
	paths := map[string][]string{
		"terms":      {"hola"},
		"main":       {"hola", "1"},
		"order":      {"hola", "1", "2"},
		"complaints": {"hola", "1", "3"},
		"awaiting":   {"hola", "1", "3", "1"},
		"resume":     {"hola", "1", "4"},
	}
	for name, steps := range paths {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			for _, s := range steps {
				h.say("u", s)
			}
			h.sender.reset()

			h.say("u", "Salir")
			h.expectReplies("u", MsgExited)
			if _, ok := h.d.store.Get("u"); ok {
				t.Fatal("conversation must be removed")
			}
			h.expectLiveTimers(0)

			h.say("u", "algo")
			h.expectReplies("u", termsPrompt)
		})
	}
}

func TestExitWordLeavesAgentConversation(t *testing.T) {
	h := newHarness(t)
	for _, s := range []string{"hola", "1", "1", "1"} {
		h.say("u", s)
	}
	h.sender.reset()

	h.say("u", "salir")
	h.expectReplies("u", MsgExited)
	if h.d.store.Len() != 0 {
		t.Fatal("exit must remove agent conversation")
	}
}

func TestExitWithoutConversationStartsFresh(t *testing.T) {
	h := newHarness(t)
	h.say("u", "salir")
	h.expectReplies("u", termsPrompt)
	if got := h.stage("u"); got != StageTerms {
		t.Fatalf("stage = %s, want terms", got)
	}
}

func TestWithAgentIsSilentAndNeverArmed(t *testing.T) {
	h := newHarness(t)
	for _, s := range []string{"hola", "1", "1", "1"} {
		h.say("u", s)
	}
	h.expectReplies("u", termsPrompt, mainPrompt, agentCategoryPrompt,
		"¡Ok! 😉 Un asesor de Ventas y Productos te contactará en breve.")
	h.expectLiveTimers(0)

	h.say("u", "¿hay alguien?")
	h.expectReplies("u")
	h.expectLiveTimers(0)

	h.d.sched.Arm("u")
	h.expectLiveTimers(0)
	if st, _ := h.d.store.Get("u"); st.Armed {
		t.Fatal("WITH_AGENT conversation must not carry a timer")
	}
}

func TestGoodbyeAndTermsRejectionEnd(t *testing.T) {
	cases := []struct {
		name  string
		steps []string
		reply string
	}{
		{"goodbye", []string{"hola", "1", "5"}, msgGoodbye},
		{"terms rejected", []string{"hola", "2"}, msgTermsRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			for _, s := range tc.steps {
				h.say("u", s)
			}
			got := h.sender.delivered("u")
			if last := got[len(got)-1]; last != tc.reply {
				t.Fatalf("last reply = %q, want %q", last, tc.reply)
			}
			if h.d.store.Len() != 0 {
				t.Fatal("conversation must be removed")
			}
			h.expectLiveTimers(0)
		})
	}
}

func TestOrderRecentStaysInOrderMenu(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	h.say("u", "1")
	h.say("u", "2")
	h.sender.reset()

	h.say("u", "2")
	h.expectReplies("u",
		"Consultando sus pedidos recientes... Un momento, por favor.",
		"No hay pedidos recientes registrados. Si desea, indique un número de pedido específico.",
	)
	if got := h.stage("u"); got != StageOrder {
		t.Fatalf("stage = %s, want order", got)
	}

	h.say("u", "3")
	h.expectReplies("u", mainPrompt)
}

func TestResumeRequiresDocument(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	h.say("u", "1")
	h.say("u", "4")
	h.expectReplies("u", termsPrompt, mainPrompt, msgResumePrompt)

	h.say("u", "aquí va mi CV")
	h.expectReplies("u", msgResumePrompt)
	if got := h.stage("u"); got != StageAwaitingResume {
		t.Fatalf("stage = %s, want awaitingResume", got)
	}

	h.attach("u", Document{MimeType: "application/pdf", FileName: "cv.pdf"})
	got := h.sender.delivered("u")
	if len(got) != 2 || got[0] != "¡Gracias! Recibimos tu hoja de vida (cv.pdf)." {
		t.Fatalf("unexpected acknowledgment %q", got)
	}
	st, _ := h.d.store.Get("u")
	if st.Stage != StageWithAgent || st.Category != CategoryResume {
		t.Fatalf("state = %+v, want WITH_AGENT/resume", st)
	}
	if ho := h.journal.handoffs[0]; ho.Detail != "cv.pdf" {
		t.Fatalf("handoff detail = %q", ho.Detail)
	}
}

func TestSendFailureKeepsState(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	h.sender.reset()
	h.sender.failOn[mainPrompt] = errBlocked

	h.say("u", "1")
	h.expectReplies("u", MsgFailure)
	if got := h.stage("u"); got != StageTerms {
		t.Fatalf("stage = %s, want terms after failed send", got)
	}
	h.expectLiveTimers(1)
}

func TestFailedStartLeavesNoConversation(t *testing.T) {
	h := newHarness(t)
	h.sender.failOn[termsPrompt] = errBlocked

	h.say("u", "hola")
	if h.d.store.Len() != 0 {
		t.Fatal("start must not create state when the prompt cannot be sent")
	}
	h.expectLiveTimers(0)
}

func TestPanicIsRecovered(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	h.sender.reset()
	h.sender.panics = mainPrompt

	h.say("u", "1")
	h.expectReplies("u", MsgFailure)
	if got := h.stage("u"); got != StageTerms {
		t.Fatalf("stage = %s, want terms", got)
	}
}

func TestHandoffJournalFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.journal.err = errors.New("db down")
	for _, s := range []string{"hola", "1", "2", "1", "A-77"} {
		h.say("u", s)
	}
	st, _ := h.d.store.Get("u")
	if st.Stage != StageWithAgent || st.Category != CategoryOrder {
		t.Fatalf("state = %+v, want WITH_AGENT/order", st)
	}
	for _, m := range h.sender.delivered("u") {
		if m == MsgFailure {
			t.Fatal("journal failure must not reach the user")
		}
	}
}

func TestHandoffJournalWriteIsBounded(t *testing.T) {
	sender := &recordingSender{failOn: map[string]error{}}
	clock := &manualClock{}
	seen := make(chan error, 1)
	stalled := HandoffRecorderFunc(func(ctx context.Context, _ Handoff) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("journal write has no deadline")
		}
		<-ctx.Done()
		seen <- ctx.Err()
		return ctx.Err()
	})
	d, err := NewDispatcher(Options{
		Sender:         sender,
		Journal:        stalled,
		Transport:      "test",
		JournalTimeout: 20 * time.Millisecond,
		AfterFunc:      clock.AfterFunc,
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, s := range []string{"hola", "1", "1", "2"} {
			if err := d.Dispatch(context.Background(), Message{ConversationID: "u", Content: Text{Body: s}}); err != nil {
				t.Errorf("Dispatch(%q): %v", s, err)
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch stalled behind the journal")
	}

	if got := <-seen; !errors.Is(got, context.DeadlineExceeded) {
		t.Fatalf("journal ctx err = %v, want deadline exceeded", got)
	}
	st, _ := d.store.Get("u")
	if st.Stage != StageWithAgent || st.Category != CategorySupport {
		t.Fatalf("state = %+v, want WITH_AGENT/support", st)
	}

	// The lock is free again for the next message.
	if err := d.Dispatch(context.Background(), Message{ConversationID: "v", Content: Text{Body: "hola"}}); err != nil {
		t.Fatalf("Dispatch after stalled journal: %v", err)
	}
}

func TestSelfMessagesIgnored(t *testing.T) {
	h := newHarness(t)
	if err := h.d.Dispatch(context.Background(), Message{ConversationID: "u", FromSelf: true, Content: Text{Body: "hola"}}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	h.expectReplies("u")
	if h.d.store.Len() != 0 {
		t.Fatal("self message must not create state")
	}
}

func TestDispatchRequiresConversationID(t *testing.T) {
	h := newHarness(t)
	if err := h.d.Dispatch(context.Background(), Message{Content: Text{Body: "hola"}}); !errors.Is(err, ErrNoConversation) {
		t.Fatalf("err = %v, want ErrNoConversation", err)
	}
}

func TestUnknownStageFallsBackToStart(t *testing.T) {
	h := newHarness(t)
	h.say("u", "hola")
	h.say("u", "1")
	h.d.store.Transition("u", Stage("legacy"), CategorySales)
	h.sender.reset()

	h.say("u", "1")
	h.expectReplies("u", termsPrompt)
	st, _ := h.d.store.Get("u")
	if st.Stage != StageTerms || st.Category != CategoryNone {
		t.Fatalf("state = %+v, want fresh terms", st)
	}
}

func TestReleaseAndSessions(t *testing.T) {
	h := newHarness(t)
	for _, s := range []string{"hola", "1", "1", "2"} {
		h.say("a", s)
	}
	h.say("b", "hola")

	sessions := h.d.Sessions()
	if len(sessions) != 2 || sessions[0].ID != "a" || sessions[0].Stage != StageWithAgent || !sessions[1].Armed {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
	h.sender.reset()

	ok, err := h.d.Release(context.Background(), "a")
	if err != nil || !ok {
		t.Fatalf("Release = %v, %v", ok, err)
	}
	h.expectReplies("a", MsgReleased)
	if ok, _ := h.d.Release(context.Background(), "a"); ok {
		t.Fatal("second release must report missing conversation")
	}
	if h.d.store.Len() != 1 {
		t.Fatal("release must only remove the target conversation")
	}
}

func TestCustomWords(t *testing.T) {
	sender := &recordingSender{}
	clock := &manualClock{}
	d, err := NewDispatcher(Options{
		Sender:       sender,
		AfterFunc:    clock.AfterFunc,
		TriggerWords: []string{"/start", "Hola"},
		ExitWords:    []string{"/stop"},
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	ctx := context.Background()
	_ = d.Dispatch(ctx, Message{ConversationID: "u", Content: Text{Body: "/start"}})
	_ = d.Dispatch(ctx, Message{ConversationID: "u", Content: Text{Body: "1"}})
	_ = d.Dispatch(ctx, Message{ConversationID: "u", Content: Text{Body: "/stop"}})
	if d.store.Len() != 0 {
		t.Fatal("custom exit word must remove conversation")
	}

	if _, err := NewDispatcher(Options{Sender: sender, TriggerWords: []string{"x"}, ExitWords: []string{"X"}}); err == nil {
		t.Fatal("overlapping trigger and exit words must be rejected")
	}
	if _, err := NewDispatcher(Options{}); !errors.Is(err, ErrNoSender) {
		t.Fatalf("err = %v, want ErrNoSender", err)
	}
}

func TestCloseStopsTimers(t *testing.T) {
	h := newHarness(t)
	h.say("a", "hola")
	h.say("b", "hola")
	h.d.Close()
	h.expectLiveTimers(0)
}
