package conversation

import (
	"sort"
	"sync"
	"time"
)

// Timer is the part of *time.Timer the store relies on.
type Timer interface {
	Stop() bool
}

// AfterFunc starts a timer that calls f once d has elapsed.
type AfterFunc func(d time.Duration, f func()) Timer

func systemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Handle owns one inactivity timer. Its identity tells a firing callback
// whether it is still the conversation's current timer.
type Handle struct {
	timer Timer
}

// Stop cancels the timer. Safe on nil handles and repeated calls.
func (h *Handle) Stop() {
	if h == nil || h.timer == nil {
		return
	}
	h.timer.Stop()
}

// State is a read-only copy of one conversation.
type State struct {
	ID        string
	Stage     Stage
	Category  Category
	StartedAt time.Time
	UpdatedAt time.Time
	// Armed reports whether an inactivity timer is attached.
	Armed bool
}

type entry struct {
	stage     Stage
	category  Category
	startedAt time.Time
	updatedAt time.Time
	timer     *Handle
}

func (e *entry) view(id string) State {
	return State{
		ID:        id,
		Stage:     e.stage,
		Category:  e.category,
		StartedAt: e.startedAt,
		UpdatedAt: e.updatedAt,
		Armed:     e.timer != nil,
	}
}

// Store maps conversation ids to their state and exclusively owns each
// state's timer. A replaced or deleted state always has its timer stopped first.
type Store struct {
	mu     sync.Mutex
	states map[string]*entry
	now    func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{states: make(map[string]*entry), now: time.Now}
}

// Get returns a copy of the conversation state.
func (s *Store) Get(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[id]
	if !ok {
		return State{}, false
	}
	return e.view(id), true
}

// Create installs a fresh state at stage, replacing any prior one.
func (s *Store) Create(id string, stage Stage) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.states[id]; ok {
		prev.timer.Stop()
	}
	now := s.now()
	e := &entry{stage: stage, startedAt: now, updatedAt: now}
	s.states[id] = e
	return e.view(id)
}

// Transition moves the conversation to stage. A non-empty category replaces
// the recorded one. Returns false when the conversation does not exist.
func (s *Store) Transition(id string, stage Stage, category Category) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[id]
	if !ok {
		return false
	}
	e.stage = stage
	if category != CategoryNone {
		e.category = category
	}
	e.updatedAt = s.now()
	return true
}

// Delete stops the timer and removes the state. Deleting an absent id is a no-op.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	e.timer = nil
	delete(s.states, id)
	return true
}

// SetTimer attaches h, stopping the previous handle. When the conversation
// is absent h itself is stopped and false is returned.
func (s *Store) SetTimer(id string, h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[id]
	if !ok {
		h.Stop()
		return false
	}
	if e.timer != h {
		e.timer.Stop()
	}
	e.timer = h
	return true
}

// ClearTimer stops and detaches the current timer. With a non-nil h it only
// acts when h is still current.
func (s *Store) ClearTimer(id string, h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[id]
	if !ok || e.timer == nil {
		return false
	}
	if h != nil && e.timer != h {
		return false
	}
	e.timer.Stop()
	e.timer = nil
	return true
}

// Current reports whether h is the live timer of conversation id.
func (s *Store) Current(id string, h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[id]
	return ok && h != nil && e.timer == h
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Snapshot lists every conversation ordered by id.
func (s *Store) Snapshot() []State {
	s.mu.Lock()
	out := make([]State, 0, len(s.states))
	for id, e := range s.states {
		out = append(out, e.view(id))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StopTimers cancels every timer while keeping the states. Used on shutdown.
func (s *Store) StopTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.states {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
			n++
		}
	}
	return n
}
