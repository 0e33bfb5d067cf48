// Package session provides per-conversation state for the menu state machine.
//
// Sessions live only in memory. Losing one is an expected, recoverable event:
// the dispatcher tells the user the session expired and routes them back to a
// known-good screen.
package session

import (
	"sync"
	"time"

	"github.com/PanelPilot/PanelPilot/internal/panel"
)

// Action identifies which wizard flow is active.
type Action string

const (
	ActionCreate Action = "create"
	ActionSnatch Action = "snatch"
)

// PendingConfirmation exists only between the first and second press of a
// destructive action. It expires once the confirmation window has elapsed.
type PendingConfirmation struct {
	Action     string
	InstanceID string
	IssuedAt   time.Time
}

// Session is the mutable state of one conversation.
//
// CachedInstances is the arena position-based instance buttons index into.
// It must not be replaced between rendering an account menu and resolving a
// selection from it, or stale indices will resolve to the wrong instance.
type Session struct {
	Key              string
	CurrentAccount   string
	ActionInProgress Action
	FormData         map[string]string
	CachedInstances  []panel.Instance
	SelectedInstance *panel.Instance
	PendingConfirm   *PendingConfirmation
	CurrentAction    string
	UpdatedAt        time.Time
}

func newSession(key string) *Session {
	return &Session{
		Key:       key,
		FormData:  map[string]string{},
		UpdatedAt: time.Now(),
	}
}

// Reset clears everything but the key, returning the session to its
// first-contact state.
func (s *Session) Reset() {
	s.CurrentAccount = ""
	s.ActionInProgress = ""
	s.FormData = map[string]string{}
	s.CachedInstances = nil
	s.SelectedInstance = nil
	s.PendingConfirm = nil
	s.CurrentAction = ""
	s.UpdatedAt = time.Now()
}

// Store holds sessions keyed by conversation id. A per-key gate enforces the
// single-writer-at-a-time discipline: the dispatcher acquires the gate before
// touching a session, so no two transitions for the same session run
// concurrently while distinct sessions proceed in parallel.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	gates    map[string]chan struct{}
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		gates:    make(map[string]chan struct{}),
	}
}

// Get returns the session for key, creating an empty one if absent.
// Callers must hold the key's gate while reading or mutating the result.
func (st *Store) Get(key string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[key]; ok {
		return s
	}
	s := newSession(key)
	st.sessions[key] = s
	return s
}

// Update runs mutate against the session for key while holding the key's
// single-writer gate, for callers outside a dispatcher transition. Do not
// call it from code already holding the gate; the gate is not reentrant.
func (st *Store) Update(key string, mutate func(*Session)) {
	st.Lock(key)
	defer st.Unlock(key)

	s := st.Get(key)
	mutate(s)
	s.UpdatedAt = time.Now()
}

// Clear resets the session for key to its empty state.
func (st *Store) Clear(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[key]; ok {
		s.Reset()
	}
}

// Lock acquires the single-writer gate for key, blocking while another
// transition for the same session is in flight.
func (st *Store) Lock(key string) {
	st.gate(key) <- struct{}{}
}

// Unlock releases the gate for key.
func (st *Store) Unlock(key string) {
	<-st.gate(key)
}

func (st *Store) gate(key string) chan struct{} {
	st.mu.Lock()
	defer st.mu.Unlock()

	g, ok := st.gates[key]
	if !ok {
		g = make(chan struct{}, 1)
		st.gates[key] = g
	}
	return g
}

// Len returns the number of known sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
