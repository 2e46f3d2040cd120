// Package runguard tracks which conversations currently have a downstream
// run in flight. Each conversation moves Idle -> Active -> Idle; there are
// no other states.
package runguard

import (
	"sync"
	"time"
)

type RunState struct {
	Active     bool
	AcquiredAt time.Time
}

type Guard struct {
	mu     sync.Mutex
	states map[string]*RunState
	now    func() time.Time
}

func New() *Guard {
	return &Guard{states: make(map[string]*RunState), now: time.Now}
}

// TryAcquire marks the conversation active and reports true, or reports
// false without waiting when a run is already active.
func (g *Guard) TryAcquire(conversationID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.states[conversationID]
	if !ok {
		st = &RunState{}
		g.states[conversationID] = st
	}
	if st.Active {
		return false
	}
	st.Active = true
	st.AcquiredAt = g.now()
	return true
}

// Release returns the conversation to idle. Calling it for an idle or
// unknown conversation is a no-op.
func (g *Guard) Release(conversationID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if st, ok := g.states[conversationID]; ok {
		st.Active = false
		st.AcquiredAt = time.Time{}
	}
}

func (g *Guard) IsActive(conversationID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.states[conversationID]
	return ok && st.Active
}

// State returns a copy of the conversation's run state.
func (g *Guard) State(conversationID string) (RunState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.states[conversationID]
	if !ok {
		return RunState{}, false
	}
	return *st, true
}

func (g *Guard) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, st := range g.states {
		if st.Active {
			n++
		}
	}
	return n
}
