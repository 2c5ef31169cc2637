package game

import (
	"fmt"
	"sync"
)

// Store is the keyed session store the room runtime works through. The
// engine never touches a process-global registry: it reads a snapshot via
// Get and commits deltas inside an Update mutator.
type Store interface {
	Get(roomID string) (*State, bool)
	Update(roomID string, fn func(*State) error) error
}

// MemStore is the in-memory Store used by the server and tests.
type MemStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

func NewMemStore() *MemStore {
	return &MemStore{states: map[string]*State{}}
}

func (m *MemStore) Put(st *State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[st.RoomID] = st
}

func (m *MemStore) Get(roomID string) (*State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[roomID]
	return st, ok
}

func (m *MemStore) Update(roomID string, fn func(*State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[roomID]
	if !ok {
		return fmt.Errorf("unknown room %s", roomID)
	}
	return fn(st)
}

func (m *MemStore) Delete(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, roomID)
}
