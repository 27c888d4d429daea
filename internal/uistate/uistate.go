// Package uistate holds the few UI flags shared between views. Nothing here is
// persisted; a new Store starts from the zero State.
package uistate

import "sync"

type State struct {
	CurrentPage      string `json:"currentPage"`
	SidebarCollapsed bool   `json:"sidebarCollapsed"`
}

type Store struct {
	mu    sync.RWMutex
	state State
}

func New() *Store {
	return &Store{}
}

func (s *Store) SetCurrentPage(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentPage = page
}

func (s *Store) ToggleSidebar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SidebarCollapsed = !s.state.SidebarCollapsed
}

// State returns a copy of the current flags.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
