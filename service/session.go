package service

import (
	"context"
	"sync"
)

// RoleLoader fetches the session's permission set: table name (or "*" for
// all tables) to the set of allowed actions.
type RoleLoader func(ctx context.Context) (map[string][]string, error)

// Session is a session-scoped capability provider. The permission set is
// loaded once on first use and reused until Invalidate is called (logout,
// role change). A failed load denies everything; the next check retries.
type Session struct {
	mu     sync.Mutex
	loader RoleLoader
	perms  map[string]map[string]bool
	loaded bool
}

func NewSession(loader RoleLoader) *Session {
	return &Session{loader: loader}
}

func (s *Session) Can(ctx context.Context, table, action string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		raw, err := s.loader(ctx)
		if err != nil {
			return false
		}
		s.perms = make(map[string]map[string]bool, len(raw))
		for tbl, actions := range raw {
			set := make(map[string]bool, len(actions))
			for _, a := range actions {
				set[a] = true
			}
			s.perms[tbl] = set
		}
		s.loaded = true
	}

	if set, ok := s.perms[table]; ok && set[action] {
		return true
	}
	if set, ok := s.perms["*"]; ok && set[action] {
		return true
	}
	return false
}

// Invalidate drops the cached permission set; the next check reloads it.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.perms = nil
}
