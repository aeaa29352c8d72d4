// Package auth decides which Slack users may issue commands to the bot.
package auth

import (
	"sort"
	"sync"
)

type Service struct {
	mu           sync.RWMutex
	allowedUsers map[string]struct{}
}

// New builds the allowlist from user IDs. An empty list lets everyone in.
func New(initial []string) *Service {
	s := &Service{allowedUsers: make(map[string]struct{})}
	for _, id := range initial {
		if id != "" {
			s.allowedUsers[id] = struct{}{}
		}
	}
	return s
}

// Open reports whether the allowlist is disabled.
func (s *Service) Open() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.allowedUsers) == 0
}

func (s *Service) IsAllowed(userID string) bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.allowedUsers) == 0 {
		return true
	}
	_, ok := s.allowedUsers[userID]
	return ok
}

// List returns the allowed IDs sorted.
func (s *Service) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.allowedUsers))
	for id := range s.allowedUsers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
