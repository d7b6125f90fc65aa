package services

import (
	"sync"
)

// PresenceService хранит эфемерное состояние "кто печатает" по каналам.
// Nothing here is persisted: an entry lives until the user sends stop-typing
// or the connection that added it goes away.
type PresenceService struct {
	mu     sync.Mutex
	typing map[string]map[string]bool // channel_id -> set of usernames
}

func NewPresenceService() *PresenceService {
	return &PresenceService{
		typing: make(map[string]map[string]bool),
	}
}

// SetTyping adds or removes username from the channel's typing set.
func (s *PresenceService) SetTyping(channelID, username string, typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if typing {
		if _, ok := s.typing[channelID]; !ok {
			s.typing[channelID] = make(map[string]bool)
		}
		s.typing[channelID][username] = true
		return
	}

	s.removeLocked(channelID, username)
}

// ClearUser removes username from the channel's typing set and reports
// whether the user was actually typing. Used on leave and on disconnect.
func (s *PresenceService) ClearUser(channelID, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasTyping := s.typing[channelID][username]
	s.removeLocked(channelID, username)
	return wasTyping
}

// TypingUsers returns a snapshot of the channel's typing set.
func (s *PresenceService) TypingUsers(channelID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]string, 0, len(s.typing[channelID]))
	for username := range s.typing[channelID] {
		users = append(users, username)
	}
	return users
}

func (s *PresenceService) removeLocked(channelID, username string) {
	if set, ok := s.typing[channelID]; ok {
		delete(set, username)
		if len(set) == 0 {
			delete(s.typing, channelID)
		}
	}
}
