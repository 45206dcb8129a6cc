package service

import "time"

// SetUsernameGenerator replaces the username generator of s
func (s *ProfileService) SetUsernameGenerator(gen func() string) {
	s.newUsername = gen
}

// SetClock replaces the clock used for image keys
func (s *ImageService) SetClock(now func() time.Time) {
	s.now = now
}

// AssistantGreeting is the message every chat session opens with
const AssistantGreeting = assistantGreeting

// SetClock replaces the clock used for session expiry
func (s *MemoryChatStore) SetClock(now func() time.Time) {
	s.now = now
}
