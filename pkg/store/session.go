package store

import (
	"time"

	"linguabridge-gateway/pkg/chat"
	"linguabridge-gateway/pkg/coordinator"
)

// Session is the live, in-memory state of one signed-in browser session.
// It is created when the session is established and dropped on sign-out or
// expiry; nothing here is persisted.
type Session struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	AccessToken string `json:"-"`

	EstablishedAt time.Time `json:"established_at"`

	Coordinator *coordinator.Coordinator `json:"-"`
	Chat        *chat.Panel              `json:"-"`
}

func (s *Session) User() coordinator.User {
	return coordinator.User{ID: s.UserID, Email: s.Email}
}

// Snapshot is the combined view a widget gets when it (re)connects.
type Snapshot struct {
	State coordinator.Snapshot `json:"state"`
	Chat  chat.Snapshot        `json:"chat"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		State: s.Coordinator.Snapshot(),
		Chat:  s.Chat.Snapshot(),
	}
}
