package session

import "time"

// Well-known keys in session storage.
const (
	KeyID        = "id"
	KeyCreatedAt = "created_at"
	KeyThreadID  = "thread_id"
)

// Info summarises one browser session for clients.
type Info struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId,omitempty"`
	Busy      bool      `json:"busy"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
