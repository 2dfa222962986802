package domain

import "time"

// User is a chat-platform end-user known to the service. Users are created
// on first contact and never deleted; last activity is bumped on every
// inbound interaction.
type User struct {
	ID           int64
	ChatID       int64
	FullName     string
	Username     string
	Phone        *string
	FirstSeenAt  time.Time
	LastActiveAt time.Time
}

// Profile carries the identity fields the chat platform attaches to an
// inbound event. The session manager upserts it on every message; empty
// fields never overwrite values already on file.
type Profile struct {
	ChatID   int64
	FullName string
	Username string
}
