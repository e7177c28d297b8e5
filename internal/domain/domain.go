package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RoleAdmin is the role that grants publish access.
const RoleAdmin = "Admin"

// --- Model types ---

// Announcement is a persisted broadcast message. Immutable once created:
// the store assigns ID and CreatedAt, callers only supply the text.
type Announcement struct {
	ID        int64     `json:"id" db:"id"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Identity is an authenticated principal as supplied by the session layer.
// The zero value is the anonymous identity.
type Identity struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// IsAnonymous reports whether the identity carries no authenticated name.
func (i Identity) IsAnonymous() bool {
	return i.Name == ""
}

// HasRole reports whether the identity's role set contains role.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// User is a registered account. Password hashing happens in the server
// layer; the hash is opaque to everything else.
type User struct {
	ID           uuid.UUID `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Roles        []string  `db:"roles"`
	Joined       time.Time `db:"joined"`
}

// Identity returns the publish-facing view of the user.
func (u *User) Identity() Identity {
	return Identity{Name: u.Username, Roles: u.Roles}
}

// PushMessage is the payload delivered to each live subscriber.
// The id and timestamp are deliberately omitted: clients that need them
// fetch history instead.
type PushMessage struct {
	EventName string `json:"eventName"`
	Message   string `json:"message"`
}

// EventReceiveAnnouncement is the event name used for live deliveries.
const EventReceiveAnnouncement = "ReceiveAnnouncement"

// --- Interfaces ---

// AnnouncementRepository is the durable, append-only announcement record.
// Append assigns strictly increasing ids even under concurrent calls; List
// returns all records in ascending id order and never observes a
// partially written record.
type AnnouncementRepository interface {
	Append(ctx context.Context, message string) (Announcement, error)
	List(ctx context.Context) ([]Announcement, error)
}

// UserRepository stores registered accounts. Create returns
// ErrUsernameTaken when the username already exists; FindByUsername
// returns ErrUserNotFound when it does not.
type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
}
