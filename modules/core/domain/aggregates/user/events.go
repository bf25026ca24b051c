package user

import (
	"time"

	"github.com/google/uuid"
)

type LoginMethod string

const (
	LoginPassword  LoginMethod = "password"
	LoginFederated LoginMethod = "federated"
	LoginInvite    LoginMethod = "invite"
)

type LoggedInEvent struct {
	User   User
	Method LoginMethod
	At     time.Time
}

func NewLoggedInEvent(u User, method LoginMethod) *LoggedInEvent {
	return &LoggedInEvent{User: u, Method: method, At: time.Now().UTC()}
}

// InvitedEvent carries the one-time invite token to whoever delivers it.
// It is the only place the raw token exists after creation.
type InvitedEvent struct {
	User      User
	InvitedBy uuid.UUID
	Token     string
	ExpiresAt time.Time
}

type RefreshRotatedEvent struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	At       time.Time
}
