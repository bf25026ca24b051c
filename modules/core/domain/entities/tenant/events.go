package tenant

import (
	"time"

	"github.com/google/uuid"
)

type RegisteredEvent struct {
	Tenant  *Tenant
	AdminID uuid.UUID
	At      time.Time
}

type OnboardedEvent struct {
	Tenant   *Tenant
	Branches int
	Invites  int
	Failures int
	ActorID  uuid.UUID
	At       time.Time
}
