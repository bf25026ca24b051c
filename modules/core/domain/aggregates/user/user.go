package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

type Option func(u *user)

func WithID(id uuid.UUID) Option {
	return func(u *user) {
		u.id = id
	}
}

func WithTenantID(id uuid.UUID) Option {
	return func(u *user) {
		u.tenantID = id
	}
}

func WithBranchID(id uuid.UUID) Option {
	return func(u *user) {
		u.branchID = id
	}
}

func WithStatus(s Status) Option {
	return func(u *user) {
		u.status = s
	}
}

func WithPasswordHash(hash string) Option {
	return func(u *user) {
		u.passwordHash = hash
	}
}

func WithFederatedID(subject string) Option {
	return func(u *user) {
		u.federatedID = subject
	}
}

func WithLastLogin(at time.Time) Option {
	return func(u *user) {
		u.lastLogin = at
	}
}

func WithCreatedAt(at time.Time) Option {
	return func(u *user) {
		u.createdAt = at
	}
}

func WithUpdatedAt(at time.Time) Option {
	return func(u *user) {
		u.updatedAt = at
	}
}

// User is immutable; setters return an updated copy.
type User interface {
	ID() uuid.UUID
	TenantID() uuid.UUID
	BranchID() uuid.UUID
	FirstName() string
	LastName() string
	FullName() string
	Email() string
	PasswordHash() string
	Role() tenancy.Role
	Status() Status
	FederatedID() string
	LastLogin() time.Time
	CreatedAt() time.Time
	UpdatedAt() time.Time

	HasPassword() bool
	CanLogin() bool

	SetName(first, last string) User
	SetBranchID(id uuid.UUID) User
	SetRole(role tenancy.Role) User
	SetStatus(status Status) User
	SetPasswordHash(hash string) User
	SetFederatedID(subject string) User
}

func New(email, firstName, lastName string, role tenancy.Role, opts ...Option) User {
	now := time.Now().UTC()
	u := &user{
		id:        uuid.New(),
		email:     NormalizeEmail(email),
		firstName: strings.TrimSpace(firstName),
		lastName:  strings.TrimSpace(lastName),
		role:      role,
		status:    StatusActive,
		createdAt: now,
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type user struct {
	id           uuid.UUID
	tenantID     uuid.UUID
	branchID     uuid.UUID
	firstName    string
	lastName     string
	email        string
	passwordHash string
	role         tenancy.Role
	status       Status
	federatedID  string
	lastLogin    time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

func (u *user) ID() uuid.UUID {
	return u.id
}

func (u *user) TenantID() uuid.UUID {
	return u.tenantID
}

func (u *user) BranchID() uuid.UUID {
	return u.branchID
}

func (u *user) FirstName() string {
	return u.firstName
}

func (u *user) LastName() string {
	return u.lastName
}

func (u *user) FullName() string {
	return strings.TrimSpace(u.firstName + " " + u.lastName)
}

func (u *user) Email() string {
	return u.email
}

func (u *user) PasswordHash() string {
	return u.passwordHash
}

func (u *user) Role() tenancy.Role {
	return u.role
}

func (u *user) Status() Status {
	return u.status
}

func (u *user) FederatedID() string {
	return u.federatedID
}

func (u *user) LastLogin() time.Time {
	return u.lastLogin
}

func (u *user) CreatedAt() time.Time {
	return u.createdAt
}

func (u *user) UpdatedAt() time.Time {
	return u.updatedAt
}

func (u *user) HasPassword() bool {
	return u.passwordHash != ""
}

// CanLogin is true only for active accounts.
func (u *user) CanLogin() bool {
	return u.status == StatusActive
}

func (u *user) touch() *user {
	c := *u
	c.updatedAt = time.Now().UTC()
	return &c
}

func (u *user) SetName(first, last string) User {
	c := u.touch()
	c.firstName = strings.TrimSpace(first)
	c.lastName = strings.TrimSpace(last)
	return c
}

func (u *user) SetBranchID(id uuid.UUID) User {
	c := u.touch()
	c.branchID = id
	return c
}

func (u *user) SetRole(role tenancy.Role) User {
	c := u.touch()
	c.role = role
	return c
}

func (u *user) SetStatus(status Status) User {
	c := u.touch()
	c.status = status
	return c
}

func (u *user) SetPasswordHash(hash string) User {
	c := u.touch()
	c.passwordHash = hash
	return c
}

func (u *user) SetFederatedID(subject string) User {
	c := u.touch()
	c.federatedID = subject
	return c
}
