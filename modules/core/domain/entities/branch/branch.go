package branch

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Branch struct {
	id        uuid.UUID
	tenantID  uuid.UUID
	name      string
	code      string
	address   string
	phone     string
	managerID uuid.UUID
	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Branch)

func WithID(id uuid.UUID) Option {
	return func(b *Branch) {
		b.id = id
	}
}

func WithTenantID(id uuid.UUID) Option {
	return func(b *Branch) {
		b.tenantID = id
	}
}

func WithAddress(address string) Option {
	return func(b *Branch) {
		b.address = address
	}
}

func WithPhone(phone string) Option {
	return func(b *Branch) {
		b.phone = phone
	}
}

func WithManagerID(id uuid.UUID) Option {
	return func(b *Branch) {
		b.managerID = id
	}
}

func WithCreatedAt(at time.Time) Option {
	return func(b *Branch) {
		b.createdAt = at
	}
}

func WithUpdatedAt(at time.Time) Option {
	return func(b *Branch) {
		b.updatedAt = at
	}
}

// NormalizeCode upper-cases and trims a branch code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// New builds a branch. Codes are unique per tenant and never change.
func New(name, code string, opts ...Option) *Branch {
	now := time.Now().UTC()
	b := &Branch{
		id:        uuid.New(),
		name:      name,
		code:      NormalizeCode(code),
		createdAt: now,
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Branch) ID() uuid.UUID {
	return b.id
}

func (b *Branch) TenantID() uuid.UUID {
	return b.tenantID
}

func (b *Branch) Name() string {
	return b.name
}

func (b *Branch) Code() string {
	return b.code
}

func (b *Branch) Address() string {
	return b.address
}

func (b *Branch) Phone() string {
	return b.phone
}

// ManagerID is uuid.Nil when no manager is assigned.
func (b *Branch) ManagerID() uuid.UUID {
	return b.managerID
}

func (b *Branch) CreatedAt() time.Time {
	return b.createdAt
}

func (b *Branch) UpdatedAt() time.Time {
	return b.updatedAt
}

func (b *Branch) Update(name, address, phone string) {
	if name != "" {
		b.name = name
	}
	b.address = address
	b.phone = phone
	b.updatedAt = time.Now().UTC()
}

func (b *Branch) SetManagerID(id uuid.UUID) {
	b.managerID = id
	b.updatedAt = time.Now().UTC()
}
