package tenant

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	id          uuid.UUID
	name        string
	slug        string
	country     string
	currency    string
	language    string
	isActive    bool
	onboardedAt time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

type Option func(*Tenant)

func WithID(id uuid.UUID) Option {
	return func(t *Tenant) {
		t.id = id
	}
}

func WithProfile(country, currency, language string) Option {
	return func(t *Tenant) {
		t.country = country
		t.currency = currency
		t.language = language
	}
}

func WithIsActive(isActive bool) Option {
	return func(t *Tenant) {
		t.isActive = isActive
	}
}

func WithOnboardedAt(at time.Time) Option {
	return func(t *Tenant) {
		t.onboardedAt = at
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(t *Tenant) {
		t.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(t *Tenant) {
		t.updatedAt = updatedAt
	}
}

// New builds an active tenant. The slug is fixed for the tenant's lifetime.
func New(name, slug string, opts ...Option) *Tenant {
	now := time.Now().UTC()
	t := &Tenant{
		id:        uuid.New(),
		name:      name,
		slug:      slug,
		language:  "en",
		isActive:  true,
		createdAt: now,
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tenant) ID() uuid.UUID {
	return t.id
}

func (t *Tenant) Name() string {
	return t.name
}

func (t *Tenant) Slug() string {
	return t.slug
}

func (t *Tenant) Country() string {
	return t.country
}

func (t *Tenant) Currency() string {
	return t.currency
}

func (t *Tenant) Language() string {
	return t.language
}

func (t *Tenant) IsActive() bool {
	return t.isActive
}

func (t *Tenant) IsOnboarded() bool {
	return !t.onboardedAt.IsZero()
}

func (t *Tenant) OnboardedAt() time.Time {
	return t.onboardedAt
}

func (t *Tenant) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Tenant) UpdatedAt() time.Time {
	return t.updatedAt
}

// SetProfile replaces the editable profile. Empty values keep the current one.
func (t *Tenant) SetProfile(name, country, currency, language string) {
	if name != "" {
		t.name = name
	}
	if country != "" {
		t.country = country
	}
	if currency != "" {
		t.currency = currency
	}
	if language != "" {
		t.language = language
	}
	t.updatedAt = time.Now().UTC()
}

func (t *Tenant) MarkOnboarded(at time.Time) {
	t.onboardedAt = at
	t.updatedAt = at
}
