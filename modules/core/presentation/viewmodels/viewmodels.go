// Package viewmodels holds the JSON shapes the API answers with.
package viewmodels

import "time"

type Tenant struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Country     string     `json:"country,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	Language    string     `json:"language,omitempty"`
	Onboarded   bool       `json:"onboarded"`
	OnboardedAt *time.Time `json:"onboardedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// PublicTenant is what anonymous callers may learn about an organization.
type PublicTenant struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type SlugAvailability struct {
	Slug      string `json:"slug"`
	Available bool   `json:"available"`
}

type User struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenantId"`
	BranchID  string     `json:"branchId,omitempty"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	Federated bool       `json:"federated"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Branch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	ManagerID string    `json:"managerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Auth struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	TokenType        string    `json:"tokenType"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
	User             User      `json:"user"`
	Tenant           Tenant    `json:"tenant"`
	IsNewUser        bool      `json:"isNewUser"`
}

type Session struct {
	User   User   `json:"user"`
	Tenant Tenant `json:"tenant"`
}

type ItemResult struct {
	Kind  string `json:"kind"`
	Index int    `json:"index"`
	Key   string `json:"key"`
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

type Provisioning struct {
	Tenant          Tenant       `json:"tenant"`
	CreatedBranches int          `json:"createdBranches"`
	InvitedUsers    int          `json:"invitedUsers"`
	Failed          int          `json:"failed"`
	Results         []ItemResult `json:"results"`
}

type List[T any] struct {
	Items []T `json:"items"`
}
