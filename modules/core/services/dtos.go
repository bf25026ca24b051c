package services

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/tenant"
)

type RegisterDTO struct {
	OrganizationName string `json:"organizationName" validate:"required,max=120"`
	AdminName        string `json:"adminName" validate:"required,max=120"`
	Email            string `json:"email" validate:"required,email,max=254"`
	Password         string `json:"password" validate:"required"`
	Country          string `json:"country" validate:"omitempty,max=64"`
	Currency         string `json:"currency" validate:"omitempty,len=3,alpha"`
	Language         string `json:"language" validate:"omitempty,max=8"`
}

type LoginDTO struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	TenantSlug string `json:"tenantSlug" validate:"omitempty,max=63"`
}

type RefreshDTO struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type OrganizationDTO struct {
	Name     string `json:"name" yaml:"name" validate:"required,max=120"`
	Country  string `json:"country" yaml:"country" validate:"omitempty,max=64"`
	Currency string `json:"currency" yaml:"currency" validate:"omitempty,len=3,alpha"`
	Language string `json:"language" yaml:"language" validate:"omitempty,max=8"`
}

// TenantProfileDTO updates the tenant during onboarding; empty fields keep
// the current value.
type TenantProfileDTO struct {
	Name     string `json:"name" validate:"omitempty,max=120"`
	Country  string `json:"country" validate:"omitempty,max=64"`
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
	Language string `json:"language" validate:"omitempty,max=8"`
}

// FederatedLoginDTO carries either a provider ID token or an authorization
// code, never both.
type FederatedLoginDTO struct {
	Credential        string           `json:"credential" validate:"required_without=Code,excluded_with=Code"`
	Code              string           `json:"code" validate:"required_without=Credential"`
	TenantSlug        string           `json:"tenantSlug" validate:"omitempty,max=63"`
	IsNewOrganization bool             `json:"isNewOrganization"`
	Organization      *OrganizationDTO `json:"organization" validate:"omitempty"`
}

type AcceptInviteDTO struct {
	Token     string `json:"token" validate:"required"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"omitempty,max=60"`
	LastName  string `json:"lastName" validate:"omitempty,max=60"`
}

type BranchDTO struct {
	Name    string `json:"name" yaml:"name" validate:"required,max=120"`
	Code    string `json:"code" yaml:"code" validate:"required,max=32"`
	Address string `json:"address" yaml:"address" validate:"omitempty,max=255"`
	Phone   string `json:"phone" yaml:"phone" validate:"omitempty,max=32"`
	// ManagerID must name a user of the same tenant.
	ManagerID string `json:"managerId" yaml:"managerId" validate:"omitempty,uuid"`
}

type InviteDTO struct {
	Email     string `json:"email" yaml:"email" validate:"required,email,max=254"`
	FirstName string `json:"firstName" yaml:"firstName" validate:"omitempty,max=60"`
	LastName  string `json:"lastName" yaml:"lastName" validate:"omitempty,max=60"`
	Role      string `json:"role" yaml:"role" validate:"required,oneof=SuperAdmin BranchAdmin SectionAdmin"`
	// BranchCode refers to a branch created in the same batch or an existing
	// one. BranchID wins when both are set.
	BranchCode string `json:"branchCode" yaml:"branchCode" validate:"omitempty,max=32"`
	BranchID   string `json:"branchId" yaml:"branchId" validate:"omitempty,uuid"`
}

// OnboardDTO items are validated one by one so that a bad row fails alone.
type OnboardDTO struct {
	Tenant   TenantProfileDTO `json:"tenant"`
	Branches []BranchDTO      `json:"branches" validate:"max=500"`
	Invites  []InviteDTO      `json:"invites" validate:"max=500"`
}

type AdminDTO struct {
	Name     string `json:"name" validate:"required,max=120" yaml:"name"`
	Email    string `json:"email" validate:"required,email,max=254" yaml:"email"`
	Password string `json:"password" validate:"required" yaml:"password"`
}

// ProvisionDTO describes a whole organization for bulk import.
type ProvisionDTO struct {
	Organization OrganizationDTO `json:"organization" yaml:"organization"`
	Admin        AdminDTO        `json:"admin" yaml:"admin"`
	Branches     []BranchDTO     `json:"branches" yaml:"branches" validate:"max=500"`
	Invites      []InviteDTO     `json:"invites" yaml:"invites" validate:"max=500"`
}

// AuthResult is what every successful sign-in returns.
type AuthResult struct {
	Tokens    *TokenPair
	User      user.User
	Tenant    *tenant.Tenant
	IsNewUser bool
}

// Session is the hydrated view behind an access token.
type Session struct {
	User   user.User
	Tenant *tenant.Tenant
}

// splitName splits a display name at its first space.
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	first, last, _ := strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

func parseOptionalUUID(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
