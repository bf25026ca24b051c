package mappers

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/branch"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/tenant"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/viewmodels"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

func optionalID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func TenantToViewModel(t *tenant.Tenant) viewmodels.Tenant {
	if t == nil {
		return viewmodels.Tenant{}
	}
	return viewmodels.Tenant{
		ID:          t.ID().String(),
		Name:        t.Name(),
		Slug:        t.Slug(),
		Country:     t.Country(),
		Currency:    t.Currency(),
		Language:    t.Language(),
		Onboarded:   t.IsOnboarded(),
		OnboardedAt: optionalTime(t.OnboardedAt()),
		CreatedAt:   t.CreatedAt(),
	}
}

func TenantToPublicViewModel(t *tenant.Tenant) viewmodels.PublicTenant {
	return viewmodels.PublicTenant{Name: t.Name(), Slug: t.Slug()}
}

func UserToViewModel(u user.User) viewmodels.User {
	if u == nil {
		return viewmodels.User{}
	}
	return viewmodels.User{
		ID:        u.ID().String(),
		TenantID:  u.TenantID().String(),
		BranchID:  optionalID(u.BranchID()),
		Email:     u.Email(),
		FirstName: u.FirstName(),
		LastName:  u.LastName(),
		Role:      string(u.Role()),
		Status:    string(u.Status()),
		Federated: u.FederatedID() != "",
		LastLogin: optionalTime(u.LastLogin()),
		CreatedAt: u.CreatedAt(),
	}
}

func UsersToViewModels(users []user.User) []viewmodels.User {
	out := make([]viewmodels.User, 0, len(users))
	for _, u := range users {
		out = append(out, UserToViewModel(u))
	}
	return out
}

func BranchToViewModel(b *branch.Branch) viewmodels.Branch {
	return viewmodels.Branch{
		ID:        b.ID().String(),
		Name:      b.Name(),
		Code:      b.Code(),
		Address:   b.Address(),
		Phone:     b.Phone(),
		ManagerID: optionalID(b.ManagerID()),
		CreatedAt: b.CreatedAt(),
		UpdatedAt: b.UpdatedAt(),
	}
}

func BranchesToViewModels(branches []*branch.Branch) []viewmodels.Branch {
	out := make([]viewmodels.Branch, 0, len(branches))
	for _, b := range branches {
		out = append(out, BranchToViewModel(b))
	}
	return out
}

func AuthResultToViewModel(r *services.AuthResult) viewmodels.Auth {
	return viewmodels.Auth{
		AccessToken:      r.Tokens.AccessToken,
		RefreshToken:     r.Tokens.RefreshToken,
		TokenType:        "Bearer",
		ExpiresAt:        r.Tokens.ExpiresAt,
		RefreshExpiresAt: r.Tokens.RefreshExpiresAt,
		User:             UserToViewModel(r.User),
		Tenant:           TenantToViewModel(r.Tenant),
		IsNewUser:        r.IsNewUser,
	}
}

func SessionToViewModel(s *services.Session) viewmodels.Session {
	return viewmodels.Session{
		User:   UserToViewModel(s.User),
		Tenant: TenantToViewModel(s.Tenant),
	}
}

// ItemResultToViewModel never exposes the cause of an internal failure.
func ItemResultToViewModel(r services.ItemResult) viewmodels.ItemResult {
	vm := viewmodels.ItemResult{
		Kind:  string(r.Kind),
		Index: r.Index,
		Key:   r.Key,
		OK:    r.OK,
		ID:    optionalID(r.ID),
	}
	if r.Error == nil {
		return vm
	}
	if e, ok := serrors.As(r.Error); ok && e.Kind != serrors.KindInternal {
		vm.Code = e.Code
		vm.Error = e.Message
	} else {
		vm.Code = "INTERNAL"
		vm.Error = "internal error"
	}
	return vm
}

func ProvisioningToViewModel(r *services.ProvisioningResult) viewmodels.Provisioning {
	results := make([]viewmodels.ItemResult, 0, len(r.Results))
	for _, item := range r.Results {
		results = append(results, ItemResultToViewModel(item))
	}
	return viewmodels.Provisioning{
		Tenant:          TenantToViewModel(r.Tenant),
		CreatedBranches: len(r.CreatedBranches),
		InvitedUsers:    len(r.InvitedUsers),
		Failed:          len(r.Failed()),
		Results:         results,
	}
}
