package persistence

import (
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/branch"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/tenant"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/infrastructure/persistence/models"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

func ToDomainTenant(m *models.Tenant) (*tenant.Tenant, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, errors.Wrap(err, "parse tenant id")
	}
	opts := []tenant.Option{
		tenant.WithID(id),
		tenant.WithProfile(m.Country, m.Currency, m.Language),
		tenant.WithIsActive(m.IsActive),
		tenant.WithCreatedAt(m.CreatedAt),
		tenant.WithUpdatedAt(m.UpdatedAt),
	}
	if m.OnboardedAt.Valid {
		opts = append(opts, tenant.WithOnboardedAt(m.OnboardedAt.Time))
	}
	return tenant.New(m.Name, m.Slug, opts...), nil
}

func ToDBTenant(t *tenant.Tenant) map[string]any {
	return map[string]any{
		"id":           t.ID().String(),
		"name":         t.Name(),
		"slug":         t.Slug(),
		"country":      t.Country(),
		"currency":     t.Currency(),
		"language":     t.Language(),
		"is_active":    t.IsActive(),
		"onboarded_at": nullTime(t.OnboardedAt()),
		"created_at":   t.CreatedAt(),
		"updated_at":   t.UpdatedAt(),
	}
}

func ToDomainBranch(m *models.Branch) (*branch.Branch, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, errors.Wrap(err, "parse branch id")
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "parse branch tenant id")
	}
	managerID, err := parseNullUUID(m.ManagerID)
	if err != nil {
		return nil, errors.Wrap(err, "parse branch manager id")
	}
	return branch.New(m.Name, m.Code,
		branch.WithID(id),
		branch.WithTenantID(tenantID),
		branch.WithAddress(m.Address),
		branch.WithPhone(m.Phone),
		branch.WithManagerID(managerID),
		branch.WithCreatedAt(m.CreatedAt),
		branch.WithUpdatedAt(m.UpdatedAt),
	), nil
}

func ToDBBranch(b *branch.Branch) map[string]any {
	return map[string]any{
		"id":         b.ID().String(),
		"tenant_id":  b.TenantID().String(),
		"name":       b.Name(),
		"code":       b.Code(),
		"address":    b.Address(),
		"phone":      b.Phone(),
		"manager_id": nullUUID(b.ManagerID()),
		"created_at": b.CreatedAt(),
		"updated_at": b.UpdatedAt(),
	}
}

func ToDomainUser(m *models.User) (user.User, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, errors.Wrap(err, "parse user id")
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "parse user tenant id")
	}
	branchID, err := parseNullUUID(m.BranchID)
	if err != nil {
		return nil, errors.Wrap(err, "parse user branch id")
	}
	status, err := user.NewStatus(m.Status)
	if err != nil {
		return nil, errors.Wrapf(err, "user %s", m.ID)
	}
	opts := []user.Option{
		user.WithID(id),
		user.WithTenantID(tenantID),
		user.WithBranchID(branchID),
		user.WithStatus(status),
		user.WithPasswordHash(m.PasswordHash),
		user.WithFederatedID(m.FederatedID.String),
		user.WithCreatedAt(m.CreatedAt),
		user.WithUpdatedAt(m.UpdatedAt),
	}
	if m.LastLogin.Valid {
		opts = append(opts, user.WithLastLogin(m.LastLogin.Time))
	}
	return user.New(m.Email, m.FirstName, m.LastName, tenancy.Role(m.Role), opts...), nil
}

// ToDBUser maps the mutable profile columns. Token slots are written through
// their own repository methods.
func ToDBUser(u user.User) map[string]any {
	return map[string]any{
		"branch_id":     nullUUID(u.BranchID()),
		"first_name":    u.FirstName(),
		"last_name":     u.LastName(),
		"email":         u.Email(),
		"password_hash": u.PasswordHash(),
		"role":          string(u.Role()),
		"status":        string(u.Status()),
		"federated_id":  nullString(u.FederatedID()),
		"updated_at":    u.UpdatedAt(),
	}
}

func ToDomainSecret(m *models.Secret) *user.Secret {
	if !m.Digest.Valid || m.Digest.String == "" {
		return nil
	}
	return &user.Secret{Digest: m.Digest.String, ExpiresAt: m.ExpiresAt.Time}
}

func nullUUID(id uuid.UUID) sql.NullString {
	if id == uuid.Nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func parseNullUUID(s sql.NullString) (uuid.UUID, error) {
	if !s.Valid || s.String == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s.String)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
