package persistence

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/infrastructure/persistence/models"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/isolation"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/repo"
)

var usersTable = isolation.Table{
	Name:          "users",
	TenantColumn:  "tenant_id",
	DeletedColumn: "deleted",
	UpdatedColumn: "updated_at",
}

var userColumns = []string{
	"id", "tenant_id", "branch_id", "first_name", "last_name", "email", "password_hash",
	"role", "status", "federated_id", "last_login", "created_at", "updated_at",
}

type UserRepository struct{}

func NewUserRepository() user.Repository {
	return &UserRepository{}
}

func (r *UserRepository) Create(ctx context.Context, u user.User) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	values := ToDBUser(u)
	values["id"] = u.ID().String()
	values["created_at"] = u.CreatedAt()
	values["deleted"] = false
	if u.TenantID() != uuid.Nil {
		values["tenant_id"] = u.TenantID().String()
	}
	ins, err := usersTable.Insert(isolation.Use(ctx), values)
	if err != nil {
		return err
	}
	if _, err := repo.Exec(ctx, tx, ins); err != nil {
		return r.mapWriteError(err, "insert user")
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u user.User) error {
	return r.update(ctx, u.ID(), ToDBUser(u), "update user")
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	del := usersTable.SoftDelete(isolation.Use(ctx), time.Now().UTC()).
		Set("refresh_token_hash", nil).
		Set("refresh_token_expires_at", nil).
		Where(sq.Eq{"id": id.String()})
	n, err := repo.Exec(ctx, tx, del)
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return r.get(ctx, isolation.Use(ctx), sq.Eq{"id": id.String()})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.get(ctx, isolation.Use(ctx), sq.Eq{"email": user.NormalizeEmail(email)})
}

func (r *UserRepository) GetPaginated(ctx context.Context, params *user.FindParams) ([]user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	q := usersTable.Select(isolation.Use(ctx), userColumns...).OrderBy("email")
	if params.BranchID != uuid.Nil {
		q = q.Where(sq.Eq{"branch_id": params.BranchID.String()})
	}
	if params.Status != "" {
		q = q.Where(sq.Eq{"status": string(params.Status)})
	}
	if params.Limit > 0 {
		q = q.Limit(uint64(params.Limit)).Offset(uint64(params.Offset))
	}
	var rows []models.User
	if err := repo.Select(ctx, tx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "select users")
	}
	out := make([]user.User, 0, len(rows))
	for i := range rows {
		u, err := ToDomainUser(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, id, map[string]any{"last_login": at}, "update last login")
}

func (r *UserRepository) FindLoginCandidate(ctx context.Context, email string) (user.User, error) {
	f := isolation.Unscoped(ctx, "login by global email")
	return r.get(ctx, f, sq.Eq{"email": user.NormalizeEmail(email)})
}

func (r *UserRepository) FindByFederatedID(ctx context.Context, subject string) (user.User, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, user.ErrNotFound
	}
	f := isolation.Unscoped(ctx, "login by federated subject")
	return r.get(ctx, f, sq.Eq{"federated_id": subject})
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	f := isolation.Unscoped(ctx, "global email uniqueness")
	exists, err := repo.Exists(ctx, tx, usersTable.Select(f, "id").Where(sq.Eq{"email": user.NormalizeEmail(email)}))
	if err != nil {
		return false, errors.Wrap(err, "check user email")
	}
	return exists, nil
}

func (r *UserRepository) GetRefreshToken(ctx context.Context, id uuid.UUID) (*user.Secret, error) {
	return r.getSecret(ctx, id, "refresh_token_hash", "refresh_token_expires_at")
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, s *user.Secret) error {
	return r.update(ctx, id, secretValues(s, "refresh_token_hash", "refresh_token_expires_at"), "set refresh token")
}

func (r *UserRepository) RotateRefreshToken(ctx context.Context, id uuid.UUID, oldDigest string, next *user.Secret) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	upd, err := usersTable.Update(isolation.Use(ctx), secretValues(next, "refresh_token_hash", "refresh_token_expires_at"))
	if err != nil {
		return false, err
	}
	n, err := repo.Exec(ctx, tx, upd.Where(sq.Eq{"id": id.String(), "refresh_token_hash": oldDigest}))
	if err != nil {
		return false, errors.Wrap(err, "rotate refresh token")
	}
	return n == 1, nil
}

func (r *UserRepository) GetInvite(ctx context.Context, id uuid.UUID) (*user.Secret, error) {
	return r.getSecret(ctx, id, "invite_token_hash", "invite_expires_at")
}

func (r *UserRepository) SetInvite(ctx context.Context, id uuid.UUID, s *user.Secret) error {
	return r.update(ctx, id, secretValues(s, "invite_token_hash", "invite_expires_at"), "set invite token")
}

func (r *UserRepository) get(ctx context.Context, f isolation.Filter, where sq.Sqlizer) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var row models.User
	if err := repo.Get(ctx, tx, &row, usersTable.Select(f, userColumns...).Where(where)); err != nil {
		if repo.IsNoRows(err) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "select user")
	}
	return ToDomainUser(&row)
}

func (r *UserRepository) getSecret(ctx context.Context, id uuid.UUID, digestCol, expiresCol string) (*user.Secret, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	q := usersTable.Select(isolation.Use(ctx), digestCol+" AS digest", expiresCol+" AS expires_at").
		Where(sq.Eq{"id": id.String()})
	var row models.Secret
	if err := repo.Get(ctx, tx, &row, q); err != nil {
		if repo.IsNoRows(err) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "select token slot")
	}
	return ToDomainSecret(&row), nil
}

func (r *UserRepository) update(ctx context.Context, id uuid.UUID, values map[string]any, op string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, ok := values["updated_at"]; !ok {
		values["updated_at"] = time.Now().UTC()
	}
	upd, err := usersTable.Update(isolation.Use(ctx), values)
	if err != nil {
		return err
	}
	n, err := repo.Exec(ctx, tx, upd.Where(sq.Eq{"id": id.String()}))
	if err != nil {
		return r.mapWriteError(err, op)
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) mapWriteError(err error, op string) error {
	if !repo.IsUniqueViolation(err) {
		return errors.Wrap(err, op)
	}
	if strings.Contains(err.Error(), "federated_id") {
		return user.ErrFederatedIDTaken.Wrap(err)
	}
	return user.ErrEmailTaken.Wrap(err)
}

// secretValues maps a token slot onto its columns; nil clears it.
func secretValues(s *user.Secret, digestCol, expiresCol string) map[string]any {
	if s == nil {
		return map[string]any{digestCol: nil, expiresCol: nil}
	}
	return map[string]any{digestCol: s.Digest, expiresCol: s.ExpiresAt}
}
