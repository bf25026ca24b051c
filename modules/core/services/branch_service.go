package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/branch"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/permissions"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/validation"
)

var ErrManagerOutsideTenant = serrors.Validation(
	"MANAGER_NOT_IN_TENANT",
	"branch manager must be a user of the same organization",
).WithField("managerId", "tenant")

type BranchService struct {
	repo  branch.Repository
	users user.Repository
	authz *authz.Service
}

func NewBranchService(repo branch.Repository, users user.Repository, authzService *authz.Service) *BranchService {
	return &BranchService{
		repo:  repo,
		users: users,
		authz: authzService,
	}
}

func (s *BranchService) GetByID(ctx context.Context, id uuid.UUID) (*branch.Branch, error) {
	if err := s.authz.Require(ctx, permissions.BranchRead); err != nil {
		return nil, err
	}
	if err := s.authz.RequireBranch(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// List returns the tenant's branches. Branch-scoped callers only ever see
// their own branch.
func (s *BranchService) List(ctx context.Context, params *branch.FindParams) ([]*branch.Branch, error) {
	if err := s.authz.Require(ctx, permissions.BranchRead); err != nil {
		return nil, err
	}
	p := *params
	if tc := tenancy.Use(ctx); tc.Role.BranchScoped() {
		p.BranchID = tc.BranchID
		if p.BranchID == uuid.Nil {
			return []*branch.Branch{}, nil
		}
	}
	return s.repo.GetPaginated(ctx, &p)
}

func (s *BranchService) Create(ctx context.Context, dto *BranchDTO) (*branch.Branch, error) {
	if err := s.authz.Require(ctx, permissions.BranchCreate); err != nil {
		return nil, err
	}
	return s.create(ctx, dto)
}

// create skips authorization; callers have already checked it.
func (s *BranchService) create(ctx context.Context, dto *BranchDTO) (*branch.Branch, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	tc := tenancy.Use(ctx)
	b := branch.New(dto.Name, dto.Code,
		branch.WithTenantID(tc.TenantID),
		branch.WithAddress(dto.Address),
		branch.WithPhone(dto.Phone),
	)
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		managerID, err := s.resolveManager(txCtx, dto.ManagerID)
		if err != nil {
			return err
		}
		b.SetManagerID(managerID)
		return s.repo.Create(txCtx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BranchService) Update(ctx context.Context, id uuid.UUID, dto *BranchDTO) (*branch.Branch, error) {
	if err := s.authz.Require(ctx, permissions.BranchUpdate); err != nil {
		return nil, err
	}
	if err := s.authz.RequireBranch(ctx, id); err != nil {
		return nil, err
	}
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	var b *branch.Branch
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		if b, err = s.repo.GetByID(txCtx, id); err != nil {
			return err
		}
		if branch.NormalizeCode(dto.Code) != b.Code() {
			return serrors.Validation(validation.ErrCodeInvalidInput, "branch code cannot be changed").
				WithField("code", "immutable")
		}
		managerID, err := s.resolveManager(txCtx, dto.ManagerID)
		if err != nil {
			return err
		}
		b.Update(dto.Name, dto.Address, dto.Phone)
		b.SetManagerID(managerID)
		return s.repo.Update(txCtx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Delete soft-deletes a branch.
func (s *BranchService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.authz.Require(ctx, permissions.BranchDelete); err != nil {
		return err
	}
	if err := s.authz.RequireBranch(ctx, id); err != nil {
		return err
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}

// resolveManager checks that the manager, if any, is visible in the current
// tenant. A user of another tenant is indistinguishable from a missing one.
func (s *BranchService) resolveManager(ctx context.Context, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrManagerOutsideTenant
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return uuid.Nil, ErrManagerOutsideTenant
		}
		return uuid.Nil, err
	}
	return id, nil
}
