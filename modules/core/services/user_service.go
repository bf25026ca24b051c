package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/branch"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/permissions"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/eventbus"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/validation"
)

var ErrBranchRequired = serrors.Validation(validation.ErrCodeInvalidInput, "branch roles need a branch").
	WithField("branchCode", "required")

var ErrUnknownBranch = serrors.Validation("UNKNOWN_BRANCH", "branch does not exist in this organization").
	WithField("branchCode", "exists")

// ErrSelfAction keeps users from suspending or deleting themselves.
var ErrSelfAction = serrors.Forbidden("SELF_ACTION", "not permitted")

type UserService struct {
	repo      user.Repository
	branches  branch.Repository
	tokens    *TokenService
	authz     *authz.Service
	publisher eventbus.EventBus
	inviteTTL time.Duration
}

func NewUserService(
	repo user.Repository,
	branches branch.Repository,
	tokens *TokenService,
	authzService *authz.Service,
	publisher eventbus.EventBus,
	inviteTTL time.Duration,
) *UserService {
	return &UserService{
		repo:      repo,
		branches:  branches,
		tokens:    tokens,
		authz:     authzService,
		publisher: publisher,
		inviteTTL: inviteTTL,
	}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	if err := s.authz.Require(ctx, permissions.UserRead); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireBranch(ctx, u.BranchID()); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns users of the tenant, narrowed to the caller's branch for
// branch-scoped roles.
func (s *UserService) List(ctx context.Context, params *user.FindParams) ([]user.User, error) {
	if err := s.authz.Require(ctx, permissions.UserRead); err != nil {
		return nil, err
	}
	p := *params
	if tc := tenancy.Use(ctx); tc.Role.BranchScoped() {
		p.BranchID = tc.BranchID
		if p.BranchID == uuid.Nil {
			return []user.User{}, nil
		}
	}
	return s.repo.GetPaginated(ctx, &p)
}

func (s *UserService) Invite(ctx context.Context, dto *InviteDTO) (user.User, error) {
	if err := s.authz.Require(ctx, permissions.UserInvite); err != nil {
		return nil, err
	}
	return s.invite(ctx, dto)
}

// invite creates an Invited user with a one-time token. The token leaves
// this service only through the published InvitedEvent.
func (s *UserService) invite(ctx context.Context, dto *InviteDTO) (user.User, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	role, ok := tenancy.ParseRole(dto.Role)
	if !ok {
		return nil, serrors.Validation(validation.ErrCodeInvalidInput, "request is invalid").WithField("role", "oneof")
	}
	if err := s.authz.RequireRoleAssignment(ctx, role); err != nil {
		return nil, err
	}
	tc := tenancy.Use(ctx)

	var (
		invited   user.User
		token     string
		expiresAt time.Time
	)
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		branchID, err := s.resolveBranch(txCtx, dto)
		if err != nil {
			return err
		}
		if branchID == uuid.Nil && tc.Role.BranchScoped() {
			branchID = tc.BranchID
		}
		if branchID == uuid.Nil && role.BranchScoped() {
			return ErrBranchRequired
		}
		if err := s.authz.RequireBranch(txCtx, branchID); err != nil {
			return err
		}
		taken, err := s.repo.EmailExists(txCtx, dto.Email)
		if err != nil {
			return err
		}
		if taken {
			return user.ErrEmailTaken
		}
		u := user.New(dto.Email, dto.FirstName, dto.LastName, role,
			user.WithTenantID(tc.TenantID),
			user.WithBranchID(branchID),
			user.WithStatus(user.StatusInvited),
		)
		if err := s.repo.Create(txCtx, u); err != nil {
			return err
		}
		if token, expiresAt, err = s.tokens.NewInvite(txCtx, u, s.inviteTTL); err != nil {
			return err
		}
		invited = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(&user.InvitedEvent{
		User:      invited,
		InvitedBy: tc.UserID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
	return invited, nil
}

func (s *UserService) resolveBranch(ctx context.Context, dto *InviteDTO) (uuid.UUID, error) {
	var (
		b   *branch.Branch
		err error
	)
	switch {
	case dto.BranchID != "":
		b, err = s.branches.GetByID(ctx, uuid.MustParse(dto.BranchID))
	case dto.BranchCode != "":
		b, err = s.branches.GetByCode(ctx, dto.BranchCode)
	default:
		return uuid.Nil, nil
	}
	if err != nil {
		if errors.Is(err, branch.ErrNotFound) {
			return uuid.Nil, ErrUnknownBranch
		}
		return uuid.Nil, err
	}
	return b.ID(), nil
}

// Suspend blocks a user from logging in and revokes their refresh token.
func (s *UserService) Suspend(ctx context.Context, id uuid.UUID) (user.User, error) {
	if err := s.authz.Require(ctx, permissions.UserSuspend); err != nil {
		return nil, err
	}
	var suspended user.User
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		u, err := s.manageable(txCtx, id)
		if err != nil {
			return err
		}
		suspended = u.SetStatus(user.StatusSuspended)
		if err := s.repo.Update(txCtx, suspended); err != nil {
			return err
		}
		return s.repo.SetRefreshToken(txCtx, id, nil)
	})
	if err != nil {
		return nil, err
	}
	return suspended, nil
}

// Delete soft-deletes a user.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.authz.Require(ctx, permissions.UserDelete); err != nil {
		return err
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		if _, err := s.manageable(txCtx, id); err != nil {
			return err
		}
		return s.repo.Delete(txCtx, id)
	})
}

// manageable loads a user the caller may act on: not themselves, within
// their branch and not above their own role.
func (s *UserService) manageable(ctx context.Context, id uuid.UUID) (user.User, error) {
	if tenancy.Use(ctx).UserID == id {
		return nil, ErrSelfAction
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireBranch(ctx, u.BranchID()); err != nil {
		return nil, err
	}
	if err := s.authz.RequireRoleAssignment(ctx, u.Role()); err != nil {
		return nil, err
	}
	return u, nil
}
