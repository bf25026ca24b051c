package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/branch"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/tenant"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/permissions"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/eventbus"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/validation"
)

var (
	ErrAlreadyOnboarded = serrors.Conflict("TENANT_ALREADY_ONBOARDED", "organization has already been onboarded")
	ErrDuplicateInBatch = serrors.Conflict("DUPLICATE_IN_BATCH", "duplicates an earlier item of the same batch")
)

type ItemKind string

const (
	ItemBranch ItemKind = "branch"
	ItemInvite ItemKind = "invite"
)

// ItemResult is the outcome of one bulk item. Index points back into the
// caller's input list of that kind; Key is the branch code or invite email.
type ItemResult struct {
	Kind  ItemKind
	Index int
	Key   string
	OK    bool
	ID    uuid.UUID
	Error error
}

type ProvisioningResult struct {
	Tenant          *tenant.Tenant
	CreatedBranches []*branch.Branch
	InvitedUsers    []user.User
	// Results holds branch items in input order followed by invite items.
	Results []ItemResult
}

func (r *ProvisioningResult) Failed() []ItemResult {
	var out []ItemResult
	for _, res := range r.Results {
		if !res.OK {
			out = append(out, res)
		}
	}
	return out
}

// ProvisioningService builds an organization's initial structure. Tenant
// level steps are all-or-nothing; bulk items succeed or fail one by one.
type ProvisioningService struct {
	tenants     tenant.Repository
	auth        *AuthService
	branches    *BranchService
	users       *UserService
	authz       *authz.Service
	publisher   eventbus.EventBus
	concurrency int
}

func NewProvisioningService(
	tenants tenant.Repository,
	auth *AuthService,
	branches *BranchService,
	users *UserService,
	authzService *authz.Service,
	publisher eventbus.EventBus,
	concurrency int,
) *ProvisioningService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ProvisioningService{
		tenants:     tenants,
		auth:        auth,
		branches:    branches,
		users:       users,
		authz:       authzService,
		publisher:   publisher,
		concurrency: concurrency,
	}
}

// Onboard completes the caller's organization profile and creates its
// branches and staff invites. It runs once per tenant.
func (s *ProvisioningService) Onboard(ctx context.Context, dto *OnboardDTO) (*ProvisioningResult, error) {
	if err := s.authz.Require(ctx, permissions.TenantOnboard); err != nil {
		return nil, err
	}
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	tc := tenancy.Use(ctx)

	var t *tenant.Tenant
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		if t, err = s.tenants.GetByID(txCtx, tc.TenantID); err != nil {
			return err
		}
		t.SetProfile(dto.Tenant.Name, dto.Tenant.Country, normalizeCurrency(dto.Tenant.Currency), dto.Tenant.Language)
		if err := s.tenants.Update(txCtx, t); err != nil {
			return err
		}
		return s.markOnboarded(txCtx, t)
	})
	if err != nil {
		return nil, err
	}

	result := s.provisionChildren(ctx, t, dto.Branches, dto.Invites)
	s.publishOnboarded(result, tc.UserID)
	return result, nil
}

// Provision registers a new organization with its admin and then creates
// the given branches and invites on the admin's behalf. A duplicate
// organization fails the whole call with Conflict.
func (s *ProvisioningService) Provision(ctx context.Context, dto *ProvisionDTO) (*ProvisioningResult, *AuthResult, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, nil, err
	}
	registered, err := s.auth.Register(ctx, &RegisterDTO{
		OrganizationName: dto.Organization.Name,
		AdminName:        dto.Admin.Name,
		Email:            dto.Admin.Email,
		Password:         dto.Admin.Password,
		Country:          dto.Organization.Country,
		Currency:         dto.Organization.Currency,
		Language:         dto.Organization.Language,
	})
	if err != nil {
		return nil, nil, err
	}
	t, admin := registered.Tenant, registered.User
	ctx = tenancy.WithContext(ctx, tenancy.Context{
		TenantID: t.ID(),
		UserID:   admin.ID(),
		Role:     admin.Role(),
	})
	if err := composables.InTx(ctx, func(txCtx context.Context) error {
		return s.markOnboarded(txCtx, t)
	}); err != nil {
		return nil, registered, err
	}

	result := s.provisionChildren(ctx, t, dto.Branches, dto.Invites)
	s.publishOnboarded(result, admin.ID())
	return result, registered, nil
}

func (s *ProvisioningService) markOnboarded(ctx context.Context, t *tenant.Tenant) error {
	now := time.Now().UTC()
	ok, err := s.tenants.MarkOnboarded(ctx, t.ID(), now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyOnboarded
	}
	t.MarkOnboarded(now)
	return nil
}

// provisionChildren creates branches first so that invites can refer to
// them by code. Every item is attempted in its own transaction, except
// in-batch duplicates, which are rejected without a store write.
func (s *ProvisioningService) provisionChildren(ctx context.Context, t *tenant.Tenant, branches []BranchDTO, invites []InviteDTO) *ProvisioningResult {
	result := &ProvisioningResult{Tenant: t}

	branchResults := make([]ItemResult, len(branches))
	created := make([]*branch.Branch, len(branches))
	for i := range branches {
		branchResults[i] = ItemResult{Kind: ItemBranch, Index: i, Key: branch.NormalizeCode(branches[i].Code)}
	}
	dupes := firstOccurrences(branchResults)
	s.runBatch(ctx, branchResults, func(i int, res *ItemResult) {
		if dupes[i] {
			res.Error = ErrDuplicateInBatch.WithField("code", "unique")
			return
		}
		b, err := s.branches.create(ctx, &branches[i])
		if err != nil {
			res.Error = err
			return
		}
		created[i] = b
		res.OK, res.ID = true, b.ID()
	})

	inviteResults := make([]ItemResult, len(invites))
	invited := make([]user.User, len(invites))
	for i := range invites {
		inviteResults[i] = ItemResult{Kind: ItemInvite, Index: i, Key: user.NormalizeEmail(invites[i].Email)}
	}
	dupes = firstOccurrences(inviteResults)
	s.runBatch(ctx, inviteResults, func(i int, res *ItemResult) {
		if dupes[i] {
			res.Error = ErrDuplicateInBatch.WithField("email", "unique")
			return
		}
		u, err := s.users.invite(ctx, &invites[i])
		if err != nil {
			res.Error = err
			return
		}
		invited[i] = u
		res.OK, res.ID = true, u.ID()
	})

	for _, b := range created {
		if b != nil {
			result.CreatedBranches = append(result.CreatedBranches, b)
		}
	}
	for _, u := range invited {
		if u != nil {
			result.InvitedUsers = append(result.InvitedUsers, u)
		}
	}
	result.Results = append(branchResults, inviteResults...)
	return result
}

// runBatch runs fn for every prepared result, at most s.concurrency at a
// time. Items not yet started when ctx is done fail with the context error.
func (s *ProvisioningService) runBatch(ctx context.Context, results []ItemResult, fn func(i int, res *ItemResult)) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range results {
		g.Go(func() error {
			res := &results[i]
			if err := ctx.Err(); err != nil {
				res.Error = err
			} else {
				fn(i, res)
			}
			recordItem(res.Kind, res.OK)
			return nil
		})
	}
	_ = g.Wait()
}

// firstOccurrences marks every item whose key already appeared at a lower
// index. Empty keys are left for validation to reject.
func firstOccurrences(items []ItemResult) []bool {
	seen := make(map[string]struct{}, len(items))
	dup := make([]bool, len(items))
	for i, item := range items {
		if item.Key == "" {
			continue
		}
		if _, ok := seen[item.Key]; ok {
			dup[i] = true
			continue
		}
		seen[item.Key] = struct{}{}
	}
	return dup
}

func (s *ProvisioningService) publishOnboarded(result *ProvisioningResult, actorID uuid.UUID) {
	s.publisher.Publish(&tenant.OnboardedEvent{
		Tenant:   result.Tenant,
		Branches: len(result.CreatedBranches),
		Invites:  len(result.InvitedUsers),
		Failures: len(result.Failed()),
		ActorID:  actorID,
		At:       time.Now().UTC(),
	})
}
