package authz

import (
	"bufio"
	"context"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

// Service answers whether the caller's role may perform an operation and
// whether a branch-scoped caller may touch a given branch. The policy is
// loaded once in NewService and only read afterwards.
type Service struct {
	enforcer     *casbin.Enforcer
	logger       *logrus.Entry
	flagProvider FlagProvider
}

// NewService constructs a Service with the provided config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	m, err := model.NewModelFromString(cfg.Model)
	if err != nil {
		return nil, configError("invalid model: %v", err)
	}

	var enf *casbin.Enforcer
	if cfg.PolicyPath != "" {
		enf, err = casbin.NewEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
		if err != nil {
			return nil, configError("failed to initialize enforcer: %v", err)
		}
	} else {
		enf, err = casbin.NewEnforcer(m)
		if err != nil {
			return nil, configError("failed to initialize enforcer: %v", err)
		}
		rules, err := parsePolicy(cfg.Policy)
		if err != nil {
			return nil, err
		}
		if _, err := enf.AddPolicies(rules); err != nil {
			return nil, configError("failed to load policies: %v", err)
		}
	}

	return &Service{
		enforcer:     enf,
		logger:       cfg.Logger.WithField("component", "authz"),
		flagProvider: cfg.FlagProvider,
	}, nil
}

// parsePolicy reads casbin CSV policy lines ("p, sub, obj, act").
func parsePolicy(policy string) ([][]string, error) {
	var rules [][]string
	sc := bufio.NewScanner(strings.NewReader(policy))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[0] != "p" || len(parts) != 4 {
			return nil, configError("malformed policy line %q", line)
		}
		rules = append(rules, parts[1:])
	}
	if err := sc.Err(); err != nil {
		return nil, configError("read policy: %v", err)
	}
	return rules, nil
}

func (s *Service) Mode() Mode {
	return s.flagProvider.Mode()
}

// Check evaluates a request without returning an authorization error.
func (s *Service) Check(req Request) (bool, error) {
	ok, err := s.enforcer.Enforce(req.Subject, req.Object, req.Action)
	if err != nil {
		return false, configError("enforce failed: %v", err)
	}
	return ok, nil
}

// Authorize decides p for tc. Anonymous callers are always rejected as
// unauthenticated, whatever the mode.
func (s *Service) Authorize(ctx context.Context, tc tenancy.Context, p Permission) error {
	if !tc.IsUser() {
		return ErrUnauthenticated
	}
	mode := s.flagProvider.Mode()
	if mode == ModeDisabled {
		return nil
	}

	allowed := false
	if tc.Role.IsValid() {
		var err error
		allowed, err = s.Check(NewRequest(tc.Role, p))
		if err != nil {
			return err
		}
	}
	recordDecision(mode, p, allowed)
	if allowed {
		return nil
	}
	return s.deny(ctx, mode, tc, logrus.Fields{"permission": p.String()})
}

// Require authorizes p for the tenant context attached to ctx.
func (s *Service) Require(ctx context.Context, p Permission) error {
	return s.Authorize(ctx, tenancy.Use(ctx), p)
}

// RequireBranch rejects branch-scoped callers targeting another branch.
func (s *Service) RequireBranch(ctx context.Context, branchID uuid.UUID) error {
	tc := tenancy.Use(ctx)
	if !tc.IsUser() {
		return ErrUnauthenticated
	}
	if !tc.Role.BranchScoped() {
		return nil
	}
	mode := s.flagProvider.Mode()
	if mode == ModeDisabled || (tc.HasBranch() && tc.BranchID == branchID) {
		return nil
	}
	return s.deny(ctx, mode, tc, logrus.Fields{"branch": branchID})
}

// RequireRoleAssignment rejects callers granting a role above their own.
func (s *Service) RequireRoleAssignment(ctx context.Context, target tenancy.Role) error {
	tc := tenancy.Use(ctx)
	if !tc.IsUser() {
		return ErrUnauthenticated
	}
	mode := s.flagProvider.Mode()
	if mode == ModeDisabled || CanAssignRole(tc.Role, target) {
		return nil
	}
	return s.deny(ctx, mode, tc, logrus.Fields{"target_role": target})
}

func (s *Service) deny(ctx context.Context, mode Mode, tc tenancy.Context, fields logrus.Fields) error {
	entry := s.logger.WithContext(ctx).WithFields(fields).WithFields(logrus.Fields{
		"tenant": tc.TenantID,
		"user":   tc.UserID,
		"role":   tc.Role,
		"mode":   mode,
	})
	if mode == ModeShadow {
		entry.Warn("authz shadow deny")
		return nil
	}
	entry.Warn("authz denied request")
	return ErrForbidden
}

// CanAssignRole reports whether actor may grant target: never above itself.
func CanAssignRole(actor, target tenancy.Role) bool {
	return target.IsValid() && actor.Rank() >= target.Rank()
}
