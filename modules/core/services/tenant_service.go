package services

import (
	"context"
	"strings"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/tenant"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/slug"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/validation"
)

// SlugAvailability answers the public availability check.
type SlugAvailability struct {
	Slug      string
	Available bool
}

// TenantService exposes the only anonymous reads of tenant data: resolving a
// slug and checking whether one is free. Both reveal nothing beyond the
// display name and slug.
type TenantService struct {
	repo tenant.Repository
}

func NewTenantService(repo tenant.Repository) *TenantService {
	return &TenantService{repo: repo}
}

func (s *TenantService) GetBySlug(ctx context.Context, raw string) (*tenant.Tenant, error) {
	normalized := slug.Normalize(raw)
	if normalized == "" || len(normalized) > slug.MaxLength {
		return nil, tenant.ErrNotFound
	}
	return s.repo.GetBySlug(ctx, normalized)
}

// Availability derives the slug from name when raw is empty.
func (s *TenantService) Availability(ctx context.Context, name, raw string) (*SlugAvailability, error) {
	candidate := slug.Normalize(raw)
	if candidate == "" {
		candidate = slug.Make(name)
	}
	if candidate == "" || len(candidate) > slug.MaxLength || candidate != slug.Make(candidate) {
		return nil, serrors.Validation(validation.ErrCodeInvalidInput, "request is invalid").
			WithField("slug", "format")
	}
	exists, err := s.repo.SlugExists(ctx, candidate)
	if err != nil {
		return nil, err
	}
	return &SlugAvailability{Slug: candidate, Available: !exists}, nil
}

// Current returns the caller's tenant.
func (s *TenantService) Current(ctx context.Context) (*tenant.Tenant, error) {
	tc := tenancy.Use(ctx)
	if tc.IsAnonymous() {
		return nil, authz.ErrUnauthenticated
	}
	return s.repo.GetByID(ctx, tc.TenantID)
}

func normalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
