// Package seed provisions organizations from YAML descriptions and creates
// the demo organization used in development.
package seed

import (
	"context"
	"io"
	"os"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/slug"
)

const DemoPassword = "demo-pass-2024"

// ReadProvisionFile decodes a YAML organization description. Unknown keys
// are rejected so typos do not silently drop data.
func ReadProvisionFile(r io.Reader) (*services.ProvisionDTO, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var dto services.ProvisionDTO
	if err := dec.Decode(&dto); err != nil {
		return nil, errors.Wrap(err, "decode provisioning file")
	}
	return &dto, nil
}

func LoadProvisionFile(path string) (*services.ProvisionDTO, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open provisioning file")
	}
	defer f.Close()
	return ReadProvisionFile(f)
}

// Provision registers the organization described by dto and provisions its
// branches and invites.
func Provision(ctx context.Context, app application.Application, dto *services.ProvisionDTO) (*services.ProvisioningResult, error) {
	svc := app.Service(services.ProvisioningService{}).(*services.ProvisioningService)
	result, _, err := svc.Provision(composables.WithDB(ctx, app.DB()), dto)
	return result, err
}

func DemoOrganization() *services.ProvisionDTO {
	return &services.ProvisionDTO{
		Organization: services.OrganizationDTO{
			Name:     "Demo Pharmacy",
			Country:  "SA",
			Currency: "SAR",
			Language: "ar",
		},
		Admin: services.AdminDTO{
			Name:     "Demo Admin",
			Email:    "admin@demo-pharmacy.test",
			Password: DemoPassword,
		},
		Branches: []services.BranchDTO{
			{Name: "Main Branch", Code: "MAIN"},
			{Name: "North Branch", Code: "NORTH"},
		},
		Invites: []services.InviteDTO{
			{Email: "north.admin@demo-pharmacy.test", FirstName: "North", LastName: "Admin", Role: "BranchAdmin", BranchCode: "NORTH"},
			{Email: "cashier@demo-pharmacy.test", FirstName: "Main", LastName: "Cashier", Role: "SectionAdmin", BranchCode: "MAIN"},
		},
	}
}

// SeedDemo creates the demo organization unless its slug is already taken.
func SeedDemo(ctx context.Context, app application.Application) (*services.ProvisioningResult, error) {
	logger := app.Logger()
	dto := DemoOrganization()
	tenants := app.Service(services.TenantService{}).(*services.TenantService)
	avail, err := tenants.Availability(composables.WithDB(ctx, app.DB()), dto.Organization.Name, "")
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		logger.Infof("demo organization %q already exists", slug.Make(dto.Organization.Name))
		return nil, nil
	}
	result, err := Provision(ctx, app, dto)
	if err != nil {
		if serrors.IsKind(err, serrors.KindConflict) {
			logger.Info("demo organization already exists")
			return nil, nil
		}
		return nil, err
	}
	logger.WithField("slug", result.Tenant.Slug()).Info("created demo organization")
	return result, nil
}
