package authz

import (
	"fmt"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

var (
	// ErrForbidden never says which permission was missing.
	ErrForbidden       = serrors.Forbidden("AUTHZ_FORBIDDEN", "not permitted")
	ErrUnauthenticated = serrors.Unauthenticated("AUTHZ_UNAUTHENTICATED", "authentication required")
)

// configError standardizes configuration validation errors.
func configError(msg string, args ...any) error {
	return fmt.Errorf("authz: "+msg, args...)
}
