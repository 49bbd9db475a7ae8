package rbac

import (
	"net/http"
	"slices"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
)

var (
	errNoPermissions     = domain.NewAuthError(domain.CodeInvalidClaims, "Permissions not included in JWT.", http.StatusBadRequest)
	errMissingPermission = domain.NewAuthError(domain.CodeUnauthorized, "Permission not found.", http.StatusForbidden)
)

// Authorizer grants a request when the verified claims carry the required
// permission verbatim. There is no hierarchy or wildcard.
type Authorizer struct{}

func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

func (a *Authorizer) Require(claims domain.ClaimSet, permission string) error {
	if permission == "" {
		return nil
	}
	granted, ok := claims.Permissions()
	if !ok {
		return errNoPermissions
	}
	if !slices.Contains(granted, permission) {
		return errMissingPermission
	}
	return nil
}
