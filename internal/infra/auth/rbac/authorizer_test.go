package rbac

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
)

func TestRequireGrantsPresentPermission(t *testing.T) {
	authz := NewAuthorizer()
	claims := domain.ClaimSet{"permissions": []any{"get:portfolios", "post:portfolios"}}

	assert.NoError(t, authz.Require(claims, "get:portfolios"))
	assert.NoError(t, authz.Require(claims, "post:portfolios"))
}

func TestRequireEmptyPermissionAlwaysPasses(t *testing.T) {
	authz := NewAuthorizer()

	assert.NoError(t, authz.Require(domain.ClaimSet{}, ""))
	assert.NoError(t, authz.Require(nil, ""))
	assert.NoError(t, authz.Require(domain.ClaimSet{"permissions": "not-a-list"}, ""))
}

func TestRequireMissingPermission(t *testing.T) {
	authz := NewAuthorizer()
	claims := domain.ClaimSet{"permissions": []any{"get:portfolios"}}

	for _, permission := range []string{"delete:portfolios", "GET:portfolios", "get:portfolio", "get:*"} {
		err := authz.Require(claims, permission)
		authErr, ok := domain.AsAuthError(err)
		require.True(t, ok, permission)
		assert.Equal(t, domain.CodeUnauthorized, authErr.Code)
		assert.Equal(t, http.StatusForbidden, authErr.Status)
		assert.Equal(t, "Permission not found.", authErr.Description)
		assert.True(t, errors.Is(err, domain.ErrForbidden))
	}
}

func TestRequireEmptyListIsForbidden(t *testing.T) {
	err := NewAuthorizer().Require(domain.ClaimSet{"permissions": []any{}}, "get:portfolios")
	authErr, ok := domain.AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, authErr.Status)
}

func TestRequireWithoutPermissionsClaim(t *testing.T) {
	cases := map[string]domain.ClaimSet{
		"absent":     {"sub": "auth0|user"},
		"string":     {"permissions": "get:portfolios"},
		"mixed list": {"permissions": []any{"get:portfolios", 7}},
		"nil claims": nil,
		"object":     {"permissions": map[string]any{"get:portfolios": true}},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			err := NewAuthorizer().Require(claims, "get:portfolios")
			authErr, ok := domain.AsAuthError(err)
			require.True(t, ok)
			assert.Equal(t, domain.CodeInvalidClaims, authErr.Code)
			assert.Equal(t, http.StatusBadRequest, authErr.Status)
			assert.Equal(t, "Permissions not included in JWT.", authErr.Description)
		})
	}
}
