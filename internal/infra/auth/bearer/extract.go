package bearer

import (
	"net/http"
	"strings"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
)

const scheme = "bearer"

var (
	errMissingHeader = domain.NewAuthError(domain.CodeMissingHeader, "Authorization header is expected.", http.StatusUnauthorized)
	errBadScheme     = domain.NewAuthError(domain.CodeInvalidHeader, `Authorization header must start with "Bearer".`, http.StatusUnauthorized)
	errNoToken       = domain.NewAuthError(domain.CodeInvalidHeader, "Token not found.", http.StatusUnauthorized)
	errTooManyParts  = domain.NewAuthError(domain.CodeInvalidHeader, "Authorization header must be bearer token.", http.StatusUnauthorized)
)

// Extract returns the credential carried by an Authorization header value of
// the form "Bearer <credential>". The credential is returned verbatim.
func Extract(header string) (string, error) {
	if header == "" {
		return "", errMissingHeader
	}
	parts := strings.Fields(header)
	switch {
	case len(parts) == 0:
		return "", errMissingHeader
	case strings.ToLower(parts[0]) != scheme:
		return "", errBadScheme
	case len(parts) == 1:
		return "", errNoToken
	case len(parts) > 2:
		return "", errTooManyParts
	}
	return parts[1], nil
}
