package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Authorization failure codes. Each code is bound to the status the stage
// that produces it reports.
const (
	CodeMissingHeader    = "missing_header"
	CodeInvalidHeader    = "invalid_header"
	CodeTokenExpired     = "token_expired"
	CodeInvalidClaims    = "invalid_claims"
	CodeUnauthorized     = "unauthorized"
	CodeValidationFailed = "validation_failed"
)

// PermissionsClaim is the claim holding the caller's granted permissions.
const PermissionsClaim = "permissions"

// AuthError is the structured failure produced by every stage of the
// authorization pipeline.
type AuthError struct {
	Code        string
	Description string
	Status      int
	Err         error
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return e.Code + ": " + e.Description
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match the sentinel the status maps to.
func (e *AuthError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrKeysUnavailable:
		return e.Code == CodeValidationFailed
	}
	return false
}

func NewAuthError(code, description string, status int) *AuthError {
	return &AuthError{Code: code, Description: description, Status: status}
}

// WithCause returns a copy of e wrapping err.
func (e *AuthError) WithCause(err error) *AuthError {
	out := *e
	out.Err = err
	return &out
}

func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// ClaimSet is the decoded payload of a fully verified credential.
type ClaimSet map[string]any

func (c ClaimSet) Subject() string {
	sub, _ := c["sub"].(string)
	return sub
}

// Permissions returns the permissions claim. The boolean is false when the
// claim is absent or is not a list of strings.
func (c ClaimSet) Permissions() ([]string, bool) {
	raw, ok := c[PermissionsClaim]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			s, ok := entry.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (ClaimSet, error)
}

type Authorizer interface {
	Require(claims ClaimSet, permission string) error
}
