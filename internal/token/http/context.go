// Package http provides the gin handlers and request filters that turn session and
// capability tokens into request-scoped principals and permission sets.
package http

import (
	"context"

	tokenDomain "github.com/allisson/natter/internal/token/domain"
)

// principalKey is a context key type for storing the authenticated principal.
type principalKey struct{}

// attributesKey is a context key type for storing session claim attributes.
type attributesKey struct{}

// permissionsKey is a context key type for storing the resolved capability permissions.
type permissionsKey struct{}

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetPrincipal retrieves the authenticated principal from the context.
func GetPrincipal(ctx context.Context) (string, bool) {
	principal, ok := ctx.Value(principalKey{}).(string)
	return principal, ok && principal != ""
}

// WithAttributes stores the attributes of a validated session claim in the context.
func WithAttributes(ctx context.Context, attributes *tokenDomain.Attributes) context.Context {
	return context.WithValue(ctx, attributesKey{}, attributes)
}

// GetAttributes retrieves the session claim attributes from the context.
func GetAttributes(ctx context.Context) (*tokenDomain.Attributes, bool) {
	attributes, ok := ctx.Value(attributesKey{}).(*tokenDomain.Attributes)
	return attributes, ok
}

// WithPermissions stores the permission set resolved from a capability in the context.
func WithPermissions(ctx context.Context, perms tokenDomain.Permissions) context.Context {
	return context.WithValue(ctx, permissionsKey{}, perms)
}

// GetPermissions retrieves the resolved permission set from the context.
// Returns (0, false) when no capability was resolved for this request.
func GetPermissions(ctx context.Context) (tokenDomain.Permissions, bool) {
	perms, ok := ctx.Value(permissionsKey{}).(tokenDomain.Permissions)
	return perms, ok
}
