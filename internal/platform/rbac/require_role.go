// Package rbac checks the authenticated caller's role for handlers behind the auth interceptor.
package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/server/interceptors"
	userdomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

// Caller returns the authenticated user id and role from context.
// Returns Unauthenticated when the auth interceptor did not set an identity.
func Caller(ctx context.Context) (userID string, role userdomain.Role, err error) {
	userID, okUser := interceptors.GetUserID(ctx)
	r, _ := interceptors.GetRole(ctx)
	if !okUser || userID == "" {
		return "", "", status.Error(codes.Unauthenticated, "authentication required")
	}
	return userID, userdomain.Role(r), nil
}

// RequireRole ensures the caller is authenticated and holds one of roles.
// Returns the caller's user id on success; Unauthenticated or PermissionDenied otherwise.
func RequireRole(ctx context.Context, roles ...userdomain.Role) (string, error) {
	userID, role, err := Caller(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if role == r {
			return userID, nil
		}
	}
	return "", status.Error(codes.PermissionDenied, "insufficient role")
}

// ResolveSubject returns the principal a request acts on. An empty target or the caller's own id
// resolves to the caller; any other principal requires ADMIN.
func ResolveSubject(ctx context.Context, target string) (string, error) {
	userID, _, err := Caller(ctx)
	if err != nil {
		return "", err
	}
	if target == "" || target == userID {
		return userID, nil
	}
	if _, err := RequireRole(ctx, userdomain.RoleAdmin); err != nil {
		return "", err
	}
	return target, nil
}
