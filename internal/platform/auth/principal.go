package auth

import "context"

type contextKey string

const (
	UserKey contextKey = "user"
	RoleKey contextKey = "role"
)

// Role names understood by the access policies. The set is closed: anything
// else is treated as an unknown role and denied by every policy.
const (
	RolePatient = "patient"
	RoleHCP     = "hcp"
	RoleLabTech = "labtech"
	RoleOD      = "od"
	RoleOPH     = "oph"
	RoleAdmin   = "admin"
)

// Principal is the authenticated caller, resolved once by the middleware and
// threaded explicitly through every service call.
type Principal struct {
	Username string
	Role     string
}

// WithPrincipal returns a context carrying the principal's username and role.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, UserKey, p.Username)
	return context.WithValue(ctx, RoleKey, p.Role)
}

// PrincipalFromContext extracts the principal set by the auth middleware.
// The zero Principal means the request was not authenticated.
func PrincipalFromContext(ctx context.Context) Principal {
	user, _ := ctx.Value(UserKey).(string)
	role, _ := ctx.Value(RoleKey).(string)
	return Principal{Username: user, Role: role}
}

// IsClinicalViewer reports whether the role may read clinical data for any
// patient: attending HCPs plus the optometry and ophthalmology specialists.
func IsClinicalViewer(role string) bool {
	switch role {
	case RoleHCP, RoleOD, RoleOPH:
		return true
	}
	return false
}
