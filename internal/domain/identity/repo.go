package identity

import "context"

type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	// GetByUsernameAndRole returns errs.ErrNotFound when the user exists but
	// holds a different role.
	GetByUsernameAndRole(ctx context.Context, username, role string) (*User, error)
}

type VisitRepository interface {
	GetByID(ctx context.Context, id int64) (*Visit, error)
}
