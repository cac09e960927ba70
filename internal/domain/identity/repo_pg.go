package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelab/carelab/internal/domain/errs"
	"github.com/carelab/carelab/internal/platform/db"
)

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.ConnFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT username, role, display_name, created_at FROM app_user WHERE username = $1`,
		username).Scan(&u.Username, &u.Role, &u.DisplayName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) GetByUsernameAndRole(ctx context.Context, username, role string) (*User, error) {
	var u User
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT username, role, display_name, created_at FROM app_user WHERE username = $1 AND role = $2`,
		username, role).Scan(&u.Username, &u.Role, &u.DisplayName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type visitRepoPG struct{ pool *pgxpool.Pool }

func NewVisitRepoPG(pool *pgxpool.Pool) VisitRepository {
	return &visitRepoPG{pool: pool}
}

func (r *visitRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.ConnFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *visitRepoPG) GetByID(ctx context.Context, id int64) (*Visit, error) {
	var v Visit
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, patient, visited_at FROM office_visit WHERE id = $1`,
		id).Scan(&v.ID, &v.Patient, &v.VisitedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
