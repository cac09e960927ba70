package labs

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelab/carelab/internal/domain/errs"
	"github.com/carelab/carelab/internal/platform/db"
)

const pgUniqueViolation = "23505"

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewOrderRepoPG(pool *pgxpool.Pool) OrderRepository {
	return &orderRepoPG{pool: pool}
}

func (r *orderRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.ConnFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const orderCols = `id, test_kind, priority, comments, status, result, diagnosis,
	hcp_confirmed, visit_id, patient, technician, created_at, updated_at`

func scanOrder(row pgx.Row) (*LabOrder, error) {
	var o LabOrder
	err := row.Scan(&o.ID, &o.Kind, &o.Priority, &o.Comments, &o.Status, &o.Result, &o.Diagnosis,
		&o.HCPConfirmed, &o.VisitID, &o.Patient, &o.Technician, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepoPG) Create(ctx context.Context, o *LabOrder) error {
	var err error
	if o.ID != 0 {
		_, err = r.conn(ctx).Exec(ctx, `
			INSERT INTO lab_order (id, test_kind, priority, comments, status, result, diagnosis,
				hcp_confirmed, visit_id, patient, technician)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			o.ID, o.Kind, o.Priority, o.Comments, o.Status, o.Result, o.Diagnosis,
			o.HCPConfirmed, o.VisitID, o.Patient, o.Technician)
	} else {
		err = r.conn(ctx).QueryRow(ctx, `
			INSERT INTO lab_order (test_kind, priority, comments, status, result, diagnosis,
				hcp_confirmed, visit_id, patient, technician)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING id`,
			o.Kind, o.Priority, o.Comments, o.Status, o.Result, o.Diagnosis,
			o.HCPConfirmed, o.VisitID, o.Patient, o.Technician).Scan(&o.ID)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return errs.ErrConflict
	}
	return err
}

func (r *orderRepoPG) GetByID(ctx context.Context, id int64) (*LabOrder, error) {
	return scanOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderCols+` FROM lab_order WHERE id = $1`, id))
}

func (r *orderRepoPG) Update(ctx context.Context, o *LabOrder) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_order SET priority=$2, comments=$3, status=$4, result=$5, diagnosis=$6,
			hcp_confirmed=$7, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Priority, o.Comments, o.Status, o.Result, o.Diagnosis, o.HCPConfirmed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *orderRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM lab_order WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *orderRepoPG) list(ctx context.Context, where string, countArgs []interface{}, limit, offset int) ([]*LabOrder, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_order`+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append(append([]interface{}{}, countArgs...), limit, offset)
	n := len(countArgs)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+orderCols+` FROM lab_order`+where+
			` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*LabOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *orderRepoPG) ListAll(ctx context.Context, limit, offset int) ([]*LabOrder, int, error) {
	return r.list(ctx, ``, nil, limit, offset)
}

func (r *orderRepoPG) ListByTechnician(ctx context.Context, technician string, limit, offset int) ([]*LabOrder, int, error) {
	return r.list(ctx, ` WHERE technician = $1`, []interface{}{technician}, limit, offset)
}

func (r *orderRepoPG) ListByVisit(ctx context.Context, visitID int64, limit, offset int) ([]*LabOrder, int, error) {
	return r.list(ctx, ` WHERE visit_id = $1`, []interface{}{visitID}, limit, offset)
}

func (r *orderRepoPG) ListByPatient(ctx context.Context, patient string, limit, offset int) ([]*LabOrder, int, error) {
	return r.list(ctx, ` WHERE patient = $1`, []interface{}{patient}, limit, offset)
}
