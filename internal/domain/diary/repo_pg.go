package diary

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelab/carelab/internal/domain/errs"
	"github.com/carelab/carelab/internal/platform/db"
)

type entryRepoPG struct{ pool *pgxpool.Pool }

func NewEntryRepoPG(pool *pgxpool.Pool) EntryRepository {
	return &entryRepoPG{pool: pool}
}

func (r *entryRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.ConnFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

// entry_date is a DATE column; the cast keeps the wire form as YYYY-MM-DD.
const entryCols = `id, patient, entry_date::text, fasting, breakfast, lunch, dinner, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Patient, &e.Date, &e.Fasting, &e.Breakfast, &e.Lunch, &e.Dinner,
		&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *entryRepoPG) Upsert(ctx context.Context, e *Entry) error {
	stored, err := scanEntry(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO blood_sugar_entry (patient, entry_date, fasting, breakfast, lunch, dinner)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (patient, entry_date) DO UPDATE SET
			fasting = EXCLUDED.fasting,
			breakfast = EXCLUDED.breakfast,
			lunch = EXCLUDED.lunch,
			dinner = EXCLUDED.dinner,
			updated_at = now()
		RETURNING `+entryCols,
		e.Patient, e.Date, e.Fasting, e.Breakfast, e.Lunch, e.Dinner))
	if err != nil {
		return err
	}
	*e = *stored
	return nil
}

func (r *entryRepoPG) GetByPatientAndDate(ctx context.Context, patient, date string) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx, `
		SELECT `+entryCols+` FROM blood_sugar_entry
		WHERE patient = $1 AND entry_date = $2`,
		patient, date))
}

func (r *entryRepoPG) ListByPatient(ctx context.Context, patient string, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT count(*) FROM blood_sugar_entry WHERE patient = $1`, patient).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM blood_sugar_entry
		WHERE patient = $1
		ORDER BY entry_date ASC
		LIMIT $2 OFFSET $3`,
		patient, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
