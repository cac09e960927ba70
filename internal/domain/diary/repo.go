package diary

import "context"

// EntryRepository is the persistence boundary for blood sugar diary entries.
type EntryRepository interface {
	// Upsert inserts the entry, or replaces the readings on the existing row
	// for the same (patient, date). The stored row's id and timestamps are
	// written back into e.
	Upsert(ctx context.Context, e *Entry) error
	GetByPatientAndDate(ctx context.Context, patient, date string) (*Entry, error)
	// ListByPatient returns entries oldest first.
	ListByPatient(ctx context.Context, patient string, limit, offset int) ([]*Entry, int, error)
}
