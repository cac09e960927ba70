package labs

import "context"

// OrderRepository persists lab orders. Each call is atomic; Create returns
// errs.ErrConflict for a duplicate id and lookups return errs.ErrNotFound
// for the no-row case.
type OrderRepository interface {
	Create(ctx context.Context, o *LabOrder) error
	GetByID(ctx context.Context, id int64) (*LabOrder, error)
	Update(ctx context.Context, o *LabOrder) error
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context, limit, offset int) ([]*LabOrder, int, error)
	ListByTechnician(ctx context.Context, technician string, limit, offset int) ([]*LabOrder, int, error)
	ListByVisit(ctx context.Context, visitID int64, limit, offset int) ([]*LabOrder, int, error)
	ListByPatient(ctx context.Context, patient string, limit, offset int) ([]*LabOrder, int, error)
}
