package labs

import (
	"context"
	"errors"
	"fmt"

	"github.com/carelab/carelab/internal/domain/errs"
	"github.com/carelab/carelab/internal/domain/identity"
	"github.com/carelab/carelab/internal/platform/audit"
	"github.com/carelab/carelab/internal/platform/auth"
)

// Service orchestrates the lab-order workflow: policy check, entity
// operation, persistence, then exactly one audit event. Failures emit no
// event and commit no state.
type Service struct {
	orders OrderRepository
	users  identity.UserRepository
	visits identity.VisitRepository
	policy Policy
	audit  audit.Sink
}

func NewService(orders OrderRepository, users identity.UserRepository, visits identity.VisitRepository, sink audit.Sink) *Service {
	return &Service{orders: orders, users: users, visits: visits, audit: sink}
}

func orderSubject(id int64) string {
	return fmt.Sprintf("lab_order/%d", id)
}

// CreateOrderInput is the payload for placing a new order. ID is optional;
// zero means the repository assigns one. Result is optional and, when
// present, classified immediately.
type CreateOrderInput struct {
	ID         int64    `json:"id,omitempty"`
	Kind       TestKind `json:"test_kind"`
	Priority   Priority `json:"priority"`
	Comments   string   `json:"comments"`
	Patient    string   `json:"patient"`
	Technician string   `json:"technician"`
	VisitID    int64    `json:"visit_id"`
	Result     *int     `json:"result,omitempty"`
}

func (s *Service) CreateOrder(ctx context.Context, p auth.Principal, in CreateOrderInput) (*LabOrder, error) {
	if err := s.policy.CanCreate(p); err != nil {
		return nil, err
	}
	if in.Kind == "" {
		return nil, errs.Validation("test_kind", "is required")
	}
	if _, ok := priorityNames[in.Priority]; !ok {
		return nil, errs.Validation("priority", fmt.Sprintf("unknown priority code %d", int(in.Priority)))
	}

	if _, err := s.users.GetByUsernameAndRole(ctx, in.Patient, auth.RolePatient); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Validation("patient", fmt.Sprintf("no patient with username %q", in.Patient))
		}
		return nil, err
	}
	if _, err := s.users.GetByUsernameAndRole(ctx, in.Technician, auth.RoleLabTech); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Validation("technician", fmt.Sprintf("no lab tech with username %q", in.Technician))
		}
		return nil, err
	}
	visit, err := s.visits.GetByID(ctx, in.VisitID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Validation("visit_id", fmt.Sprintf("no visit with id %d", in.VisitID))
		}
		return nil, err
	}
	if visit.Patient != in.Patient {
		return nil, errs.Validation("visit_id", "visit does not belong to the named patient")
	}

	// Duplicate explicit ids are a conflict, not a validation failure.
	if in.ID != 0 {
		if _, err := s.orders.GetByID(ctx, in.ID); err == nil {
			return nil, errs.ErrConflict
		} else if !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
	}

	o := &LabOrder{
		ID:         in.ID,
		Kind:       in.Kind,
		Priority:   in.Priority,
		Comments:   in.Comments,
		Status:     StatusAssigned,
		Diagnosis:  DiagnosisNonApplicable,
		VisitID:    in.VisitID,
		Patient:    in.Patient,
		Technician: in.Technician,
	}
	if in.Result != nil {
		if err := o.SetResult(*in.Result); err != nil {
			return nil, err
		}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.New(p.Username, p.Role, "lab_order.create", orderSubject(o.ID)))
	return o, nil
}

// RecordResult stores the measured value on behalf of the assigned
// technician and optionally advances the status in the same call. Nothing is
// persisted unless both succeed.
func (s *Service) RecordResult(ctx context.Context, p auth.Principal, orderID int64, result int, advanceTo *Status) (*LabOrder, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanRecordResult(p, o); err != nil {
		return nil, err
	}
	if err := o.SetResult(result); err != nil {
		return nil, err
	}
	if advanceTo != nil {
		if err := o.AdvanceStatus(*advanceTo); err != nil {
			return nil, err
		}
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.New(p.Username, p.Role, "lab_order.result", orderSubject(o.ID)))
	return o, nil
}

// AdvanceStatus moves an order to a strictly later stage.
func (s *Service) AdvanceStatus(ctx context.Context, p auth.Principal, orderID int64, next Status) (*LabOrder, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanRecordResult(p, o); err != nil {
		return nil, err
	}
	if err := o.AdvanceStatus(next); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.New(p.Username, p.Role, "lab_order.status", orderSubject(o.ID)))
	return o, nil
}

// ConfirmOrder records the clinician sign-off on a completed result.
func (s *Service) ConfirmOrder(ctx context.Context, p auth.Principal, orderID int64) (*LabOrder, error) {
	if err := s.policy.CanConfirm(p); err != nil {
		return nil, err
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.Confirm(); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.New(p.Username, p.Role, "lab_order.confirm", orderSubject(o.ID)))
	return o, nil
}

// DeleteOrder removes an order that has not yet been started.
func (s *Service) DeleteOrder(ctx context.Context, p auth.Principal, orderID int64) error {
	if err := s.policy.CanDelete(p); err != nil {
		return err
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.Deletable() {
		return errs.Transition(o.Status.String(), "deleted")
	}
	if err := s.orders.Delete(ctx, o.ID); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.New(p.Username, p.Role, "lab_order.delete", orderSubject(o.ID)))
	return nil
}

// OrderFilter narrows a query. Zero values mean no filter.
type OrderFilter struct {
	Technician string
	VisitID    int64
}

// QueryOrders returns the orders the caller is entitled to see:
// clinical viewers see everything (optionally filtered), a lab tech sees only
// their own assignments, and a patient sees only orders on their own visits.
func (s *Service) QueryOrders(ctx context.Context, p auth.Principal, f OrderFilter, limit, offset int) ([]*LabOrder, int, error) {
	if err := s.policy.CanList(p); err != nil {
		return nil, 0, err
	}

	var (
		items []*LabOrder
		total int
		err   error
	)
	switch {
	case p.Role == auth.RolePatient:
		if f.Technician != "" {
			return nil, 0, errs.ErrAccessDenied
		}
		if f.VisitID != 0 {
			visit, verr := s.visits.GetByID(ctx, f.VisitID)
			if verr != nil {
				return nil, 0, verr
			}
			// A visit belonging to someone else is rejected outright, not
			// silently filtered to empty.
			if visit.Patient != p.Username {
				return nil, 0, errs.ErrAccessDenied
			}
			items, total, err = s.orders.ListByVisit(ctx, f.VisitID, limit, offset)
		} else {
			items, total, err = s.orders.ListByPatient(ctx, p.Username, limit, offset)
		}

	case p.Role == auth.RoleLabTech:
		if f.Technician != "" && f.Technician != p.Username {
			return nil, 0, errs.ErrAccessDenied
		}
		items, total, err = s.orders.ListByTechnician(ctx, p.Username, limit, offset)

	default: // clinical viewers
		switch {
		case f.Technician != "":
			if _, terr := s.users.GetByUsernameAndRole(ctx, f.Technician, auth.RoleLabTech); terr != nil {
				return nil, 0, terr
			}
			items, total, err = s.orders.ListByTechnician(ctx, f.Technician, limit, offset)
		case f.VisitID != 0:
			if _, verr := s.visits.GetByID(ctx, f.VisitID); verr != nil {
				return nil, 0, verr
			}
			items, total, err = s.orders.ListByVisit(ctx, f.VisitID, limit, offset)
		default:
			items, total, err = s.orders.ListAll(ctx, limit, offset)
		}
	}
	if err != nil {
		return nil, 0, err
	}

	s.audit.Record(ctx, audit.New(p.Username, p.Role, "lab_order.view", "lab_order"))
	return items, total, nil
}

// GetOrder fetches one order with the same visibility rules as QueryOrders.
func (s *Service) GetOrder(ctx context.Context, p auth.Principal, orderID int64) (*LabOrder, error) {
	if err := s.policy.CanList(p); err != nil {
		return nil, err
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch {
	case auth.IsClinicalViewer(p.Role):
	case p.Role == auth.RoleLabTech:
		if o.Technician != p.Username {
			return nil, errs.ErrAccessDenied
		}
	case p.Role == auth.RolePatient:
		if o.Patient != p.Username {
			return nil, errs.ErrAccessDenied
		}
	}
	s.audit.Record(ctx, audit.New(p.Username, p.Role, "lab_order.view", orderSubject(o.ID)))
	return o, nil
}
