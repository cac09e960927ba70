package labs

import (
	"github.com/carelab/carelab/internal/domain/errs"
	"github.com/carelab/carelab/internal/platform/auth"
)

// Policy is the stateless rule set gating every lab-order operation. Each
// predicate is total over the closed role set; every denial is the bare
// errs.ErrAccessDenied, regardless of which rule fired.
type Policy struct{}

// CanCreate allows clinical viewers and lab techs to place orders.
func (Policy) CanCreate(p auth.Principal) error {
	if auth.IsClinicalViewer(p.Role) || p.Role == auth.RoleLabTech {
		return nil
	}
	return errs.ErrAccessDenied
}

// CanRecordResult allows only the technician the order is assigned to.
func (Policy) CanRecordResult(p auth.Principal, o *LabOrder) error {
	if p.Role == auth.RoleLabTech && p.Username == o.Technician {
		return nil
	}
	return errs.ErrAccessDenied
}

// CanConfirm allows only attending clinicians to sign off results.
func (Policy) CanConfirm(p auth.Principal) error {
	if p.Role == auth.RoleHCP {
		return nil
	}
	return errs.ErrAccessDenied
}

// CanDelete allows clinical viewers to remove an order (the entity itself
// additionally restricts deletion to the ASSIGNED stage).
func (Policy) CanDelete(p auth.Principal) error {
	if auth.IsClinicalViewer(p.Role) {
		return nil
	}
	return errs.ErrAccessDenied
}

// CanList decides what a caller may see:
//   - clinical viewers: every order
//   - lab techs: only their own assignments
//   - patients: only orders on their own visits, checked per visit
func (Policy) CanList(p auth.Principal) error {
	switch {
	case auth.IsClinicalViewer(p.Role), p.Role == auth.RoleLabTech, p.Role == auth.RolePatient:
		return nil
	}
	return errs.ErrAccessDenied
}
