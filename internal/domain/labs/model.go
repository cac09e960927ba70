package labs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carelab/carelab/internal/domain/errs"
)

// TestKind identifies which clinical assay, and therefore which diagnosis
// threshold table, applies to an order. Codes follow the LOINC-style
// identifiers used by the ordering forms.
type TestKind string

const (
	TestOralTolerance TestKind = "49689-3"
	TestFastingBlood  TestKind = "49689-4"
	TestGestational   TestKind = "49689-5"
)

// Display returns the human-readable assay name, or the raw code for
// unrecognized kinds.
func (k TestKind) Display() string {
	switch k {
	case TestOralTolerance:
		return "Oral Glucose Tolerance Test"
	case TestFastingBlood:
		return "Fasting Blood Glucose Test"
	case TestGestational:
		return "Gestational Glucose Tolerance Test"
	}
	return string(k)
}

// Priority of a lab order, ordered from least to most urgent.
type Priority int

const (
	PriorityLow       Priority = 1
	PriorityNormal    Priority = 2
	PriorityHigh      Priority = 3
	PriorityEmergency Priority = 4
)

var priorityNames = map[Priority]string{
	PriorityLow:       "LOW",
	PriorityNormal:    "NORMAL",
	PriorityHigh:      "HIGH",
	PriorityEmergency: "EMERGENCY",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// UnmarshalJSON lets request payloads send the priority as either the
// numeric code or the name.
func (p *Priority) UnmarshalJSON(data []byte) error {
	parsed, err := ParsePriority(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePriority accepts either the numeric code or the name; the ordering
// forms historically sent both.
func ParsePriority(s string) (Priority, error) {
	if n, err := strconv.Atoi(s); err == nil {
		p := Priority(n)
		if _, ok := priorityNames[p]; ok {
			return p, nil
		}
		return 0, errs.Validation("priority", fmt.Sprintf("unknown priority code %d", n))
	}
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	return 0, errs.Validation("priority", fmt.Sprintf("unknown priority %q", s))
}

// Status is the order lifecycle stage. The order is strict: a status may only
// ever advance, never repeat or regress.
type Status int

const (
	StatusAssigned   Status = 1
	StatusInProgress Status = 2
	StatusCompleted  Status = 3
)

var statusNames = map[Status]string{
	StatusAssigned:   "ASSIGNED",
	StatusInProgress: "IN_PROGRESS",
	StatusCompleted:  "COMPLETED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus accepts either the numeric code or the name.
func ParseStatus(s string) (Status, error) {
	if n, err := strconv.Atoi(s); err == nil {
		st := Status(n)
		if _, ok := statusNames[st]; ok {
			return st, nil
		}
		return 0, errs.Validation("status", fmt.Sprintf("unknown status code %d", n))
	}
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, errs.Validation("status", fmt.Sprintf("unknown status %q", s))
}

// LabOrder maps to the lab_order table. The diagnosis field is derived: it is
// recomputed from (TestKind, Result) on every result change and never set
// independently.
type LabOrder struct {
	ID           int64             `db:"id" json:"id"`
	Kind         TestKind          `db:"test_kind" json:"test_kind"`
	Priority     Priority          `db:"priority" json:"priority"`
	Comments     string            `db:"comments" json:"comments"`
	Status       Status            `db:"status" json:"status"`
	Result       *int              `db:"result" json:"result,omitempty"`
	Diagnosis    DiagnosisCategory `db:"diagnosis" json:"diagnosis"`
	HCPConfirmed bool              `db:"hcp_confirmed" json:"hcp_confirmed"`
	VisitID      int64             `db:"visit_id" json:"visit_id"`
	Patient      string            `db:"patient" json:"patient"`
	Technician   string            `db:"technician" json:"technician"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// SetResult records a measured value and recomputes the diagnosis. It does
// not advance the status; that is a separate explicit action.
func (o *LabOrder) SetResult(result int) error {
	if result < 0 {
		return errs.Validation("result", "must be a non-negative integer")
	}
	o.Result = &result
	o.Diagnosis = Classify(o.Kind, result)
	return nil
}

// AdvanceStatus moves the order to a strictly later stage.
func (o *LabOrder) AdvanceStatus(next Status) error {
	if _, ok := statusNames[next]; !ok {
		return errs.Validation("status", fmt.Sprintf("unknown status code %d", int(next)))
	}
	if next <= o.Status {
		return errs.Transition(o.Status.String(), next.String())
	}
	o.Status = next
	return nil
}

// Confirm records the clinician sign-off. It is a one-way flag and requires a
// recorded result.
func (o *LabOrder) Confirm() error {
	if o.Result == nil {
		return errs.Transition("unconfirmed", "confirmed")
	}
	if o.HCPConfirmed {
		return errs.Transition("confirmed", "confirmed")
	}
	o.HCPConfirmed = true
	return nil
}

// Deletable reports whether the order may still be removed. Only orders that
// have not left the ASSIGNED stage qualify.
func (o *LabOrder) Deletable() bool {
	return o.Status == StatusAssigned
}
